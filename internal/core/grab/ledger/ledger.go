// Package ledger reference counts the temporary physical overrides applied to
// an entity while one or more controllers hold it.
//
// The count lives in the entity's custom data under world.GrabUserDataKey so
// every controller, in this session or another, sees the same ledger. Originals
// are captured when the count goes 0→1 and restored when it returns to 0.
package ledger

import (
	"errors"
	"fmt"

	"github.com/zeusync/handgrab/internal/core/observability/log"
	"github.com/zeusync/handgrab/internal/core/physics"
	"github.com/zeusync/handgrab/internal/core/world"
)

var ErrNoProperties = errors.New("entity properties unavailable")

// Store is the slice of the world the ledger needs.
type Store interface {
	world.CustomDataStore
	world.PropertyEditor
	EntityProperties(id world.EntityID) (world.Properties, bool)
}

// Record is the persisted ledger entry for one entity.
type Record struct {
	Activated           bool         `json:"activated"`
	AvatarID            string       `json:"avatarId,omitempty"`
	RefCount            int          `json:"refCount"`
	Gravity             physics.Vec3 `json:"gravity"`
	IgnoreForCollisions bool         `json:"ignoreForCollisions"`
	CollisionsWillMove  bool         `json:"collisionsWillMove"`
}

// Overrides selects optional extra overrides for an activation.
type Overrides struct {
	// InvertSolid flips ignoreForCollisions while held. Only honoured by the
	// activation that captures the originals.
	InvertSolid bool
	// Kinematic stops the physics engine from moving the entity while held.
	Kinematic bool
}

type Ledger struct {
	store   Store
	session string
	logger  log.Log
}

func New(store Store, session string, logger log.Log) *Ledger {
	if logger == nil {
		logger = log.Provide()
	}
	return &Ledger{store: store, session: session, logger: logger}
}

// RefCount returns the number of active holders of id.
func (l *Ledger) RefCount(id world.EntityID) int {
	return l.load(id).RefCount
}

// Record returns the current ledger entry and whether one exists.
func (l *Ledger) Record(id world.EntityID) (Record, bool) {
	r := l.load(id)
	return r, r.RefCount > 0
}

// Activate adds a holder to id. props must be the entity's current properties;
// they are captured as the originals when this is the first holder.
func (l *Ledger) Activate(id world.EntityID, props world.Properties, o Overrides) (Record, error) {
	r := l.load(id)
	r.Activated = true
	r.AvatarID = l.session
	r.RefCount++

	var edit world.PropertyEdit
	if r.RefCount == 1 {
		r.Gravity = props.Gravity
		r.IgnoreForCollisions = props.IgnoreForCollisions
		r.CollisionsWillMove = props.CollisionsWillMove

		zero := physics.Zero
		edit.Gravity = &zero
		if o.InvertSolid {
			inverted := !props.IgnoreForCollisions
			edit.IgnoreForCollisions = &inverted
		}
	}
	if o.Kinematic && props.CollisionsWillMove {
		kinematic := false
		edit.CollisionsWillMove = &kinematic
	}

	if !edit.Empty() {
		if err := l.store.EditEntity(id, edit); err != nil {
			return Record{}, fmt.Errorf("apply held overrides: %w", err)
		}
	}
	if err := world.SetCustomData(l.store, id, world.GrabUserDataKey, r); err != nil {
		return Record{}, err
	}

	l.logger.Debug("entity activated",
		log.String("entity", string(id)),
		log.Int("ref_count", r.RefCount),
	)
	return r, nil
}

// ActivateCurrent is Activate with the entity's properties read from the store.
func (l *Ledger) ActivateCurrent(id world.EntityID, o Overrides) (Record, error) {
	props, ok := l.store.EntityProperties(id)
	if !ok {
		return Record{}, fmt.Errorf("activate %s: %w", id, ErrNoProperties)
	}
	return l.Activate(id, props, o)
}

// Deactivate removes a holder from id. When the last holder leaves, the
// original properties are restored and the record is deleted. Deactivating an
// entity with no holders is a no-op.
func (l *Ledger) Deactivate(id world.EntityID) error {
	r := l.load(id)
	if r.RefCount < 1 {
		return l.store.DeleteCustomData(id, world.GrabUserDataKey)
	}

	r.RefCount--
	if r.RefCount > 0 {
		return world.SetCustomData(l.store, id, world.GrabUserDataKey, r)
	}

	gravity := r.Gravity
	ignore := r.IgnoreForCollisions
	willMove := r.CollisionsWillMove
	editErr := l.store.EditEntity(id, world.PropertyEdit{
		Gravity:             &gravity,
		IgnoreForCollisions: &ignore,
		CollisionsWillMove:  &willMove,
	})
	if err := l.store.DeleteCustomData(id, world.GrabUserDataKey); err != nil {
		return errors.Join(editErr, err)
	}
	if editErr != nil {
		return fmt.Errorf("restore original properties: %w", editErr)
	}

	l.logger.Debug("entity restored", log.String("entity", string(id)))
	return nil
}

func (l *Ledger) load(id world.EntityID) Record {
	r := world.GetCustomData(l.store, id, world.GrabUserDataKey, Record{})
	if r.RefCount < 0 {
		r.RefCount = 0
	}
	return r
}
