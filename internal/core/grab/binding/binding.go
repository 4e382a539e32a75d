// Package binding owns the lifetime of one physical constraint attached by a
// controller to an entity.
package binding

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zeusync/handgrab/internal/core/world"
)

var ErrConstraintRejected = errors.New("constraint rejected")

const tagPrefix = "grab-"

// OwnerTag is the advisory tag a session stamps on the springs it creates.
// Near holds stay untagged, so they never block another distance hold.
func OwnerTag(session string) string {
	return tagPrefix + session
}

// IsGrabbedByOther reports whether entity carries a grab constraint tagged by
// a session other than ownTag.
func IsGrabbedByOther(c world.Constraints, entity world.EntityID, ownTag string) bool {
	for _, info := range c.Constraints(entity) {
		if strings.HasPrefix(info.Tag, tagPrefix) && info.Tag != ownTag {
			return true
		}
	}
	return false
}

// Binding is a live constraint. A nil *Binding means no constraint.
type Binding struct {
	constraints world.Constraints
	entity      world.EntityID
	id          world.ConstraintID
	params      world.ConstraintParams
	expiresAt   time.Time
	deleted     bool
}

// NewSpring attaches a spring constraint pulling entity toward a target pose.
func NewSpring(c world.Constraints, entity world.EntityID, params world.SpringParams, now time.Time) (*Binding, error) {
	return create(c, entity, params, now)
}

// NewHold attaches entity rigidly to a hand.
func NewHold(c world.Constraints, entity world.EntityID, params world.HoldParams, now time.Time) (*Binding, error) {
	return create(c, entity, params, now)
}

func create(c world.Constraints, entity world.EntityID, params world.ConstraintParams, now time.Time) (*Binding, error) {
	id, err := c.AddConstraint(entity, params)
	if err != nil {
		return nil, fmt.Errorf("%s on %s: %w: %w", params.Kind(), entity, ErrConstraintRejected, err)
	}
	if id == "" {
		return nil, fmt.Errorf("%s on %s: %w", params.Kind(), entity, ErrConstraintRejected)
	}
	return &Binding{
		constraints: c,
		entity:      entity,
		id:          id,
		params:      params,
		expiresAt:   now.Add(params.TTL()),
	}, nil
}

func (b *Binding) Entity() world.EntityID     { return b.entity }
func (b *Binding) ID() world.ConstraintID     { return b.id }
func (b *Binding) Kind() world.ConstraintKind { return b.params.Kind() }
func (b *Binding) ExpiresAt() time.Time       { return b.expiresAt }

// Params returns the parameters last sent to the world.
func (b *Binding) Params() world.ConstraintParams { return b.params }

// UpdateSpring replaces the spring target and extends the lifetime.
func (b *Binding) UpdateSpring(params world.SpringParams, now time.Time) error {
	if b.params.Kind() != world.KindSpring {
		return fmt.Errorf("update %s constraint as spring", b.params.Kind())
	}
	return b.update(params, now)
}

// Refresh resends the current parameters, extending the lifetime.
func (b *Binding) Refresh(now time.Time) error {
	return b.update(b.params, now)
}

// RefreshIfExpiring refreshes only when fewer than threshold remain. It
// reports whether a refresh was sent.
func (b *Binding) RefreshIfExpiring(now time.Time, threshold time.Duration) (bool, error) {
	if b.expiresAt.Sub(now) >= threshold {
		return false, nil
	}
	return true, b.Refresh(now)
}

func (b *Binding) update(params world.ConstraintParams, now time.Time) error {
	if b.deleted {
		return fmt.Errorf("update %s: constraint deleted", b.id)
	}
	if err := b.constraints.UpdateConstraint(b.entity, b.id, params); err != nil {
		return fmt.Errorf("update %s: %w", b.id, err)
	}
	b.params = params
	if exp := now.Add(params.TTL()); exp.After(b.expiresAt) {
		b.expiresAt = exp
	}
	return nil
}

// Delete removes the constraint. Repeated calls, and calls on a nil Binding,
// are no-ops.
func (b *Binding) Delete() error {
	if b == nil || b.deleted {
		return nil
	}
	b.deleted = true
	if err := b.constraints.DeleteConstraint(b.entity, b.id); err != nil {
		return fmt.Errorf("delete %s: %w", b.id, err)
	}
	return nil
}
