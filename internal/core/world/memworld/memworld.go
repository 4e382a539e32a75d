// Package memworld is an in-memory world used by the runtime and by tests.
//
// Entities are spread over xxhash selected shards, each guarded by its own
// RWMutex. Ray casts and sphere queries are brute force over axis aligned
// bounds; Step integrates springs, hand holds and gravity with first order
// updates. It is a reference collaborator, not a physics engine.
package memworld

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/zeusync/handgrab/internal/core/observability/log"
	"github.com/zeusync/handgrab/internal/core/physics"
	"github.com/zeusync/handgrab/internal/core/world"
)

var ErrEntityNotFound = errors.New("entity not found")

var _ world.World = (*World)(nil)

const defaultShardCount = 16

// HandPoses resolves world space hand poses for hold constraints.
type HandPoses interface {
	HandPose(hand world.Hand) physics.Pose
}

// Stats counts calls into the world since creation.
type Stats struct {
	RayCasts          uint64
	SphereQueries     uint64
	Edits             uint64
	ConstraintAdds    uint64
	ConstraintUpdates uint64
	ConstraintDeletes uint64
}

type constraint struct {
	id        world.ConstraintID
	params    world.ConstraintParams
	expiresAt time.Time // zero = never
}

type entity struct {
	props       world.Properties
	dimensions  physics.Vec3
	data        map[string]json.RawMessage
	constraints []*constraint
	behavior    any
}

func (e *entity) snapshot() world.Properties {
	p := e.props
	p.BoundingBox = physics.BoxAround(p.Position, e.dimensions)
	return p
}

type shard struct {
	mx       sync.RWMutex
	entities map[world.EntityID]*entity
}

type World struct {
	shards []shard
	count  uint64
	clock  func() time.Time
	hands  HandPoses
	logger log.Log

	rejectMx sync.RWMutex
	reject   map[world.ConstraintKind]error

	rayCasts          atomic.Uint64
	sphereQueries     atomic.Uint64
	edits             atomic.Uint64
	constraintAdds    atomic.Uint64
	constraintUpdates atomic.Uint64
	constraintDeletes atomic.Uint64
}

type Option func(*World)

// WithShards sets the shard count; values below 1 keep the default.
func WithShards(n int) Option {
	return func(w *World) {
		if n > 0 {
			w.count = uint64(n)
		}
	}
}

// WithClock replaces time.Now for constraint expiry.
func WithClock(clock func() time.Time) Option {
	return func(w *World) { w.clock = clock }
}

// WithHands supplies hand poses for hold constraints.
func WithHands(h HandPoses) Option {
	return func(w *World) { w.hands = h }
}

func WithLogger(l log.Log) Option {
	return func(w *World) { w.logger = l }
}

func New(opts ...Option) *World {
	w := &World{
		count:  defaultShardCount,
		clock:  time.Now,
		logger: log.Provide(),
		reject: make(map[world.ConstraintKind]error),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.shards = make([]shard, w.count)
	for i := range w.shards {
		w.shards[i].entities = make(map[world.EntityID]*entity)
	}
	return w
}

func (w *World) shardFor(id world.EntityID) *shard {
	return &w.shards[xxhash.Sum64String(string(id))%w.count]
}

// read runs fn under the read lock of the shard owning id.
func (w *World) read(id world.EntityID, fn func(*entity)) bool {
	sh := w.shardFor(id)
	sh.mx.RLock()
	defer sh.mx.RUnlock()
	e, ok := sh.entities[id]
	if ok {
		fn(e)
	}
	return ok
}

// write runs fn under the write lock of the shard owning id.
func (w *World) write(id world.EntityID, fn func(*entity) error) error {
	sh := w.shardFor(id)
	sh.mx.Lock()
	defer sh.mx.Unlock()
	e, ok := sh.entities[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrEntityNotFound)
	}
	return fn(e)
}

// each visits every entity under its shard read lock.
func (w *World) each(fn func(*entity)) {
	for i := range w.shards {
		sh := &w.shards[i]
		sh.mx.RLock()
		for _, e := range sh.entities {
			fn(e)
		}
		sh.mx.RUnlock()
	}
}

// Spawn adds an entity. An empty ID is replaced by a random one.
func (w *World) Spawn(spec Entity) (world.EntityID, error) {
	props := spec.Properties
	if props.ID == "" {
		props.ID = world.EntityID(uuid.NewString())
	}
	if props.Type == "" {
		props.Type = world.TypeBox
	}
	if props.Rotation == (physics.Quat{}) {
		props.Rotation = physics.Identity
	}
	dims := spec.Dimensions
	if dims == physics.Zero {
		dims = physics.V(0.1, 0.1, 0.1)
	}

	e := &entity{props: props, dimensions: dims, data: make(map[string]json.RawMessage)}
	if spec.Grabbable != nil {
		raw, err := json.Marshal(spec.Grabbable)
		if err != nil {
			return "", fmt.Errorf("encode grabbable data: %w", err)
		}
		e.data[world.GrabbableDataKey] = raw
	}

	sh := w.shardFor(props.ID)
	sh.mx.Lock()
	defer sh.mx.Unlock()
	if _, exists := sh.entities[props.ID]; exists {
		return "", fmt.Errorf("spawn %s: entity already exists", props.ID)
	}
	sh.entities[props.ID] = e

	w.logger.Debug("entity spawned", log.String("entity", string(props.ID)), log.String("type", string(props.Type)))
	return props.ID, nil
}

// Remove deletes an entity and every constraint on it.
func (w *World) Remove(id world.EntityID) error {
	sh := w.shardFor(id)
	sh.mx.Lock()
	defer sh.mx.Unlock()
	if _, ok := sh.entities[id]; !ok {
		return fmt.Errorf("%s: %w", id, ErrEntityNotFound)
	}
	delete(sh.entities, id)
	return nil
}

// SetPose teleports an entity.
func (w *World) SetPose(id world.EntityID, pose physics.Pose) error {
	return w.write(id, func(e *entity) error {
		e.props.Position = pose.Position
		e.props.Rotation = pose.Rotation
		return nil
	})
}

// SetLocked toggles the locked flag.
func (w *World) SetLocked(id world.EntityID, locked bool) error {
	return w.write(id, func(e *entity) error {
		e.props.Locked = locked
		return nil
	})
}

// SetBehavior attaches a scripted behavior object to an entity.
func (w *World) SetBehavior(id world.EntityID, behavior any) error {
	return w.write(id, func(e *entity) error {
		e.behavior = behavior
		return nil
	})
}

// RejectConstraints makes AddConstraint of kind fail with err until called
// again with a nil error.
func (w *World) RejectConstraints(kind world.ConstraintKind, err error) {
	w.rejectMx.Lock()
	defer w.rejectMx.Unlock()
	if err == nil {
		delete(w.reject, kind)
		return
	}
	w.reject[kind] = err
}

func (w *World) Stats() Stats {
	return Stats{
		RayCasts:          w.rayCasts.Load(),
		SphereQueries:     w.sphereQueries.Load(),
		Edits:             w.edits.Load(),
		ConstraintAdds:    w.constraintAdds.Load(),
		ConstraintUpdates: w.constraintUpdates.Load(),
		ConstraintDeletes: w.constraintDeletes.Load(),
	}
}

// FindRayIntersection returns the nearest entity whose bounds the ray enters,
// solid or not. Bounds are always exact, so precise is ignored.
func (w *World) FindRayIntersection(ray physics.Ray, _ bool) world.RayHit {
	w.rayCasts.Add(1)

	best := world.RayHit{Distance: math.Inf(1)}
	w.each(func(e *entity) {
		props := e.snapshot()
		t, ok := props.BoundingBox.IntersectRay(ray)
		if !ok {
			return
		}
		if t < best.Distance || (t == best.Distance && props.ID < best.Entity) {
			best = world.RayHit{Intersects: true, Entity: props.ID, Distance: t, Point: ray.At(t), Properties: props}
		}
	})
	if !best.Intersects {
		return world.RayHit{}
	}
	return best
}

// FindEntities returns, sorted by id, the entities whose bounds come within
// radius of center.
func (w *World) FindEntities(center physics.Vec3, radius float64) []world.EntityID {
	w.sphereQueries.Add(1)

	var ids []world.EntityID
	w.each(func(e *entity) {
		if e.snapshot().BoundingBox.DistanceTo(center) <= radius {
			ids = append(ids, e.props.ID)
		}
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (w *World) EntityProperties(id world.EntityID) (world.Properties, bool) {
	var props world.Properties
	ok := w.read(id, func(e *entity) { props = e.snapshot() })
	return props, ok
}

func (w *World) EditEntity(id world.EntityID, edit world.PropertyEdit) error {
	w.edits.Add(1)
	return w.write(id, func(e *entity) error {
		if edit.Gravity != nil {
			e.props.Gravity = *edit.Gravity
		}
		if edit.Velocity != nil {
			e.props.Velocity = *edit.Velocity
		}
		if edit.IgnoreForCollisions != nil {
			e.props.IgnoreForCollisions = *edit.IgnoreForCollisions
		}
		if edit.CollisionsWillMove != nil {
			e.props.CollisionsWillMove = *edit.CollisionsWillMove
		}
		return nil
	})
}

func (w *World) CustomData(id world.EntityID, key string) (json.RawMessage, bool) {
	var (
		raw   json.RawMessage
		found bool
	)
	w.read(id, func(e *entity) {
		if v, ok := e.data[key]; ok {
			raw = append(json.RawMessage(nil), v...)
			found = true
		}
	})
	return raw, found
}

func (w *World) SetCustomData(id world.EntityID, key string, value json.RawMessage) error {
	if !json.Valid(value) {
		return fmt.Errorf("custom data %s on %s: invalid json", key, id)
	}
	return w.write(id, func(e *entity) error {
		e.data[key] = append(json.RawMessage(nil), value...)
		return nil
	})
}

func (w *World) DeleteCustomData(id world.EntityID, key string) error {
	return w.write(id, func(e *entity) error {
		delete(e.data, key)
		return nil
	})
}

func (w *World) Behavior(id world.EntityID) any {
	var b any
	w.read(id, func(e *entity) { b = e.behavior })
	return b
}
