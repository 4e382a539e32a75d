package grab

import (
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zeusync/handgrab/internal/core/avatar"
	"github.com/zeusync/handgrab/internal/core/grab/ledger"
	"github.com/zeusync/handgrab/internal/core/observability/log"
	"github.com/zeusync/handgrab/internal/core/physics"
	"github.com/zeusync/handgrab/internal/core/world"
	"github.com/zeusync/handgrab/internal/core/world/memworld"
)

const (
	tick    = time.Second / 90
	session = "session-a"
)

var (
	t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	// pointForward aims the hand's up axis down -Z.
	pointForward = physics.FromAxisAngle(physics.UnitX, -math.Pi/2)
	handOrigin   = physics.V(0, 1, 0)
	earthGravity = physics.V(0, -9.8, 0)
)

type recordingVisuals struct {
	mu                               sync.Mutex
	lineOn, lineOff, beamOn, beamOff int
	lastLineHit                      bool
}

func (v *recordingVisuals) LineOn(_ world.Hand, _, _ physics.Vec3, hit bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.lineOn++
	v.lastLineHit = hit
}

func (v *recordingVisuals) LineOff(world.Hand) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.lineOff++
}

func (v *recordingVisuals) BeamOn(world.Hand, physics.Vec3, physics.Quat) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.beamOn++
}

func (v *recordingVisuals) BeamOff(world.Hand) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.beamOff++
}

// recordingBehavior implements every behavior capability and records calls
// as "Method:hand".
type recordingBehavior struct {
	calls []string
}

func (b *recordingBehavior) rec(method string, hand world.Hand) {
	b.calls = append(b.calls, fmt.Sprintf("%s:%s", method, hand))
}

func (b *recordingBehavior) count(call string) int {
	n := 0
	for _, c := range b.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (b *recordingBehavior) SetHand(h world.Hand)             { b.rec("SetHand", h) }
func (b *recordingBehavior) StartNearGrab(h world.Hand)       { b.rec("StartNearGrab", h) }
func (b *recordingBehavior) ContinueNearGrab(h world.Hand)    { b.rec("ContinueNearGrab", h) }
func (b *recordingBehavior) StartDistantGrab(h world.Hand)    { b.rec("StartDistantGrab", h) }
func (b *recordingBehavior) ContinueDistantGrab(h world.Hand) { b.rec("ContinueDistantGrab", h) }
func (b *recordingBehavior) ReleaseGrab(h world.Hand)         { b.rec("ReleaseGrab", h) }
func (b *recordingBehavior) StartEquip(h world.Hand)          { b.rec("StartEquip", h) }
func (b *recordingBehavior) ContinueEquip(h world.Hand)       { b.rec("ContinueEquip", h) }
func (b *recordingBehavior) Unequip(h world.Hand)             { b.rec("Unequip", h) }
func (b *recordingBehavior) StartNearTrigger(h world.Hand)    { b.rec("StartNearTrigger", h) }
func (b *recordingBehavior) ContinueNearTrigger(h world.Hand) { b.rec("ContinueNearTrigger", h) }
func (b *recordingBehavior) StopNearTrigger(h world.Hand)     { b.rec("StopNearTrigger", h) }
func (b *recordingBehavior) StartFarTrigger(h world.Hand)     { b.rec("StartFarTrigger", h) }
func (b *recordingBehavior) ContinueFarTrigger(h world.Hand)  { b.rec("ContinueFarTrigger", h) }
func (b *recordingBehavior) StopFarTrigger(h world.Hand)      { b.rec("StopFarTrigger", h) }
func (b *recordingBehavior) StartTouch(h world.Hand)          { b.rec("StartTouch", h) }
func (b *recordingBehavior) ContinueTouch(h world.Hand)       { b.rec("ContinueTouch", h) }
func (b *recordingBehavior) StopTouch(h world.Hand)           { b.rec("StopTouch", h) }

type harness struct {
	t           *testing.T
	now         time.Time
	world       *memworld.World
	poses       *avatar.Buffer
	visuals     *recordingVisuals
	ledger      *ledger.Ledger
	ctrl        *Controller
	transitions []Transition
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	require.NoError(t, cfg.Validate())

	h := &harness{t: t, now: t0, poses: avatar.NewBuffer(), visuals: &recordingVisuals{}}
	h.world = memworld.New(
		memworld.WithLogger(log.NewNop()),
		memworld.WithClock(func() time.Time { return h.now }),
		memworld.WithHands(h.poses),
	)
	h.ledger = ledger.New(h.world, session, log.NewNop())
	h.poses.SetHand(world.RightHand, physics.Pose{Position: handOrigin, Rotation: pointForward}, t0)

	h.ctrl = NewController(world.RightHand, cfg, Deps{
		World:    h.world,
		Poses:    h.poses,
		Visuals:  h.visuals,
		Animator: h.poses,
		Ledger:   h.ledger,
		Session:  session,
		Logger:   log.NewNop(),
		OnTransition: func(tr Transition) {
			h.transitions = append(h.transitions, tr)
		},
	})
	return h
}

// step advances the clock by one 90 Hz frame and ticks the controller n times.
func (h *harness) step(n int) {
	for i := 0; i < n; i++ {
		h.now = h.now.Add(tick)
		h.ctrl.Update(h.now)
	}
}

func (h *harness) spawn(e memworld.Entity) world.EntityID {
	h.t.Helper()
	id, err := h.world.Spawn(e)
	require.NoError(h.t, err)
	return id
}

func (h *harness) spawnBehavior(e memworld.Entity) *recordingBehavior {
	h.t.Helper()
	id := h.spawn(e)
	b := &recordingBehavior{}
	require.NoError(h.t, h.world.SetBehavior(id, b))
	return b
}

func (h *harness) moveHand(pose physics.Pose) {
	h.poses.SetHand(world.RightHand, pose, h.now)
}

func (h *harness) props(id world.EntityID) world.Properties {
	h.t.Helper()
	p, ok := h.world.EntityProperties(id)
	require.True(h.t, ok)
	return p
}

func (h *harness) states() []State {
	out := make([]State, 0, len(h.transitions))
	for _, tr := range h.transitions {
		out = append(out, tr.To)
	}
	return out
}

// dynamic is a free moving box under gravity.
func dynamic(id string, pos physics.Vec3, size float64) memworld.Entity {
	return memworld.Entity{
		Properties: world.Properties{
			ID:                 world.EntityID(id),
			Type:               world.TypeBox,
			Position:           pos,
			Gravity:            earthGravity,
			CollisionsWillMove: true,
		},
		Dimensions: physics.V(size, size, size),
	}
}

// static is an immovable box.
func static(id string, pos physics.Vec3, size float64) memworld.Entity {
	e := dynamic(id, pos, size)
	e.Gravity = physics.Zero
	e.CollisionsWillMove = false
	return e
}

func withGrabbable(e memworld.Entity, data world.GrabbableData) memworld.Entity {
	e.Grabbable = &data
	return e
}

// addController builds another controller on the same world and pose buffer.
// A nil ledger gives the controller its own.
func (h *harness) addController(hand world.Hand, cfg Config, sess string, l *ledger.Ledger, pose physics.Pose) *Controller {
	h.poses.SetHand(hand, pose, h.now)
	return NewController(hand, cfg, Deps{
		World:    h.world,
		Poses:    h.poses,
		Animator: h.poses,
		Ledger:   l,
		Session:  sess,
		Logger:   log.NewNop(),
	})
}

// stepAll advances the clock one frame at a time and ticks the harness
// controller followed by others.
func (h *harness) stepAll(n int, others ...*Controller) {
	for i := 0; i < n; i++ {
		h.now = h.now.Add(tick)
		h.ctrl.Update(h.now)
		for _, c := range others {
			c.Update(h.now)
		}
	}
}
