package grab

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/handgrab/internal/core/grab/hold"
	"github.com/zeusync/handgrab/internal/core/physics"
	"github.com/zeusync/handgrab/internal/core/world"
)

func TestTriggerSmoothingConverges(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.ctrl.SetTrigger(0.35)

	prev := 0.0
	for i := 0; i < 40; i++ {
		h.step(1)
		s := h.ctrl.TriggerSmoothed()
		assert.GreaterOrEqual(t, s, prev)
		assert.LessOrEqual(t, s, 0.35)
		prev = s
	}
	assert.InDelta(t, 0.35, prev, 1e-9)
	assert.Equal(t, StateOff, h.ctrl.State(), "a raw value below the on threshold never starts a search")
}

func TestTriggerSmoothingLag(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.ctrl.SetTrigger(0.42)

	h.step(1)
	assert.InDelta(t, 0.378, h.ctrl.TriggerSmoothed(), 1e-9)
	assert.Equal(t, StateOff, h.ctrl.State())

	h.step(1)
	assert.InDelta(t, 0.4158, h.ctrl.TriggerSmoothed(), 1e-9)
	assert.Equal(t, StateSearching, h.ctrl.State())
}

func TestRawInputsClamped(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.ctrl.SetTrigger(3)
	h.ctrl.SetBumper(-1)
	assert.Equal(t, 1.0, h.ctrl.RawTrigger())
	assert.Equal(t, 0.0, h.ctrl.RawBumper())
	h.ctrl.SetTrigger(math.NaN())
	assert.Equal(t, 0.0, h.ctrl.RawTrigger())
}

func TestDistanceHoldEndToEnd(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	crate := h.spawn(dynamic("crate", physics.V(0, 1, -2), 0.2))

	h.ctrl.SetTrigger(0.6)
	h.step(1)
	assert.Equal(t, StateSearching, h.ctrl.State())
	assert.InDelta(t, 0.54, h.ctrl.TriggerSmoothed(), 1e-9)

	h.step(1)
	assert.Equal(t, StateDistanceHolding, h.ctrl.State())
	assert.Equal(t, crate, h.ctrl.Grabbed())

	h.step(1)
	assert.Equal(t, StateContinueDistanceHolding, h.ctrl.State())
	require.NotNil(t, h.ctrl.Constraint())
	assert.Equal(t, []world.ConstraintInfo{{ID: h.ctrl.Constraint().ID(), Kind: world.KindSpring, Tag: "grab-" + session}}, h.world.Constraints(crate))
	assert.Equal(t, 1, h.ledger.RefCount(crate))
	assert.Equal(t, physics.Zero, h.props(crate).Gravity)

	h.step(17)
	assert.Equal(t, StateContinueDistanceHolding, h.ctrl.State())
	assert.Equal(t, 1, h.ledger.RefCount(crate), "holding never takes a second reference")

	h.ctrl.SetTrigger(0.05)
	h.step(1)
	assert.Equal(t, StateOff, h.ctrl.State())
	h.step(4)
	assert.Equal(t, StateOff, h.ctrl.State())

	assert.Empty(t, h.world.Constraints(crate))
	assert.Equal(t, 0, h.ledger.RefCount(crate))
	assert.Equal(t, earthGravity, h.props(crate).Gravity)
	assert.Nil(t, h.ctrl.Constraint())
	assert.Empty(t, h.ctrl.Grabbed())
	assert.EqualValues(t, 1, h.world.Stats().ConstraintDeletes)

	assert.Equal(t, []State{
		StateSearching,
		StateDistanceHolding,
		StateContinueDistanceHolding,
		StateRelease,
		StateOff,
	}, h.states())
}

func TestDistanceHoldMagnifiesHandMotion(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	crate := h.spawn(dynamic("crate", physics.V(0, 1, -2), 0.2))
	b := &recordingBehavior{}
	require.NoError(t, h.world.SetBehavior(crate, b))

	h.ctrl.SetTrigger(0.6)
	h.step(3)
	require.Equal(t, StateContinueDistanceHolding, h.ctrl.State())
	assert.Equal(t, 1, b.count("StartDistantGrab:right"))
	assert.Equal(t, 1, b.count("SetHand:right"))

	moved := handOrigin.Add(physics.V(0.01, 0, 0))
	h.moveHand(physics.Pose{Position: moved, Rotation: pointForward})
	h.step(1)

	scalar := math.Max(1, math.Log(2+1))
	radius := physics.V(0, 1, -2).Distance(moved) * scalar * 3.5
	target := h.ctrl.Constraint().Params().(world.SpringParams).TargetPosition
	assert.InDelta(t, 0.01*radius, target.X, 1e-9)
	assert.InDelta(t, -2, target.Z, 1e-9)
	assert.Equal(t, 1, b.count("ContinueDistantGrab:right"))
	assert.True(t, h.visuals.lastLineHit)
}

func TestNearGrabImpartsReleaseVelocity(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	cup := h.spawn(dynamic("cup", physics.V(0, 1, -0.1), 0.1))

	h.ctrl.SetTrigger(0.8)
	h.step(2)
	require.Equal(t, StateNearGrabbing, h.ctrl.State())

	h.step(1)
	require.Equal(t, StateContinueNearGrabbing, h.ctrl.State())
	assert.Equal(t, 1, h.ledger.RefCount(cup))
	assert.False(t, h.props(cup).CollisionsWillMove, "held objects are kinematic")

	params := h.ctrl.Constraint().Params().(world.HoldParams)
	assert.Equal(t, world.RightHand, params.Hand)
	assert.True(t, params.Kinematic)
	held := hold.ApplyOffset(physics.Pose{Position: handOrigin, Rotation: pointForward}, hold.Offset{
		Position: params.RelativePosition,
		Rotation: params.RelativeRotation,
	})
	assert.True(t, held.Position.ApproxEqual(physics.V(0, 1, -0.1), 1e-9))

	pos := handOrigin
	for i := 0; i < 3; i++ {
		pos = pos.Add(physics.V(0.01, 0, 0))
		h.moveHand(physics.Pose{Position: pos, Rotation: pointForward})
		h.step(1)
	}

	h.ctrl.SetTrigger(0)
	h.step(1)
	require.Equal(t, StateOff, h.ctrl.State())

	props := h.props(cup)
	assert.InDelta(t, 0.9*1.5, props.Velocity.X, 1e-4)
	assert.True(t, props.CollisionsWillMove)
	assert.Equal(t, earthGravity, props.Gravity)
	assert.Equal(t, 0, h.ledger.RefCount(cup))
}

func TestEquipWithBumper(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	rel := physics.V(0, 0.05, 0)
	b := h.spawnBehavior(withGrabbable(dynamic("sword", physics.V(0, 1, -0.1), 0.1), world.GrabbableData{
		Grabbable:  true,
		SpatialKey: &world.SpatialDescriptor{RightRelativePosition: &rel},
	}))

	h.ctrl.SetBumper(1)
	h.step(1)
	assert.Equal(t, StateEquipSearching, h.ctrl.State())
	h.step(1)
	assert.Equal(t, StateEquip, h.ctrl.State())
	h.step(1)
	assert.Equal(t, StateContinueEquipBumperDown, h.ctrl.State())
	assert.True(t, h.poses.Grasping(world.RightHand))
	assert.Equal(t, 1, b.count("StartEquip:right"))
	assert.Equal(t, 1, b.count("StartNearGrab:right"))

	params := h.ctrl.Constraint().Params().(world.HoldParams)
	assert.Equal(t, rel, params.RelativePosition)
	assert.Equal(t, physics.Identity, params.RelativeRotation)

	h.step(1)
	assert.Equal(t, 1, b.count("ContinueEquip:right"))

	h.ctrl.SetBumper(0)
	h.step(1)
	assert.Equal(t, StateContinueEquip, h.ctrl.State())
	h.step(10)
	assert.Equal(t, StateContinueEquip, h.ctrl.State(), "equip persists without any input")

	h.ctrl.SetBumper(1)
	h.step(1)
	assert.Equal(t, StateWaitingForBumperRelease, h.ctrl.State())
	h.step(3)
	assert.Equal(t, StateWaitingForBumperRelease, h.ctrl.State())

	h.ctrl.SetBumper(0)
	h.step(1)
	assert.Equal(t, StateOff, h.ctrl.State())
	assert.Equal(t, 1, b.count("Unequip:right"))
	assert.Equal(t, 1, b.count("ReleaseGrab:right"))
	assert.False(t, h.poses.Grasping(world.RightHand))
	assert.Empty(t, h.world.Constraints("sword"))
}

func TestNearGrabPromotedToEquip(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	b := h.spawnBehavior(dynamic("cup", physics.V(0, 1, -0.1), 0.1))

	h.ctrl.SetTrigger(1)
	h.step(3)
	require.Equal(t, StateContinueNearGrabbing, h.ctrl.State())

	h.ctrl.SetBumper(1)
	h.step(1)
	assert.Equal(t, StateContinueEquipBumperDown, h.ctrl.State())
	assert.Equal(t, 1, b.count("StartEquip:right"))

	h.ctrl.SetBumper(0)
	h.ctrl.SetTrigger(0)
	h.step(5)
	assert.Equal(t, StateContinueEquip, h.ctrl.State(), "trigger release does not drop an equipped object")
}

func TestDistanceHoldConvertsToEquip(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	rel := physics.V(0, 0.1, 0)
	crate := h.spawn(withGrabbable(dynamic("crate", physics.V(0, 1, -2), 0.2), world.GrabbableData{
		Grabbable:  true,
		SpatialKey: &world.SpatialDescriptor{RelativePosition: &rel},
	}))

	h.ctrl.SetTrigger(0.6)
	h.step(3)
	require.Equal(t, StateContinueDistanceHolding, h.ctrl.State())

	h.ctrl.SetBumper(1)
	h.step(1)
	assert.Equal(t, StateEquip, h.ctrl.State())
	assert.Equal(t, crate, h.ctrl.Grabbed())
	assert.Empty(t, h.world.Constraints(crate))
	assert.Equal(t, 0, h.ledger.RefCount(crate))

	h.step(1)
	assert.Equal(t, StateContinueEquipBumperDown, h.ctrl.State())
	assert.Equal(t, world.KindHold, h.ctrl.Constraint().Kind())
	assert.Equal(t, 1, h.ledger.RefCount(crate))
}

func TestNearTrigger(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	b := h.spawnBehavior(withGrabbable(static("switch", physics.V(0, 1, -0.1), 0.1), world.GrabbableData{
		Grabbable:    true,
		WantsTrigger: true,
	}))

	h.ctrl.SetTrigger(0.6)
	h.step(2)
	assert.Equal(t, StateNearTrigger, h.ctrl.State())
	h.step(1)
	assert.Equal(t, StateContinueNearTrigger, h.ctrl.State())
	assert.Equal(t, []string{"SetHand:right", "StartNearTrigger:right"}, b.calls)

	h.step(2)
	assert.Equal(t, 2, b.count("ContinueNearTrigger:right"))

	h.ctrl.SetTrigger(0)
	h.step(1)
	assert.Equal(t, StateOff, h.ctrl.State())
	assert.Equal(t, 1, b.count("StopNearTrigger:right"))
	assert.Empty(t, h.world.Constraints("switch"))
	assert.Equal(t, 0, h.ledger.RefCount("switch"), "triggers never touch the ledger")
}

func TestFarTriggerStopsWhenRayLeaves(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	b := h.spawnBehavior(withGrabbable(static("lamp", physics.V(0, 1, -3), 0.2), world.GrabbableData{
		Grabbable:    true,
		WantsTrigger: true,
	}))

	h.ctrl.SetTrigger(0.6)
	h.step(2)
	assert.Equal(t, StateFarTrigger, h.ctrl.State())
	h.step(1)
	assert.Equal(t, StateContinueFarTrigger, h.ctrl.State())
	assert.Equal(t, 1, b.count("StartFarTrigger:right"))

	h.step(30)
	assert.Equal(t, StateContinueFarTrigger, h.ctrl.State(), "re-casts that still hit keep the trigger alive")
	assert.Equal(t, 30, b.count("ContinueFarTrigger:right"))

	h.moveHand(physics.Pose{Position: handOrigin, Rotation: physics.Identity})
	for i := 0; i < 30 && h.ctrl.State() != StateOff; i++ {
		h.step(1)
	}
	assert.Equal(t, StateOff, h.ctrl.State())
	assert.Equal(t, 1, b.count("StopFarTrigger:right"))
	assert.Zero(t, b.count("StopNearTrigger:right"))
}

func TestSphereFallbackPicksNearestEligible(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.spawn(dynamic("far-ball", physics.V(0.02, 1, 0), 0.01))
	h.spawn(dynamic("near-ball", physics.V(0.01, 1, 0), 0.01))

	light := dynamic("light", physics.V(0, 1.008, 0), 0.004)
	light.Type = world.TypeLight
	h.spawn(light)

	anchor := dynamic("anchor", physics.V(0, 0.992, 0), 0.004)
	anchor.Locked = true
	h.spawn(anchor)

	h.ctrl.SetTrigger(0.6)
	h.step(2)
	assert.Equal(t, StateNearGrabbing, h.ctrl.State())
	assert.Equal(t, world.EntityID("near-ball"), h.ctrl.Grabbed())
}

func TestNoTargetShowsSearchVisuals(t *testing.T) {
	h := newHarness(t, DefaultConfig())

	h.ctrl.SetTrigger(0.6)
	h.step(5)
	assert.Equal(t, StateSearching, h.ctrl.State())
	assert.Empty(t, h.ctrl.Grabbed())
	assert.Equal(t, 4, h.visuals.beamOn)
	assert.False(t, h.visuals.lastLineHit)
	assert.EqualValues(t, 1, h.world.Stats().RayCasts, "picks are rate limited")

	h.ctrl.SetTrigger(0)
	h.step(1)
	assert.Equal(t, StateOff, h.ctrl.State())
}

func TestGrabbedByOtherBlocksDistanceHoldOnly(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	crate := h.spawn(dynamic("crate", physics.V(0, 1, -2), 0.2))
	_, err := h.world.AddConstraint(crate, world.SpringParams{TargetRotation: physics.Identity, OwnerTag: "grab-session-b"})
	require.NoError(t, err)

	h.ctrl.SetTrigger(0.6)
	h.step(30)
	assert.Equal(t, StateSearching, h.ctrl.State())
	assert.Len(t, h.world.Constraints(crate), 1)

	// Walk up to it: near range grabs are still allowed.
	h.moveHand(physics.Pose{Position: physics.V(0, 1, -1.85), Rotation: pointForward})
	for i := 0; i < 30 && h.ctrl.State() == StateSearching; i++ {
		h.step(1)
	}
	assert.Equal(t, StateNearGrabbing, h.ctrl.State())
	h.step(1)
	assert.Equal(t, StateContinueNearGrabbing, h.ctrl.State())
	assert.Len(t, h.world.Constraints(crate), 2)
}

func TestReleaseIsIdempotent(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	crate := h.spawn(dynamic("crate", physics.V(0, 1, -2), 0.2))

	h.ctrl.SetTrigger(0.6)
	h.step(3)
	require.Equal(t, StateContinueDistanceHolding, h.ctrl.State())

	h.ctrl.Release(h.now)
	h.ctrl.Release(h.now)
	assert.Equal(t, StateOff, h.ctrl.State())
	assert.EqualValues(t, 1, h.world.Stats().ConstraintDeletes)
	assert.Equal(t, 0, h.ledger.RefCount(crate))
	assert.Equal(t, earthGravity, h.props(crate).Gravity)
	assert.False(t, h.ctrl.Activated())
}

func TestStaleEntityForcesRelease(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	crate := h.spawn(dynamic("crate", physics.V(0, 1, -2), 0.2))

	h.ctrl.SetTrigger(0.6)
	h.step(3)
	require.Equal(t, StateContinueDistanceHolding, h.ctrl.State())

	require.NoError(t, h.world.Remove(crate))
	h.step(1)
	assert.Equal(t, StateOff, h.ctrl.State())
	assert.Nil(t, h.ctrl.Constraint())
	assert.False(t, h.ctrl.Activated())
}

func TestDistanceSpringRejectedFallsBackToOff(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	crate := h.spawn(dynamic("crate", physics.V(0, 1, -2), 0.2))
	h.world.RejectConstraints(world.KindSpring, errors.New("no physics body"))

	h.ctrl.SetTrigger(0.6)
	h.step(3)
	assert.Equal(t, StateOff, h.ctrl.State())
	assert.Equal(t, 0, h.ledger.RefCount(crate))
	assert.Equal(t, earthGravity, h.props(crate).Gravity)
}

func TestHoldRejectedRetriesWithoutLeakingReferences(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	cup := h.spawn(dynamic("cup", physics.V(0, 1, -0.1), 0.1))
	h.world.RejectConstraints(world.KindHold, errors.New("busy"))

	h.ctrl.SetTrigger(0.8)
	h.step(6)
	assert.Equal(t, StateNearGrabbing, h.ctrl.State())
	assert.Equal(t, 0, h.ledger.RefCount(cup))

	h.world.RejectConstraints(world.KindHold, nil)
	h.step(1)
	assert.Equal(t, StateContinueNearGrabbing, h.ctrl.State())
	assert.Equal(t, 1, h.ledger.RefCount(cup))
}

func TestExpiredDistanceSpringReleases(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	crate := h.spawn(dynamic("crate", physics.V(0, 1, -2), 0.2))
	b := &recordingBehavior{}
	require.NoError(t, h.world.SetBehavior(crate, b))

	h.ctrl.SetTrigger(0.6)
	h.step(3)
	require.Equal(t, StateContinueDistanceHolding, h.ctrl.State())

	// The hand stops updating for longer than the constraint lifetime.
	h.now = h.now.Add(20 * time.Second)
	h.world.Step(h.now, tick)
	require.Empty(t, h.world.Constraints(crate))

	h.step(1)
	assert.Equal(t, StateOff, h.ctrl.State())
	assert.Equal(t, 0, h.ledger.RefCount(crate))
	assert.Equal(t, earthGravity, h.props(crate).Gravity)
	assert.False(t, h.ctrl.Activated())
	assert.Nil(t, h.ctrl.Constraint())
	assert.Equal(t, 1, b.count("ReleaseGrab:right"))
}

func TestExpiredHoldReleases(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	cup := h.spawn(dynamic("cup", physics.V(0, 1, -0.1), 0.1))

	h.ctrl.SetTrigger(0.8)
	h.step(3)
	require.Equal(t, StateContinueNearGrabbing, h.ctrl.State())
	require.False(t, h.props(cup).CollisionsWillMove)

	h.now = h.now.Add(20 * time.Second)
	h.world.Step(h.now, tick)
	require.Empty(t, h.world.Constraints(cup))

	h.step(1)
	assert.Equal(t, StateOff, h.ctrl.State())
	assert.Equal(t, 0, h.ledger.RefCount(cup))
	props := h.props(cup)
	assert.Equal(t, earthGravity, props.Gravity)
	assert.True(t, props.CollisionsWillMove)
}

func TestExpiredEquipSpringReleases(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EquipMode = EquipSpring
	h := newHarness(t, cfg)
	rel := physics.V(0, 0.2, 0)
	sword := h.spawn(withGrabbable(dynamic("sword", physics.V(0, 1, -0.1), 0.1), world.GrabbableData{
		Grabbable:  true,
		SpatialKey: &world.SpatialDescriptor{RelativePosition: &rel},
	}))

	h.ctrl.SetBumper(1)
	h.step(3)
	require.Equal(t, StateEquipSpring, h.ctrl.State())
	require.Len(t, h.world.Constraints(sword), 1)

	h.now = h.now.Add(20 * time.Second)
	h.world.Step(h.now, tick)
	require.Empty(t, h.world.Constraints(sword))

	h.step(1)
	assert.Equal(t, StateOff, h.ctrl.State())
	assert.Contains(t, h.states(), StateRelease)
	assert.Empty(t, h.world.Constraints(sword))
}

func TestTwoHandsShareLedger(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	cup := h.spawn(dynamic("cup", physics.V(0, 1, -0.1), 0.1))
	left := h.addController(world.LeftHand, DefaultConfig(), session, h.ledger, physics.Pose{Position: handOrigin, Rotation: pointForward})

	h.ctrl.SetTrigger(0.8)
	left.SetTrigger(0.8)
	h.stepAll(3, left)
	require.Equal(t, StateContinueNearGrabbing, h.ctrl.State())
	require.Equal(t, StateContinueNearGrabbing, left.State())
	assert.Equal(t, 2, h.ledger.RefCount(cup))
	assert.Len(t, h.world.Constraints(cup), 2)

	left.SetTrigger(0)
	h.stepAll(1, left)
	require.Equal(t, StateOff, left.State())
	assert.Equal(t, 1, h.ledger.RefCount(cup))
	assert.Equal(t, physics.Zero, h.props(cup).Gravity, "overrides stay while one hand holds")
	assert.False(t, h.props(cup).CollisionsWillMove)

	h.ctrl.SetTrigger(0)
	h.stepAll(1, left)
	require.Equal(t, StateOff, h.ctrl.State())
	assert.Equal(t, 0, h.ledger.RefCount(cup))
	props := h.props(cup)
	assert.Equal(t, earthGravity, props.Gravity)
	assert.True(t, props.CollisionsWillMove)
	assert.Empty(t, h.world.Constraints(cup))
}

func TestDistanceHoldExclusiveAcrossSessions(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	crate := h.spawn(dynamic("crate", physics.V(0, 1, -2), 0.2))
	other := h.addController(world.LeftHand, DefaultConfig(), "session-b", nil, physics.Pose{Position: handOrigin, Rotation: pointForward})

	h.ctrl.SetTrigger(0.6)
	h.stepAll(3, other)
	require.Equal(t, StateContinueDistanceHolding, h.ctrl.State())

	other.SetTrigger(0.6)
	h.stepAll(30, other)
	assert.Equal(t, StateSearching, other.State(), "the crate is pulled by session-a")
	assert.Len(t, h.world.Constraints(crate), 1)

	h.ctrl.SetTrigger(0)
	for i := 0; i < 30 && other.State() == StateSearching; i++ {
		h.stepAll(1, other)
	}
	assert.Equal(t, StateOff, h.ctrl.State())
	assert.Equal(t, StateDistanceHolding, other.State())
	h.stepAll(1, other)
	require.Equal(t, StateContinueDistanceHolding, other.State())
	assert.Equal(t, []world.ConstraintInfo{{ID: other.Constraint().ID(), Kind: world.KindSpring, Tag: "grab-session-b"}}, h.world.Constraints(crate))
}

func TestNearHoldDoesNotClaimEntity(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	crate := h.spawn(dynamic("crate", physics.V(0, 1, -2), 0.2))
	// A non-kinematic hold keeps the crate dynamic, so only the tag could block.
	cfg := DefaultConfig()
	cfg.NearGrabKinematic = false
	other := h.addController(world.LeftHand, cfg, "session-b", nil, physics.Pose{Position: physics.V(0, 1, -1.85), Rotation: pointForward})

	other.SetTrigger(0.8)
	h.stepAll(3, other)
	require.Equal(t, StateContinueNearGrabbing, other.State())
	infos := h.world.Constraints(crate)
	require.Len(t, infos, 1)
	assert.Equal(t, world.KindHold, infos[0].Kind)
	assert.Empty(t, infos[0].Tag)

	h.ctrl.SetTrigger(0.6)
	h.stepAll(3, other)
	assert.Equal(t, StateContinueDistanceHolding, h.ctrl.State())
}

func TestLeavingOffStopsTouches(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TouchScansPerSecond = 0
	h := newHarness(t, cfg)
	b := h.spawnBehavior(withGrabbable(static("button", handOrigin, 0.1), world.GrabbableData{Grabbable: false}))

	h.step(1)
	require.Equal(t, []string{"StartTouch:right"}, b.calls)

	h.ctrl.SetTrigger(0.8)
	h.step(1)
	require.Equal(t, StateSearching, h.ctrl.State())
	assert.Equal(t, []string{"StartTouch:right", "StopTouch:right"}, b.calls)
	assert.Empty(t, h.ctrl.Touching())

	h.step(2)
	assert.Equal(t, StateSearching, h.ctrl.State(), "the button is not grabbable")
	assert.Len(t, b.calls, 2)

	h.ctrl.SetTrigger(0)
	h.step(2)
	assert.Equal(t, StateOff, h.ctrl.State())
	assert.Equal(t, []string{"StartTouch:right", "StopTouch:right", "StartTouch:right"}, b.calls)
}

func TestEquipSpringPullsThenHolds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EquipMode = EquipSpring
	h := newHarness(t, cfg)
	rel := physics.V(0, 0.2, 0)
	sword := h.spawn(withGrabbable(dynamic("sword", physics.V(0, 1, -0.1), 0.1), world.GrabbableData{
		Grabbable:  true,
		SpatialKey: &world.SpatialDescriptor{RelativePosition: &rel},
	}))

	h.ctrl.SetBumper(1)
	h.step(2)
	require.Equal(t, StateEquipSpring, h.ctrl.State())

	h.step(1)
	assert.Equal(t, StateEquipSpring, h.ctrl.State())
	require.Len(t, h.world.Constraints(sword), 1)
	assert.Equal(t, world.KindSpring, h.world.Constraints(sword)[0].Kind)

	for i := 0; i < 40 && h.ctrl.State() == StateEquipSpring; i++ {
		h.world.Step(h.now, 100*tick)
		h.step(1)
	}
	assert.Equal(t, StateEquip, h.ctrl.State())
	assert.Empty(t, h.world.Constraints(sword))

	h.step(1)
	assert.Equal(t, StateContinueEquipBumperDown, h.ctrl.State())
	infos := h.world.Constraints(sword)
	require.Len(t, infos, 1)
	assert.Equal(t, world.KindHold, infos[0].Kind)
}

func TestEquipSpringRejectedAbortsToOff(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EquipMode = EquipSpring
	h := newHarness(t, cfg)
	rel := physics.V(0, 0.2, 0)
	h.spawn(withGrabbable(dynamic("sword", physics.V(0, 1, -0.1), 0.1), world.GrabbableData{
		Grabbable:  true,
		SpatialKey: &world.SpatialDescriptor{RelativePosition: &rel},
	}))
	h.world.RejectConstraints(world.KindSpring, errors.New("nope"))

	h.ctrl.SetBumper(1)
	h.step(3)
	assert.Equal(t, StateOff, h.ctrl.State())
	assert.Contains(t, h.states(), StateRelease)
	assert.Empty(t, h.world.Constraints("sword"))

	// The bumper is still down, so the next tick searches again.
	h.step(1)
	assert.Equal(t, StateEquipSearching, h.ctrl.State())
}

func TestTouchLifecycle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TouchScansPerSecond = 0
	h := newHarness(t, cfg)
	b := h.spawnBehavior(static("button", handOrigin, 0.1))

	h.step(3)
	assert.Equal(t, []string{"StartTouch:right", "ContinueTouch:right", "ContinueTouch:right"}, b.calls)
	assert.Equal(t, []world.EntityID{"button"}, h.ctrl.Touching())

	h.moveHand(physics.Pose{Position: physics.V(0, 2, 0), Rotation: pointForward})
	h.step(2)
	assert.Equal(t, 1, b.count("StopTouch:right"))
	assert.Empty(t, h.ctrl.Touching())
}

func TestCleanupStopsTouchesAndReleases(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TouchScansPerSecond = 0
	h := newHarness(t, cfg)
	b := h.spawnBehavior(static("button", handOrigin, 0.1))

	h.step(1)
	require.Equal(t, 1, b.count("StartTouch:right"))

	h.ctrl.Cleanup(h.now)
	assert.Equal(t, 1, b.count("StopTouch:right"))
	assert.Equal(t, StateOff, h.ctrl.State())
	assert.False(t, h.poses.Grasping(world.RightHand))
}

func TestStateNames(t *testing.T) {
	assert.Equal(t, "continue_distance_holding", StateContinueDistanceHolding.String())
	assert.Equal(t, "equip_spring", StateEquipSpring.String())
	assert.Equal(t, "unknown", State(200).String())
	assert.True(t, StateContinueEquip.Holding())
	assert.False(t, StateSearching.Holding())
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.TriggerOff = 0.5
	cfg.EquipMode = "magnet"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "triggerOff")
	assert.Contains(t, err.Error(), "magnet")
}
