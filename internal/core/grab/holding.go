package grab

import (
	"time"

	"github.com/zeusync/handgrab/internal/core/grab/binding"
	"github.com/zeusync/handgrab/internal/core/grab/hold"
	"github.com/zeusync/handgrab/internal/core/observability/log"
	"github.com/zeusync/handgrab/internal/core/physics"
	"github.com/zeusync/handgrab/internal/core/world"
)

func (c *Controller) distanceParams() hold.DistanceParams {
	return hold.DistanceParams{
		RadiusFactor:         c.cfg.RadiusFactor,
		RotationExaggeration: c.cfg.RotationExaggeration,
		MoveWithHead:         c.cfg.MoveWithHead,
	}
}

func (c *Controller) distanceSpring(target physics.Pose) world.SpringParams {
	return world.SpringParams{
		TargetPosition:   target.Position,
		TargetRotation:   target.Rotation,
		LinearTimeScale:  c.cfg.DistanceHoldTimescale,
		AngularTimeScale: c.cfg.DistanceHoldTimescale,
		OwnerTag:         c.ownTag,
		Lifetime:         c.cfg.ConstraintTTL,
	}
}

func (c *Controller) holdParams() world.HoldParams {
	return world.HoldParams{
		Hand:                 c.hand,
		TimeScale:            c.cfg.NearGrabTimescale,
		RelativePosition:     c.offset.Position,
		RelativeRotation:     c.offset.Rotation,
		Kinematic:            c.cfg.NearGrabKinematic,
		KinematicSetVelocity: true,
		Lifetime:             c.cfg.ConstraintTTL,
	}
}

func (c *Controller) distanceHolding(now time.Time) {
	props, ok := c.grabbedProperties(now)
	if !ok {
		return
	}
	hand := c.poses.HandPose(c.hand)

	c.distance = hold.NewDistanceState(props.Pose(), hand, c.poses.Avatar(), now)
	c.radiusScalar = hold.RadiusScalar(props.Position, hand.Position)
	c.visuals.LineOff(c.hand)
	c.visuals.BeamOff(c.hand)

	spring, err := binding.NewSpring(c.world, c.grabbed, c.distanceSpring(c.distance.Target()), now)
	if err != nil {
		c.logger.Warn("distance hold spring rejected", log.String("entity", string(c.grabbed)), log.Error(err))
		c.setState(StateRelease, now)
		return
	}
	c.constraint = spring
	c.activate(props, false)
	c.setState(StateContinueDistanceHolding, now)

	c.notifyHand()
	notify(c, c.grabbed, func(b world.DistantGrabber) { b.StartDistantGrab(c.hand) })
}

func (c *Controller) continueDistanceHolding(now time.Time) {
	if c.triggerReleased() {
		c.notifyReleaseGrab()
		c.setState(StateRelease, now)
		return
	}
	props, ok := c.grabbedProperties(now)
	if !ok {
		return
	}

	// Bumper on an equippable object converts the distance hold into an equip.
	if data := world.LoadGrabbableData(c.world, c.grabbed); c.bumperSqueezed() && data.SpatialKey != nil {
		entity := c.grabbed
		c.setState(StateRelease, now)
		c.release(now)
		c.selectEntity(entity, c.equipEntryState(data), now)
		return
	}

	hand := c.poses.HandPose(c.hand)
	c.visuals.LineOn(c.hand, hand.Position, props.Position, true)

	c.distance = hold.IntegrateDistanceHold(c.distance, hand, c.poses.Avatar(), c.radiusScalar, c.distanceParams(), now)
	notify(c, c.grabbed, func(b world.DistantGrabber) { b.ContinueDistantGrab(c.hand) })

	if err := c.constraint.UpdateSpring(c.distanceSpring(c.distance.Target()), now); err != nil {
		c.constraintLost(now, err)
	}
}

// nearGrabbing is the entry action shared by NearGrabbing and Equip.
func (c *Controller) nearGrabbing(now time.Time) {
	if c.state == StateNearGrabbing && c.triggerReleased() {
		c.notifyReleaseGrab()
		c.setState(StateRelease, now)
		return
	}
	props, ok := c.grabbedProperties(now)
	if !ok {
		return
	}
	c.visuals.LineOff(c.hand)
	c.visuals.BeamOff(c.hand)

	hand := c.poses.HandPose(c.hand)
	data := world.LoadGrabbableData(c.world, c.grabbed)
	if c.state != StateNearGrabbing && data.SpatialKey != nil {
		c.offset = hold.ResolveSpatialOffset(c.hand, data.SpatialKey)
	} else {
		c.offset = hold.ComputeRigidOffset(hand, props.Pose())
	}

	constraint, err := binding.NewHold(c.world, c.grabbed, c.holdParams(), now)
	if err != nil {
		// Stay in the entry state; the next tick tries again.
		c.logger.Warn("hold rejected", log.String("entity", string(c.grabbed)), log.Error(err))
		return
	}
	c.constraint = constraint
	c.activate(props, c.cfg.NearGrabKinematic)
	c.velocity.Reset(hand.Position, now)

	if c.state == StateNearGrabbing {
		c.setState(StateContinueNearGrabbing, now)
	} else {
		notify(c, c.grabbed, func(b world.Equipper) { b.StartEquip(c.hand) })
		c.animator.StartGrasp(c.hand)
		c.setState(StateContinueEquipBumperDown, now)
	}

	c.notifyHand()
	notify(c, c.grabbed, func(b world.NearGrabber) { b.StartNearGrab(c.hand) })
}

// continueNearGrabbing serves ContinueNearGrabbing, ContinueEquipBumperDown
// and ContinueEquip.
func (c *Controller) continueNearGrabbing(now time.Time) {
	switch {
	case c.state == StateContinueNearGrabbing && c.triggerReleased():
		c.notifyReleaseGrab()
		c.setState(StateRelease, now)
		return
	case c.state == StateContinueEquipBumperDown && c.bumperReleased():
		c.setState(StateContinueEquip, now)
		return
	case c.state == StateContinueEquip && c.bumperSqueezed():
		c.setState(StateWaitingForBumperRelease, now)
		return
	case c.state == StateContinueNearGrabbing && c.bumperSqueezed():
		c.setState(StateContinueEquipBumperDown, now)
		notify(c, c.grabbed, func(b world.Equipper) { b.StartEquip(c.hand) })
		c.animator.StartGrasp(c.hand)
		return
	}

	if _, ok := c.grabbedProperties(now); !ok {
		return
	}

	c.velocity.Sample(c.poses.HandPose(c.hand).Position, now)
	notify(c, c.grabbed, func(b world.NearGrabber) { b.ContinueNearGrab(c.hand) })
	if c.state == StateContinueEquipBumperDown {
		notify(c, c.grabbed, func(b world.Equipper) { b.ContinueEquip(c.hand) })
	}

	if _, err := c.constraint.RefreshIfExpiring(now, c.cfg.ConstraintRefresh); err != nil {
		c.constraintLost(now, err)
	}
}

func (c *Controller) waitingForBumperRelease(now time.Time) {
	if !c.bumperReleased() {
		return
	}
	c.notifyReleaseGrab()
	notify(c, c.grabbed, func(b world.Unequipper) { b.Unequip(c.hand) })
	c.animator.EndGrasp(c.hand)
	c.setState(StateRelease, now)
}

// pullTowardEquipPose springs the object to its equip pose, then hands over
// to Equip once it is close enough.
func (c *Controller) pullTowardEquipPose(now time.Time) {
	props, ok := c.grabbedProperties(now)
	if !ok {
		return
	}
	c.visuals.LineOff(c.hand)
	c.visuals.BeamOff(c.hand)

	data := world.LoadGrabbableData(c.world, c.grabbed)
	target := hold.EquipSpringTarget(c.poses.HandPose(c.hand), hold.ResolveSpatialOffset(c.hand, data.SpatialKey))
	params := world.SpringParams{
		TargetPosition:   target.Position,
		TargetRotation:   target.Rotation,
		LinearTimeScale:  c.cfg.EquipSpringTimescale,
		AngularTimeScale: c.cfg.EquipSpringTimescale,
		OwnerTag:         c.ownTag,
		Lifetime:         c.cfg.ConstraintTTL,
	}

	if c.equipSpring == nil {
		spring, err := binding.NewSpring(c.world, c.grabbed, params, now)
		if err != nil {
			c.logger.Warn("equip spring rejected", log.String("entity", string(c.grabbed)), log.Error(err))
			c.setState(StateRelease, now)
			return
		}
		c.equipSpring = spring
	} else if err := c.equipSpring.UpdateSpring(params, now); err != nil {
		c.constraintLost(now, err)
		return
	}

	if hold.EquipSpringSettled(props.Position, target.Position, c.cfg.EquipSpringShutoff) {
		if err := c.equipSpring.Delete(); err != nil {
			c.logger.Warn("delete equip spring failed", log.String("entity", string(c.grabbed)), log.Error(err))
		}
		c.equipSpring = nil
		c.setState(StateEquip, now)
	}
}

// constraintLost releases a grab whose constraint the world no longer accepts,
// typically because it expired while the hand was not updating it.
func (c *Controller) constraintLost(now time.Time, err error) {
	c.logger.Warn("grab constraint lost", log.String("entity", string(c.grabbed)), log.Stringer("state", c.state), log.Error(err))
	c.notifyReleaseGrab()
	if c.state == StateContinueEquipBumperDown || c.state == StateContinueEquip {
		notify(c, c.grabbed, func(b world.Unequipper) { b.Unequip(c.hand) })
		c.animator.EndGrasp(c.hand)
	}
	c.setState(StateRelease, now)
}
