package grab

import (
	"time"

	"github.com/zeusync/handgrab/internal/core/grab/hold"
	"github.com/zeusync/handgrab/internal/core/world"
)

func (c *Controller) nearTrigger(now time.Time) {
	if c.triggerReleased() {
		notify(c, c.grabbed, func(b world.NearTriggerer) { b.StopNearTrigger(c.hand) })
		c.setState(StateRelease, now)
		return
	}
	if _, ok := c.grabbedProperties(now); !ok {
		return
	}
	c.notifyHand()
	notify(c, c.grabbed, func(b world.NearTriggerer) { b.StartNearTrigger(c.hand) })
	c.setState(StateContinueNearTrigger, now)
}

func (c *Controller) continueNearTrigger(now time.Time) {
	if c.triggerReleased() {
		notify(c, c.grabbed, func(b world.NearTriggerer) { b.StopNearTrigger(c.hand) })
		c.setState(StateRelease, now)
		return
	}
	if _, ok := c.grabbedProperties(now); !ok {
		return
	}
	notify(c, c.grabbed, func(b world.NearTriggerer) { b.ContinueNearTrigger(c.hand) })
}

func (c *Controller) farTrigger(now time.Time) {
	if c.triggerReleased() {
		c.stopFarTrigger(now)
		return
	}
	if _, ok := c.grabbedProperties(now); !ok {
		return
	}
	c.notifyHand()
	notify(c, c.grabbed, func(b world.FarTriggerer) { b.StartFarTrigger(c.hand) })
	c.setState(StateContinueFarTrigger, now)
}

// continueFarTrigger keeps the trigger alive while the hand still points at
// the entity, re-checking at the pick rate.
func (c *Controller) continueFarTrigger(now time.Time) {
	if c.triggerReleased() {
		c.stopFarTrigger(now)
		return
	}
	if _, ok := c.grabbedProperties(now); !ok {
		return
	}

	hand := c.poses.HandPose(c.hand)
	direction := hand.Rotation.Up()
	if c.pickLimiter.Allow(now) {
		hit := c.world.FindRayIntersection(hold.BuildPickRay(hand.Position, direction, c.cfg.PickMaxDistance, 0), true)
		if !hit.Intersects || hit.Entity != c.grabbed {
			c.stopFarTrigger(now)
			return
		}
	}

	c.visuals.LineOn(c.hand, hand.Position, hand.Position.Add(direction.Scale(c.cfg.LineLength)), false)
	notify(c, c.grabbed, func(b world.FarTriggerer) { b.ContinueFarTrigger(c.hand) })
}

func (c *Controller) stopFarTrigger(now time.Time) {
	notify(c, c.grabbed, func(b world.FarTriggerer) { b.StopFarTrigger(c.hand) })
	c.setState(StateRelease, now)
}
