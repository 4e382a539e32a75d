package grab

import (
	"math"
	"time"

	"github.com/zeusync/handgrab/internal/core/grab/binding"
	"github.com/zeusync/handgrab/internal/core/grab/hold"
	"github.com/zeusync/handgrab/internal/core/physics"
	"github.com/zeusync/handgrab/internal/core/world"
)

func (c *Controller) search(now time.Time) {
	c.grabbed = ""

	released := c.bumperReleased()
	if c.state == StateSearching {
		released = c.triggerReleased()
	}
	if released {
		c.setState(StateRelease, now)
		return
	}

	hand := c.poses.HandPose(c.hand)
	direction := hand.Rotation.Up()

	if c.pickLimiter.Allow(now) {
		ray := hold.BuildPickRay(hand.Position, direction, c.cfg.PickMaxDistance, c.cfg.PickBackoff)
		if hit := c.world.FindRayIntersection(ray, true); hit.Intersects && c.classifyRayHit(hit, hand.Position, now) {
			return
		}
	}

	// The ray found nothing usable; try what the hand is already touching.
	if c.searchSphere(hand.Position, now) {
		return
	}

	c.visuals.LineOn(c.hand, hand.Position, hand.Position.Add(direction.Scale(c.cfg.LineLength)), false)
	c.visuals.BeamOn(c.hand, hand.Position, hand.Rotation)
}

// classifyRayHit selects hit if it qualifies for any grab or trigger state.
func (c *Controller) classifyRayHit(hit world.RayHit, handPos physics.Vec3, now time.Time) bool {
	props := hit.Properties
	if world.IsHelperName(props.Name) {
		return false
	}
	data := world.LoadGrabbableData(c.world, hit.Entity)
	if !data.Grabbable {
		return false
	}

	distance := handPos.Distance(hit.Point)
	if distance > c.cfg.PickMaxDistance {
		return false
	}

	if distance <= c.cfg.NearPickMaxDistance {
		switch {
		case data.WantsTrigger:
			c.selectEntity(hit.Entity, StateNearTrigger, now)
		case !props.Locked:
			c.selectEntity(hit.Entity, c.nearGrabState(data), now)
		default:
			return false
		}
		return true
	}

	// Never distance grab something another session is already pulling.
	if binding.IsGrabbedByOther(c.world, hit.Entity, c.ownTag) {
		return false
	}
	switch {
	case props.CollisionsWillMove && !props.Locked:
		if c.state == StateEquipSearching {
			if data.SpatialKey == nil {
				return false
			}
			c.selectEntity(hit.Entity, c.equipEntryState(data), now)
			return true
		}
		c.selectEntity(hit.Entity, StateDistanceHolding, now)
		return true
	case data.WantsTrigger:
		c.selectEntity(hit.Entity, StateFarTrigger, now)
		return true
	}
	return false
}

// searchSphere picks the nearest eligible entity around the hand.
func (c *Controller) searchSphere(handPos physics.Vec3, now time.Time) bool {
	var (
		best     world.EntityID
		bestData world.GrabbableData
		bestDist = math.Inf(1)
	)
	for _, id := range c.world.FindEntities(handPos, c.cfg.GrabRadius) {
		data := world.LoadGrabbableData(c.world, id)
		if !data.Grabbable {
			continue
		}
		props, ok := c.world.EntityProperties(id)
		if !ok || !world.IsGrabbableType(props.Type) || world.IsHelperName(props.Name) {
			continue
		}
		if !data.WantsTrigger && (props.Locked || !props.CollisionsWillMove) {
			continue
		}
		if d := props.Position.Distance(handPos); d < bestDist {
			best, bestData, bestDist = id, data, d
		}
	}
	if best == "" {
		return false
	}

	if bestData.WantsTrigger {
		c.selectEntity(best, StateNearTrigger, now)
	} else {
		c.selectEntity(best, c.nearGrabState(bestData), now)
	}
	return true
}

func (c *Controller) nearGrabState(data world.GrabbableData) State {
	if c.state == StateSearching {
		return StateNearGrabbing
	}
	return c.equipEntryState(data)
}

// equipEntryState is Equip, or EquipSpring when springs are enabled and the
// entity declares where it sits in the hand.
func (c *Controller) equipEntryState(data world.GrabbableData) State {
	if c.cfg.EquipMode == EquipSpring && data.SpatialKey != nil {
		return StateEquipSpring
	}
	return StateEquip
}
