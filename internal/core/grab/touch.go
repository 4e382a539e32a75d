package grab

import (
	"sort"
	"time"

	"github.com/zeusync/handgrab/internal/core/world"
)

// touchScan tracks which entities contain the hand and drives the touch
// lifecycle of their behaviors. Runs only while the controller is Off; leaving
// Off stops every touch.
func (c *Controller) touchScan(now time.Time) {
	if !c.touchLimiter.Allow(now) {
		return
	}
	handPos := c.poses.HandPose(c.hand).Position

	touching := make(map[world.EntityID]struct{})
	for _, id := range c.world.FindEntities(handPos, c.cfg.TouchRadius) {
		props, ok := c.world.EntityProperties(id)
		if !ok || world.IsHelperName(props.Name) {
			continue
		}
		if !props.BoundingBox.Contains(handPos) {
			continue
		}
		touching[id] = struct{}{}
		if _, was := c.touched[id]; was {
			notify(c, id, func(b world.Toucher) { b.ContinueTouch(c.hand) })
		} else {
			c.touched[id] = struct{}{}
			notify(c, id, func(b world.Toucher) { b.StartTouch(c.hand) })
		}
	}

	for _, id := range c.sortedTouched() {
		if _, still := touching[id]; !still {
			delete(c.touched, id)
			notify(c, id, func(b world.Toucher) { b.StopTouch(c.hand) })
		}
	}
}

func (c *Controller) stopAllTouches() {
	for _, id := range c.sortedTouched() {
		delete(c.touched, id)
		notify(c, id, func(b world.Toucher) { b.StopTouch(c.hand) })
	}
}

// Touching returns the entities currently touched by this hand.
func (c *Controller) Touching() []world.EntityID {
	return c.sortedTouched()
}

func (c *Controller) sortedTouched() []world.EntityID {
	ids := make([]world.EntityID, 0, len(c.touched))
	for id := range c.touched {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
