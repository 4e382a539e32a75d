package grab

import "github.com/zeusync/handgrab/internal/core/world"

// notify calls fn if the behavior attached to id implements T.
func notify[T any](c *Controller, id world.EntityID, fn func(T)) {
	if id == "" {
		return
	}
	if b, ok := c.world.Behavior(id).(T); ok {
		fn(b)
	}
}

func (c *Controller) notifyHand() {
	notify(c, c.grabbed, func(b world.HandSetter) { b.SetHand(c.hand) })
}

func (c *Controller) notifyReleaseGrab() {
	notify(c, c.grabbed, func(b world.GrabReleaser) { b.ReleaseGrab(c.hand) })
}
