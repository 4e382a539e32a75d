package memworld

import (
	"math"
	"time"

	"github.com/zeusync/handgrab/internal/core/observability/log"
	"github.com/zeusync/handgrab/internal/core/physics"
	"github.com/zeusync/handgrab/internal/core/world"
)

// Step advances the world by dt. Expired constraints are dropped first. A
// constrained entity follows its newest constraint: springs close a fraction
// dt/timescale of the gap to their target, holds snap to the hand. Free
// dynamic entities fall under gravity and come to rest on the y=0 floor.
func (w *World) Step(now time.Time, dt time.Duration) {
	seconds := dt.Seconds()
	if seconds <= 0 {
		return
	}
	for i := range w.shards {
		sh := &w.shards[i]
		sh.mx.Lock()
		for _, e := range sh.entities {
			w.dropExpired(e, now)
			w.integrate(e, seconds)
		}
		sh.mx.Unlock()
	}
}

func (w *World) dropExpired(e *entity, now time.Time) {
	kept := e.constraints[:0]
	for _, c := range e.constraints {
		if !c.expiresAt.IsZero() && !now.Before(c.expiresAt) {
			w.logger.Warn("constraint expired",
				log.String("entity", string(e.props.ID)),
				log.String("constraint", string(c.id)),
				log.String("tag", c.params.Tag()),
			)
			continue
		}
		kept = append(kept, c)
	}
	e.constraints = kept
}

func (w *World) integrate(e *entity, dt float64) {
	if n := len(e.constraints); n > 0 {
		switch p := e.constraints[n-1].params.(type) {
		case world.SpringParams:
			e.props.Position = approach(e.props.Position, p.TargetPosition, dt, p.LinearTimeScale)
			e.props.Rotation = slerpToward(e.props.Rotation, p.TargetRotation, dt, p.AngularTimeScale)
			e.props.Velocity = physics.Zero
		case world.HoldParams:
			if w.hands == nil {
				return
			}
			hand := w.hands.HandPose(p.Hand)
			rot := hand.Rotation.Mul(p.RelativeRotation)
			target := hand.Position.Add(rot.Rotate(p.RelativePosition))
			if p.Kinematic {
				e.props.Position, e.props.Rotation = target, rot
				return
			}
			e.props.Position = approach(e.props.Position, target, dt, p.TimeScale)
			e.props.Rotation = slerpToward(e.props.Rotation, rot, dt, p.TimeScale)
		}
		return
	}

	if e.props.Locked || !e.props.CollisionsWillMove {
		return
	}
	e.props.Velocity = e.props.Velocity.Add(e.props.Gravity.Scale(dt))
	e.props.Position = e.props.Position.Add(e.props.Velocity.Scale(dt))
	floor := e.dimensions.Y / 2
	if e.props.Position.Y < floor {
		e.props.Position.Y = floor
		e.props.Velocity = physics.Zero
	}
}

func fraction(dt, timescale float64) float64 {
	if timescale <= 0 {
		return 1
	}
	return math.Min(1, dt/timescale)
}

func approach(from, to physics.Vec3, dt, timescale float64) physics.Vec3 {
	return from.Add(to.Sub(from).Scale(fraction(dt, timescale)))
}

func slerpToward(from, to physics.Quat, dt, timescale float64) physics.Quat {
	step := physics.Delta(from, to).Pow(fraction(dt, timescale))
	return step.Mul(from).Normalize()
}
