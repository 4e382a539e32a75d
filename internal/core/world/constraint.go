package world

import (
	"time"

	"github.com/zeusync/handgrab/internal/core/physics"
)

// ConstraintID identifies a constraint on one entity.
type ConstraintID string

// ConstraintKind is the physical behavior of a constraint.
type ConstraintKind string

const (
	KindSpring ConstraintKind = "spring"
	KindHold   ConstraintKind = "hold"
)

// ConstraintParams is implemented by SpringParams and HoldParams.
type ConstraintParams interface {
	Kind() ConstraintKind
	Tag() string
	TTL() time.Duration
}

// SpringParams pulls an entity toward a target pose.
type SpringParams struct {
	TargetPosition   physics.Vec3
	TargetRotation   physics.Quat
	LinearTimeScale  float64
	AngularTimeScale float64
	OwnerTag         string
	Lifetime         time.Duration
}

func (SpringParams) Kind() ConstraintKind { return KindSpring }
func (p SpringParams) Tag() string        { return p.OwnerTag }
func (p SpringParams) TTL() time.Duration { return p.Lifetime }

// HoldParams attaches an entity rigidly to a hand.
type HoldParams struct {
	Hand                 Hand
	TimeScale            float64
	RelativePosition     physics.Vec3
	RelativeRotation     physics.Quat
	Kinematic            bool
	KinematicSetVelocity bool
	OwnerTag             string
	Lifetime             time.Duration
}

func (HoldParams) Kind() ConstraintKind { return KindHold }
func (p HoldParams) Tag() string        { return p.OwnerTag }
func (p HoldParams) TTL() time.Duration { return p.Lifetime }

// ConstraintInfo describes an active constraint.
type ConstraintInfo struct {
	ID   ConstraintID
	Kind ConstraintKind
	Tag  string
}
