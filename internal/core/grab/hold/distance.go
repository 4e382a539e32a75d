package hold

import (
	"math"
	"time"

	"github.com/zeusync/handgrab/internal/core/physics"
)

// DistanceParams tunes distance-hold exaggeration.
type DistanceParams struct {
	RadiusFactor         float64
	RotationExaggeration float64
	MoveWithHead         bool
}

// DistanceState is the integration state of a distance hold between ticks.
type DistanceState struct {
	ObjectPosition physics.Vec3
	ObjectRotation physics.Quat
	ObjectTime     time.Time

	// HandRelativePosition is the hand position relative to the avatar position.
	HandRelativePosition physics.Vec3
	HandRotation         physics.Quat

	AvatarPosition physics.Vec3
	AvatarRotation physics.Quat
	HeadRotation   physics.Quat
}

// NewDistanceState snapshots the poses at the start of a distance hold.
func NewDistanceState(object, hand physics.Pose, avatar AvatarPose, now time.Time) DistanceState {
	return DistanceState{
		ObjectPosition:       object.Position,
		ObjectRotation:       object.Rotation,
		ObjectTime:           now,
		HandRelativePosition: hand.Position.Sub(avatar.Position),
		HandRotation:         hand.Rotation,
		AvatarPosition:       avatar.Position,
		AvatarRotation:       avatar.Rotation,
		HeadRotation:         avatar.HeadRotation,
	}
}

// Target is the pose the spring should pull toward.
func (s DistanceState) Target() physics.Pose {
	return physics.Pose{Position: s.ObjectPosition, Rotation: s.ObjectRotation}
}

// IntegrateDistanceHold advances prev by one tick of hand and avatar motion.
//
// Hand motion is magnified by max(1, |object-hand| * radiusScalar * RadiusFactor);
// avatar translation and turning carry the object along unmagnified. The hand's
// rotation delta since the last tick is raised to RotationExaggeration and
// applied on top of the object rotation.
func IntegrateDistanceHold(prev DistanceState, hand physics.Pose, avatar AvatarPose, radiusScalar float64, p DistanceParams, now time.Time) DistanceState {
	next := prev

	radius := math.Max(1, prev.ObjectPosition.Distance(hand.Position)*radiusScalar*p.RadiusFactor)

	avatarDeltaPosition := avatar.Position.Sub(prev.AvatarPosition)
	avatarDeltaRotation := physics.Delta(prev.AvatarRotation, avatar.Rotation)

	handToAvatar := hand.Position.Sub(avatar.Position)
	objectToAvatar := prev.ObjectPosition.Sub(avatar.Position)
	handFromTurning := avatarDeltaRotation.Rotate(handToAvatar).Sub(handToAvatar)
	objectFromTurning := avatarDeltaRotation.Rotate(objectToAvatar).Sub(objectToAvatar)

	handMoved := handToAvatar.Sub(prev.HandRelativePosition).Sub(handFromTurning)

	pos := prev.ObjectPosition.
		Add(handMoved.Scale(radius)).
		Add(avatarDeltaPosition).
		Add(objectFromTurning)

	if p.MoveWithHead {
		reach := physics.V(0, 0, objectToAvatar.Length())
		before := prev.HeadRotation.Rotate(reach)
		after := avatar.HeadRotation.Rotate(reach)
		pos = pos.Add(before.Sub(after))
		next.HeadRotation = avatar.HeadRotation
	}

	handChange := physics.Delta(prev.HandRotation, hand.Rotation).Pow(p.RotationExaggeration)

	next.ObjectPosition = pos
	next.ObjectRotation = handChange.Mul(prev.ObjectRotation).Normalize()
	next.ObjectTime = now
	next.HandRelativePosition = handToAvatar
	next.HandRotation = hand.Rotation
	next.AvatarPosition = avatar.Position
	next.AvatarRotation = avatar.Rotation
	return next
}
