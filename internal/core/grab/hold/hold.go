// Package hold contains the pose math behind grabbing: pick rays, hand-relative
// offsets, distance-hold integration and equip spring targets. Everything here is
// a pure function of its inputs.
package hold

import (
	"math"
	"time"

	"github.com/zeusync/handgrab/internal/core/physics"
	"github.com/zeusync/handgrab/internal/core/world"
)

// Offset is an object pose expressed relative to a hand.
type Offset struct {
	Position physics.Vec3
	Rotation physics.Quat
}

// IdentityOffset places the object exactly at the hand.
var IdentityOffset = Offset{Position: physics.Zero, Rotation: physics.Identity}

// AvatarPose is the body the hands belong to.
type AvatarPose struct {
	Position physics.Vec3 `json:"position"`
	Rotation physics.Quat `json:"rotation"`
	// HeadRotation is the camera orientation, used when MoveWithHead is enabled.
	HeadRotation physics.Quat `json:"headRotation"`
}

// BuildPickRay pulls the ray origin back along direction by backoff so that an
// object the hand is already inside of still gets hit.
func BuildPickRay(origin, direction physics.Vec3, maxLength, backoff float64) physics.Ray {
	dir := direction.Normalize()
	return physics.Ray{
		Origin:    origin.Sub(dir.Scale(backoff)),
		Direction: dir,
		Length:    maxLength + backoff,
	}
}

// ComputeRigidOffset captures object relative to hand so that ApplyOffset with
// the same hand pose reproduces object.
func ComputeRigidOffset(hand, object physics.Pose) Offset {
	rot := hand.Rotation.Inverse().Mul(object.Rotation)
	delta := object.Position.Sub(hand.Position)
	pos := hand.Rotation.Mul(rot).Inverse().Rotate(delta)
	return Offset{Position: pos, Rotation: rot}
}

// ApplyOffset is the object pose implied by off for the given hand pose.
func ApplyOffset(hand physics.Pose, off Offset) physics.Pose {
	rot := hand.Rotation.Mul(off.Rotation)
	return physics.Pose{
		Position: hand.Position.Add(rot.Rotate(off.Position)),
		Rotation: rot,
	}
}

// ResolveSpatialOffset picks the hand specific offset, then the generic one,
// then identity. Position and rotation are resolved independently.
func ResolveSpatialOffset(hand world.Hand, d *world.SpatialDescriptor) Offset {
	off := IdentityOffset
	if d == nil {
		return off
	}

	handPos, handRot := d.LeftRelativePosition, d.LeftRelativeRotation
	if hand == world.RightHand {
		handPos, handRot = d.RightRelativePosition, d.RightRelativeRotation
	}

	switch {
	case handPos != nil:
		off.Position = *handPos
	case d.RelativePosition != nil:
		off.Position = *d.RelativePosition
	}
	switch {
	case handRot != nil:
		off.Rotation = *handRot
	case d.RelativeRotation != nil:
		off.Rotation = *d.RelativeRotation
	}
	return off
}

// EquipSpringTarget is where an equipped object should sit for the current hand pose.
func EquipSpringTarget(hand physics.Pose, off Offset) physics.Pose {
	return ApplyOffset(hand, off)
}

// EquipSpringSettled reports whether the object is close enough to switch from
// the spring to the rigid hold.
func EquipSpringSettled(objectPos, target physics.Vec3, shutoff float64) bool {
	return objectPos.Distance(target) < shutoff
}

// RadiusScalar is fixed at the start of a distance hold: ln(d+1), at least 1.
func RadiusScalar(objectPos, handPos physics.Vec3) float64 {
	return math.Max(1, math.Log(objectPos.Distance(handPos)+1))
}

// VelocitySampler tracks hand velocity between consecutive samples.
type VelocitySampler struct {
	position physics.Vec3
	at       time.Time
	velocity physics.Vec3
}

// Reset starts sampling from p at now with zero velocity.
func (s *VelocitySampler) Reset(p physics.Vec3, now time.Time) {
	s.position, s.at, s.velocity = p, now, physics.Zero
}

// Sample records p at now. Samples with no elapsed time keep the previous velocity.
func (s *VelocitySampler) Sample(p physics.Vec3, now time.Time) {
	dt := now.Sub(s.at).Seconds()
	if dt > 0 && !s.at.IsZero() {
		s.velocity = p.Sub(s.position).Scale(1 / dt)
	}
	s.position, s.at = p, now
}

// Velocity is the latest estimate in meters per second.
func (s *VelocitySampler) Velocity() physics.Vec3 { return s.velocity }
