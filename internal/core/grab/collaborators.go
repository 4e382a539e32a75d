package grab

import (
	"github.com/zeusync/handgrab/internal/core/grab/hold"
	"github.com/zeusync/handgrab/internal/core/physics"
	"github.com/zeusync/handgrab/internal/core/world"
)

// PoseSource reports the current world space poses of the avatar and its hands.
type PoseSource interface {
	HandPose(hand world.Hand) physics.Pose
	Avatar() hold.AvatarPose
}

// Visuals renders targeting feedback. Calls are fire and forget.
type Visuals interface {
	// LineOn shows or moves the targeting line; hit selects the "on target" look.
	LineOn(hand world.Hand, from, to physics.Vec3, hit bool)
	LineOff(hand world.Hand)
	// BeamOn shows the search beam pointing along the hand.
	BeamOn(hand world.Hand, origin physics.Vec3, rotation physics.Quat)
	BeamOff(hand world.Hand)
}

// Animator overrides the hand animation while an object is equipped.
type Animator interface {
	StartGrasp(hand world.Hand)
	EndGrasp(hand world.Hand)
}

type NopVisuals struct{}

func (NopVisuals) LineOn(world.Hand, physics.Vec3, physics.Vec3, bool) {}
func (NopVisuals) LineOff(world.Hand)                                  {}
func (NopVisuals) BeamOn(world.Hand, physics.Vec3, physics.Quat)       {}
func (NopVisuals) BeamOff(world.Hand)                                  {}

type NopAnimator struct{}

func (NopAnimator) StartGrasp(world.Hand) {}
func (NopAnimator) EndGrasp(world.Hand)   {}
