// Package avatar buffers the latest body, head and hand poses reported by the
// input bridge so the frame loop can read a consistent snapshot.
package avatar

import (
	"sync"
	"time"

	"github.com/zeusync/handgrab/internal/core/grab/hold"
	"github.com/zeusync/handgrab/internal/core/physics"
	"github.com/zeusync/handgrab/internal/core/world"
)

// Default hand placement relative to the avatar origin, roughly at the hips.
var (
	defaultLeftHand  = physics.V(-0.2, 1.0, -0.3)
	defaultRightHand = physics.V(0.2, 1.0, -0.3)
)

type Buffer struct {
	mx       sync.RWMutex
	body     hold.AvatarPose
	hands    [2]physics.Pose
	grasping [2]bool
	updated  time.Time
}

func NewBuffer() *Buffer {
	return &Buffer{
		body: hold.AvatarPose{Rotation: physics.Identity, HeadRotation: physics.Identity},
		hands: [2]physics.Pose{
			world.LeftHand:  {Position: defaultLeftHand, Rotation: physics.Identity},
			world.RightHand: {Position: defaultRightHand, Rotation: physics.Identity},
		},
	}
}

// SetAvatar records the body position, body rotation and head rotation.
func (b *Buffer) SetAvatar(p hold.AvatarPose, at time.Time) {
	b.mx.Lock()
	defer b.mx.Unlock()
	b.body = p
	b.updated = at
}

// SetHand records a world space hand pose.
func (b *Buffer) SetHand(hand world.Hand, p physics.Pose, at time.Time) {
	if hand > world.RightHand {
		return
	}
	b.mx.Lock()
	defer b.mx.Unlock()
	b.hands[hand] = p
	b.updated = at
}

func (b *Buffer) HandPose(hand world.Hand) physics.Pose {
	if hand > world.RightHand {
		return physics.Pose{Rotation: physics.Identity}
	}
	b.mx.RLock()
	defer b.mx.RUnlock()
	return b.hands[hand]
}

func (b *Buffer) Avatar() hold.AvatarPose {
	b.mx.RLock()
	defer b.mx.RUnlock()
	return b.body
}

// Updated is the time of the last pose write.
func (b *Buffer) Updated() time.Time {
	b.mx.RLock()
	defer b.mx.RUnlock()
	return b.updated
}

// StartGrasp and EndGrasp record the grasp animation override for a hand.
func (b *Buffer) StartGrasp(hand world.Hand) { b.setGrasp(hand, true) }
func (b *Buffer) EndGrasp(hand world.Hand)   { b.setGrasp(hand, false) }

func (b *Buffer) Grasping(hand world.Hand) bool {
	if hand > world.RightHand {
		return false
	}
	b.mx.RLock()
	defer b.mx.RUnlock()
	return b.grasping[hand]
}

func (b *Buffer) setGrasp(hand world.Hand, on bool) {
	if hand > world.RightHand {
		return
	}
	b.mx.Lock()
	defer b.mx.Unlock()
	b.grasping[hand] = on
}
