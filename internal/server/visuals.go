package server

import (
	"sync"

	"github.com/zeusync/handgrab/internal/core/grab"
	"github.com/zeusync/handgrab/internal/core/physics"
	"github.com/zeusync/handgrab/internal/core/world"
)

var _ grab.Visuals = (*Visuals)(nil)

type visualState struct {
	lineOn, lineHit, beamOn bool
}

// Visuals forwards pointer feedback to clients. Only changes are sent: a line
// that stays on with the same hit flag is not re-sent every frame.
type Visuals struct {
	hub   *Hub
	mu    sync.Mutex
	state [2]visualState
}

func NewVisuals(hub *Hub) *Visuals {
	return &Visuals{hub: hub}
}

func (v *Visuals) LineOn(hand world.Hand, from, to physics.Vec3, hit bool) {
	if !v.update(hand, func(s *visualState) bool {
		changed := !s.lineOn || s.lineHit != hit
		s.lineOn, s.lineHit = true, hit
		return changed
	}) {
		return
	}
	v.send(VisualEvent{Hand: hand, Kind: VisualLine, On: true, Hit: hit, From: &from, To: &to})
}

func (v *Visuals) LineOff(hand world.Hand) {
	if v.update(hand, func(s *visualState) bool {
		changed := s.lineOn
		s.lineOn, s.lineHit = false, false
		return changed
	}) {
		v.send(VisualEvent{Hand: hand, Kind: VisualLine})
	}
}

func (v *Visuals) BeamOn(hand world.Hand, origin physics.Vec3, _ physics.Quat) {
	if v.update(hand, func(s *visualState) bool {
		changed := !s.beamOn
		s.beamOn = true
		return changed
	}) {
		v.send(VisualEvent{Hand: hand, Kind: VisualBeam, On: true, From: &origin})
	}
}

func (v *Visuals) BeamOff(hand world.Hand) {
	if v.update(hand, func(s *visualState) bool {
		changed := s.beamOn
		s.beamOn = false
		return changed
	}) {
		v.send(VisualEvent{Hand: hand, Kind: VisualBeam})
	}
}

func (v *Visuals) update(hand world.Hand, fn func(*visualState) bool) bool {
	if hand > world.RightHand {
		return false
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return fn(&v.state[hand])
}

func (v *Visuals) send(e VisualEvent) {
	v.hub.Broadcast(Outbound{Type: MsgVisual, Visual: &e})
}
