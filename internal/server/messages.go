package server

import (
	"github.com/zeusync/handgrab/internal/core/grab"
	"github.com/zeusync/handgrab/internal/core/grab/hold"
	"github.com/zeusync/handgrab/internal/core/physics"
	"github.com/zeusync/handgrab/internal/core/world"
)

// Inbound message types.
const (
	MsgTrigger = "trigger"
	MsgBumper  = "bumper"
	MsgHand    = "hand"
	MsgAvatar  = "avatar"
	MsgDisable = "disable"
)

// Outbound message types.
const (
	MsgTransition = "transition"
	MsgVisual     = "visual"
	MsgError      = "error"
)

// Inbound is a client input sample. Fields used depend on Type:
// trigger and bumper use Hand and Value, hand uses Hand and Pose, avatar uses
// Avatar, disable uses Message ("left", "right", "both" or "none") and an
// optional Sender that defaults to the server session.
type Inbound struct {
	Type    string           `json:"type"`
	Hand    string           `json:"hand,omitempty"`
	Value   float64          `json:"value,omitempty"`
	Pose    *physics.Pose    `json:"pose,omitempty"`
	Avatar  *hold.AvatarPose `json:"avatar,omitempty"`
	Message string           `json:"message,omitempty"`
	Sender  string           `json:"sender,omitempty"`
}

// Outbound is pushed to every connected client.
type Outbound struct {
	Type       string           `json:"type"`
	Transition *grab.Transition `json:"transition,omitempty"`
	Visual     *VisualEvent     `json:"visual,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// Visual feedback kinds.
const (
	VisualLine = "line"
	VisualBeam = "beam"
)

// VisualEvent reports a pointer line or search beam switching state.
type VisualEvent struct {
	Hand world.Hand    `json:"hand"`
	Kind string        `json:"kind"`
	On   bool          `json:"on"`
	Hit  bool          `json:"hit,omitempty"`
	From *physics.Vec3 `json:"from,omitempty"`
	To   *physics.Vec3 `json:"to,omitempty"`
}
