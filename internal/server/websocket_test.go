package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/handgrab/internal/core/avatar"
	"github.com/zeusync/handgrab/internal/core/events/bus"
	"github.com/zeusync/handgrab/internal/core/grab"
	"github.com/zeusync/handgrab/internal/core/grab/hold"
	"github.com/zeusync/handgrab/internal/core/observability/log"
	"github.com/zeusync/handgrab/internal/core/physics"
	"github.com/zeusync/handgrab/internal/core/world"
	"github.com/zeusync/handgrab/internal/core/world/memworld"
)

const session = "local"

type bridge struct {
	poses  *avatar.Buffer
	bus    bus.EventBus
	sys    *grab.System
	server *Server
	http   *httptest.Server
	url    string
}

func newBridge(t *testing.T, auth Authenticator) *bridge {
	t.Helper()
	logger := log.NewNop()
	b := &bridge{poses: avatar.NewBuffer(), bus: bus.New(logger)}
	hub := NewHub(logger)

	w := memworld.New(memworld.WithLogger(logger), memworld.WithHands(b.poses))
	sys, err := grab.NewSystem(grab.DefaultConfig(), grab.Deps{
		World:    w,
		Poses:    b.poses,
		Visuals:  NewVisuals(hub),
		Animator: b.poses,
		Session:  session,
		Logger:   logger,
	}, b.bus)
	require.NoError(t, err)
	b.sys = sys

	b.server, err = New(Options{Session: session}, Deps{
		Hands:  sys,
		Poses:  b.poses,
		Bus:    b.bus,
		Hub:    hub,
		Auth:   auth,
		Logger: logger,
	})
	require.NoError(t, err)

	b.http = httptest.NewServer(b.server.Handler())
	b.url = "ws" + strings.TrimPrefix(b.http.URL, "http") + "/ws"
	t.Cleanup(func() {
		_ = b.server.Close(context.Background())
		b.http.Close()
	})
	return b
}

func (b *bridge) dial(t *testing.T, query string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(b.url+query, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.Eventually(t, func() bool { return b.server.Hub().Clients() > 0 }, time.Second, 5*time.Millisecond)
	return conn
}

func read(t *testing.T, conn *websocket.Conn) Outbound {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Outbound
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestTokenAuth(t *testing.T) {
	b := newBridge(t, TokenAuth{Token: "supersecrettoken"})

	_, resp, err := websocket.DefaultDialer.Dial(b.url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, _, err = websocket.DefaultDialer.Dial(b.url+"?token=invalid", nil)
	require.Error(t, err)

	conn := b.dial(t, "?token=supersecrettoken")
	assert.NotNil(t, conn)

	header := http.Header{"Authorization": []string{"Bearer supersecrettoken"}}
	conn2, _, err := websocket.DefaultDialer.Dial(b.url, header)
	require.NoError(t, err)
	_ = conn2.Close()
}

func TestInputsReachRuntime(t *testing.T) {
	b := newBridge(t, nil)
	conn := b.dial(t, "")

	right := b.sys.Controller(world.RightHand)
	left := b.sys.Controller(world.LeftHand)

	require.NoError(t, conn.WriteJSON(Inbound{Type: MsgTrigger, Hand: "right", Value: 0.7}))
	require.NoError(t, conn.WriteJSON(Inbound{Type: MsgBumper, Hand: "left", Value: 1}))

	pose := physics.Pose{Position: physics.V(0.1, 1.2, -0.3), Rotation: physics.Identity}
	require.NoError(t, conn.WriteJSON(Inbound{Type: MsgHand, Hand: "right", Pose: &pose}))

	body := hold.AvatarPose{Position: physics.V(1, 0, 0), Rotation: physics.Identity, HeadRotation: physics.Identity}
	require.NoError(t, conn.WriteJSON(Inbound{Type: MsgAvatar, Avatar: &body}))
	require.NoError(t, conn.WriteJSON(Inbound{Type: MsgDisable, Message: "left"}))

	assert.Eventually(t, func() bool {
		return right.RawTrigger() == 0.7 &&
			left.RawBumper() == 1 &&
			b.poses.HandPose(world.RightHand) == pose &&
			b.poses.Avatar() == body &&
			b.sys.Disabled() == grab.DisableLeft
	}, 2*time.Second, 5*time.Millisecond)
}

func TestForeignDisableIgnored(t *testing.T) {
	b := newBridge(t, nil)
	conn := b.dial(t, "")

	require.NoError(t, conn.WriteJSON(Inbound{Type: MsgDisable, Message: "both", Sender: "someone-else"}))
	require.NoError(t, conn.WriteJSON(Inbound{Type: MsgTrigger, Hand: "left", Value: 0.25}))
	require.Eventually(t, func() bool {
		return b.sys.Controller(world.LeftHand).RawTrigger() == 0.25
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, grab.DisableNone, b.sys.Disabled())
}

func TestInvalidMessagesGetErrors(t *testing.T) {
	b := newBridge(t, nil)
	conn := b.dial(t, "")

	require.NoError(t, conn.WriteJSON(Inbound{Type: "dance"}))
	msg := read(t, conn)
	assert.Equal(t, MsgError, msg.Type)
	assert.Contains(t, msg.Error, "dance")

	require.NoError(t, conn.WriteJSON(Inbound{Type: MsgTrigger, Hand: "middle", Value: 1}))
	msg = read(t, conn)
	assert.Equal(t, MsgError, msg.Type)
	assert.Contains(t, msg.Error, "middle")

	require.NoError(t, conn.WriteJSON(Inbound{Type: MsgHand, Hand: "left"}))
	msg = read(t, conn)
	assert.Equal(t, MsgError, msg.Type)
}

func TestTransitionsAndVisualsBroadcast(t *testing.T) {
	b := newBridge(t, nil)
	conn := b.dial(t, "")

	b.poses.SetHand(world.RightHand, physics.Pose{Position: physics.V(0, 1, 0), Rotation: physics.Identity}, time.Now())
	b.sys.Controller(world.RightHand).SetTrigger(1)

	now := time.Now()
	require.NoError(t, b.sys.FixedUpdate(now, time.Second/90))
	require.NoError(t, b.sys.FixedUpdate(now.Add(time.Second/90), time.Second/90))
	require.NoError(t, b.sys.FixedUpdate(now.Add(2*time.Second/90), time.Second/90))

	msg := read(t, conn)
	require.Equal(t, MsgTransition, msg.Type)
	require.NotNil(t, msg.Transition)
	assert.Equal(t, world.RightHand, msg.Transition.Hand)
	assert.Equal(t, grab.StateOff, msg.Transition.From)
	assert.Equal(t, grab.StateSearching, msg.Transition.To)

	msg = read(t, conn)
	require.Equal(t, MsgVisual, msg.Type)
	assert.Equal(t, VisualEvent{
		Hand: world.RightHand,
		Kind: VisualLine,
		On:   true,
		From: msg.Visual.From,
		To:   msg.Visual.To,
	}, *msg.Visual)

	msg = read(t, conn)
	require.Equal(t, MsgVisual, msg.Type)
	assert.Equal(t, VisualBeam, msg.Visual.Kind)
	assert.True(t, msg.Visual.On)

	// The third tick repeats the same feedback, which is not re-sent.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	var extra Outbound
	assert.Error(t, conn.ReadJSON(&extra))
}

func TestHealthz(t *testing.T) {
	b := newBridge(t, nil)
	resp, err := http.Get(b.http.URL + "/healthz")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNewRequiresHands(t *testing.T) {
	_, err := New(Options{}, Deps{Logger: log.NewNop()})
	assert.ErrorIs(t, err, ErrMissingHands)
}

func TestRunStopsOnCancel(t *testing.T) {
	logger := log.NewNop()
	w := memworld.New(memworld.WithLogger(logger))
	sys, err := grab.NewSystem(grab.DefaultConfig(), grab.Deps{World: w, Poses: avatar.NewBuffer(), Logger: logger}, nil)
	require.NoError(t, err)
	s, err := New(Options{Addr: "127.0.0.1:0"}, Deps{Hands: sys, Logger: logger})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.ErrorIs(t, s.Run(context.Background()), ErrServerClosed)
}
