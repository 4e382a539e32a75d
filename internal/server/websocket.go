// Package server bridges websocket clients to the grab runtime: clients stream
// trigger, bumper and pose samples in and receive grab transitions and pointer
// feedback out.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zeusync/handgrab/internal/core/avatar"
	"github.com/zeusync/handgrab/internal/core/events/bus"
	"github.com/zeusync/handgrab/internal/core/grab"
	"github.com/zeusync/handgrab/internal/core/observability/log"
	"github.com/zeusync/handgrab/internal/core/world"
)

const (
	writeWait       = 5 * time.Second
	shutdownTimeout = 5 * time.Second
	maxMessageSize  = 64 * 1024
)

// Hands exposes the per-hand controllers that receive raw input.
type Hands interface {
	Controller(hand world.Hand) *grab.Controller
}

type Options struct {
	Addr string
	// Session is the sender recorded on disable messages that carry none.
	Session string
}

type Deps struct {
	Hands  Hands
	Poses  *avatar.Buffer
	Bus    bus.EventBus
	Hub    *Hub
	Auth   Authenticator
	Logger log.Log
}

type Server struct {
	opts     Options
	hands    Hands
	poses    *avatar.Buffer
	bus      bus.EventBus
	hub      *Hub
	auth     Authenticator
	logger   log.Log
	upgrader websocket.Upgrader
	sub      bus.Subscription

	mu      sync.Mutex
	httpSrv *http.Server
	closed  bool
	wg      sync.WaitGroup
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

func New(opts Options, deps Deps) (*Server, error) {
	if deps.Hands == nil {
		return nil, ErrMissingHands
	}
	if deps.Poses == nil {
		deps.Poses = avatar.NewBuffer()
	}
	if deps.Logger == nil {
		deps.Logger = log.Provide()
	}
	if deps.Hub == nil {
		deps.Hub = NewHub(deps.Logger)
	}
	if deps.Auth == nil {
		deps.Auth = TokenAuth{}
	}

	s := &Server{
		opts:   opts,
		hands:  deps.Hands,
		poses:  deps.Poses,
		bus:    deps.Bus,
		hub:    deps.Hub,
		auth:   deps.Auth,
		logger: deps.Logger.With(log.String("component", "server")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}

	if s.bus != nil {
		sub, err := s.bus.SubscribeTopic(grab.TransitionTopic, grab.TransitionEventType, s.forwardTransition)
		if err != nil {
			return nil, fmt.Errorf("subscribe transitions: %w", err)
		}
		s.sub = sub
	}
	return s, nil
}

// Handler serves the websocket endpoint at /ws and a liveness probe at /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func (s *Server) Hub() *Hub { return s.hub }

// Run listens on Options.Addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrServerClosed
	}
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("listen %s: %w", s.opts.Addr, err)
	}
	s.httpSrv = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	srv := s.httpSrv
	s.mu.Unlock()

	s.logger.Info("input bridge listening", log.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err = <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.Close(shutdownCtx)
	}
}

// Close stops the HTTP server, disconnects all clients and drops the bus
// subscription.
func (s *Server) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	srv := s.httpSrv
	s.mu.Unlock()

	var errs []error
	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	s.hub.closeAll()
	s.wg.Wait()
	if s.bus != nil {
		if err := s.bus.Unsubscribe(s.sub); err != nil {
			errs = append(errs, err)
		}
	}
	s.logger.Info("input bridge stopped")
	return errors.Join(errs...)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Authenticate(r); err != nil {
		s.logger.Debug("connection refused", log.String("remote", r.RemoteAddr), log.Error(err))
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", log.String("remote", r.RemoteAddr), log.Error(err))
		return
	}
	conn.SetReadLimit(maxMessageSize)

	c := &client{id: uuid.NewString(), conn: conn, send: make(chan []byte, defaultSendBuffer)}
	s.hub.add(c)
	s.logger.Info("client connected", log.String("client", c.id), log.String("remote", r.RemoteAddr))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.writePump(c)
	}()
	s.readPump(c)
}

func (s *Server) readPump(c *client) {
	defer func() {
		s.hub.remove(c)
		_ = c.conn.Close()
		s.logger.Info("client disconnected", log.String("client", c.id))
	}()

	for {
		var msg Inbound
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("read failed", log.String("client", c.id), log.Error(err))
			}
			return
		}
		if err := s.apply(msg); err != nil {
			s.logger.Debug("rejected message", log.String("client", c.id), log.String("type", msg.Type), log.Error(err))
			s.reply(c, Outbound{Type: MsgError, Error: err.Error()})
		}
	}
}

func (s *Server) writePump(c *client) {
	for raw := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
			s.logger.Debug("write failed", log.String("client", c.id), log.Error(err))
			_ = c.conn.Close()
			// Keep draining until readPump unregisters the client.
			for range c.send {
			}
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

func (s *Server) reply(c *client, msg Outbound) {
	s.hub.sendTo(c, msg)
}

// apply routes one input sample into the runtime.
func (s *Server) apply(msg Inbound) error {
	switch msg.Type {
	case MsgTrigger, MsgBumper:
		ctrl, err := s.controller(msg.Hand)
		if err != nil {
			return err
		}
		if msg.Type == MsgTrigger {
			ctrl.SetTrigger(msg.Value)
		} else {
			ctrl.SetBumper(msg.Value)
		}
	case MsgHand:
		hand, err := world.ParseHand(msg.Hand)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidMessage, err)
		}
		if msg.Pose == nil {
			return fmt.Errorf("%w: hand message without pose", ErrInvalidMessage)
		}
		s.poses.SetHand(hand, *msg.Pose, time.Now())
	case MsgAvatar:
		if msg.Avatar == nil {
			return fmt.Errorf("%w: avatar message without avatar", ErrInvalidMessage)
		}
		s.poses.SetAvatar(*msg.Avatar, time.Now())
	case MsgDisable:
		if s.bus == nil {
			return fmt.Errorf("%w: no event bus", ErrInvalidMessage)
		}
		sender := msg.Sender
		if sender == "" {
			sender = s.opts.Session
		}
		event := bus.NewEvent(grab.DisablerEventType, sender, msg.Message, nil)
		if err := s.bus.PublishToTopic(grab.DisablerTopic, event); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidMessage, msg.Type)
	}
	return nil
}

func (s *Server) controller(name string) (*grab.Controller, error) {
	hand, err := world.ParseHand(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	return s.hands.Controller(hand), nil
}

func (s *Server) forwardTransition(e bus.Event) error {
	t, ok := e.Data().(grab.Transition)
	if !ok {
		return nil
	}
	s.hub.Broadcast(Outbound{Type: MsgTransition, Transition: &t})
	return nil
}
