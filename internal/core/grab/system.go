package grab

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/zeusync/handgrab/internal/core/events/bus"
	"github.com/zeusync/handgrab/internal/core/grab/ledger"
	"github.com/zeusync/handgrab/internal/core/observability/log"
	"github.com/zeusync/handgrab/internal/core/world"
)

const (
	// DisablerTopic carries "left", "right", "both" or "none" from the local
	// session to suspend controllers.
	DisablerTopic     = "Hifi-Hand-Disabler"
	DisablerEventType = "message"

	TransitionTopic     = "grab"
	TransitionEventType = "grab.transition"
)

var ErrMissingDependency = errors.New("missing dependency")

// DisableMask selects suspended hands.
type DisableMask uint32

const (
	DisableNone  DisableMask = 0
	DisableLeft  DisableMask = 1 << world.LeftHand
	DisableRight DisableMask = 1 << world.RightHand
	DisableBoth              = DisableLeft | DisableRight
)

func ParseDisableMask(s string) (DisableMask, error) {
	switch s {
	case "none":
		return DisableNone, nil
	case "left":
		return DisableLeft, nil
	case "right":
		return DisableRight, nil
	case "both":
		return DisableBoth, nil
	default:
		return DisableNone, fmt.Errorf("unknown disable message %q", s)
	}
}

func (m DisableMask) String() string {
	switch m {
	case DisableNone:
		return "none"
	case DisableLeft:
		return "left"
	case DisableRight:
		return "right"
	case DisableBoth:
		return "both"
	default:
		return "unknown"
	}
}

// Has reports whether hand is suspended.
func (m DisableMask) Has(hand world.Hand) bool {
	return m&(1<<hand) != 0
}

// System owns both hand controllers and ticks them left then right.
type System struct {
	controllers [2]*Controller
	disabled    atomic.Uint32
	session     string
	bus         bus.EventBus
	sub         bus.Subscription
	logger      log.Log
}

// NewSystem builds both controllers. eventBus may be nil, in which case
// transitions are not published and the disabler topic is not observed.
func NewSystem(cfg Config, deps Deps, eventBus bus.EventBus) (*System, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.World == nil {
		return nil, fmt.Errorf("world: %w", ErrMissingDependency)
	}
	if deps.Poses == nil {
		return nil, fmt.Errorf("pose source: %w", ErrMissingDependency)
	}
	if deps.Logger == nil {
		deps.Logger = log.Provide()
	}
	if deps.Ledger == nil {
		deps.Ledger = ledger.New(deps.World, deps.Session, deps.Logger)
	}

	s := &System{
		session: deps.Session,
		bus:     eventBus,
		logger:  deps.Logger.With(log.String("system", "grab")),
	}

	hook := deps.OnTransition
	deps.OnTransition = func(t Transition) {
		s.publish(t)
		if hook != nil {
			hook(t)
		}
	}
	s.controllers[world.LeftHand] = NewController(world.LeftHand, cfg, deps)
	s.controllers[world.RightHand] = NewController(world.RightHand, cfg, deps)

	if eventBus != nil {
		sub, err := eventBus.SubscribeTopic(DisablerTopic, DisablerEventType, s.handleDisabler)
		if err != nil {
			return nil, fmt.Errorf("subscribe %s: %w", DisablerTopic, err)
		}
		s.sub = sub
	}
	return s, nil
}

func (s *System) Name() string { return "grab" }

// Controller returns the controller of hand.
func (s *System) Controller(hand world.Hand) *Controller {
	return s.controllers[hand]
}

func (s *System) Disabled() DisableMask {
	return DisableMask(s.disabled.Load())
}

// SetDisabled replaces the suspended set. Suspended controllers keep their
// state and resume where they stopped.
func (s *System) SetDisabled(m DisableMask) {
	if prev := DisableMask(s.disabled.Swap(uint32(m))); prev != m {
		s.logger.Info("hand disable mask changed", log.Stringer("from", prev), log.Stringer("to", m))
	}
}

// FixedUpdate ticks every enabled controller, left first.
func (s *System) FixedUpdate(now time.Time, _ time.Duration) error {
	mask := s.Disabled()
	for _, c := range s.controllers {
		if !mask.Has(c.Hand()) {
			c.Update(now)
		}
	}
	return nil
}

// Shutdown releases everything both controllers hold.
func (s *System) Shutdown(_ context.Context) error {
	now := time.Now()
	s.controllers[world.RightHand].Cleanup(now)
	s.controllers[world.LeftHand].Cleanup(now)
	if s.bus != nil {
		return s.bus.Unsubscribe(s.sub)
	}
	return nil
}

func (s *System) handleDisabler(e bus.Event) error {
	if e.Source() != s.session {
		return nil
	}
	msg, _ := e.Data().(string)
	mask, err := ParseDisableMask(msg)
	if err != nil {
		s.logger.Debug("ignoring disabler message", log.Error(err))
		return nil
	}
	s.SetDisabled(mask)
	return nil
}

func (s *System) publish(t Transition) {
	if s.bus == nil {
		return
	}
	event := bus.NewEvent(TransitionEventType, s.session, t, map[string]any{"hand": t.Hand.String()})
	if err := s.bus.PublishToTopic(TransitionTopic, event); err != nil {
		s.logger.Warn("transition handler failed", log.Error(err))
	}
}
