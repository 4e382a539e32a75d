// Package grab implements the per-hand grab controller and the system that
// drives a pair of them every frame.
package grab

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/zeusync/handgrab/internal/core/grab/binding"
	"github.com/zeusync/handgrab/internal/core/grab/hold"
	"github.com/zeusync/handgrab/internal/core/grab/ledger"
	"github.com/zeusync/handgrab/internal/core/observability/log"
	"github.com/zeusync/handgrab/internal/core/world"
	"github.com/zeusync/handgrab/pkg/throttle"
)

// Transition describes one state change of a controller.
type Transition struct {
	Hand   world.Hand     `json:"hand"`
	From   State          `json:"from"`
	To     State          `json:"to"`
	Entity world.EntityID `json:"entity,omitempty"`
	At     time.Time      `json:"at"`
}

// Deps are the collaborators of a Controller. World and Poses are required.
type Deps struct {
	World    world.World
	Poses    PoseSource
	Visuals  Visuals
	Animator Animator
	// Ledger may be shared between controllers; one is built on World if nil.
	Ledger  *ledger.Ledger
	Session string
	Logger  log.Log
	// OnTransition, if set, is called after every state change.
	OnTransition func(Transition)
}

// Controller is the grab state machine of one hand. Update must be called from
// a single goroutine; SetTrigger and SetBumper may be called from any.
type Controller struct {
	hand     world.Hand
	cfg      Config
	world    world.World
	poses    PoseSource
	visuals  Visuals
	animator Animator
	ledger   *ledger.Ledger
	logger   log.Log
	ownTag   string
	notifyFn func(Transition)

	rawTrigger atomic.Uint64
	rawBumper  atomic.Uint64

	state           State
	grabbed         world.EntityID
	triggerSmoothed float64
	bumper          float64

	constraint  *binding.Binding
	equipSpring *binding.Binding
	activated   bool

	offset       hold.Offset
	distance     hold.DistanceState
	radiusScalar float64
	velocity     hold.VelocitySampler

	pickLimiter  *throttle.Limiter
	touchLimiter *throttle.Limiter
	touched      map[world.EntityID]struct{}
}

func NewController(hand world.Hand, cfg Config, deps Deps) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = log.Provide()
	}
	logger = logger.With(log.Stringer("hand", hand))

	c := &Controller{
		hand:         hand,
		cfg:          cfg,
		world:        deps.World,
		poses:        deps.Poses,
		visuals:      deps.Visuals,
		animator:     deps.Animator,
		ledger:       deps.Ledger,
		logger:       logger,
		ownTag:       binding.OwnerTag(deps.Session),
		notifyFn:     deps.OnTransition,
		state:        StateOff,
		offset:       hold.IdentityOffset,
		pickLimiter:  throttle.PerSecond(cfg.PicksPerSecond),
		touchLimiter: throttle.PerSecond(cfg.TouchScansPerSecond),
		touched:      make(map[world.EntityID]struct{}),
	}
	if c.visuals == nil {
		c.visuals = NopVisuals{}
	}
	if c.animator == nil {
		c.animator = NopAnimator{}
	}
	if c.ledger == nil {
		c.ledger = ledger.New(deps.World, deps.Session, logger)
	}
	return c
}

func (c *Controller) Hand() world.Hand             { return c.hand }
func (c *Controller) State() State                 { return c.state }
func (c *Controller) Grabbed() world.EntityID      { return c.grabbed }
func (c *Controller) TriggerSmoothed() float64     { return c.triggerSmoothed }
func (c *Controller) Constraint() *binding.Binding { return c.constraint }

// Activated reports whether this controller holds a ledger reference.
func (c *Controller) Activated() bool { return c.activated }

// SetTrigger stores the raw trigger pressure, clamped to [0,1].
func (c *Controller) SetTrigger(v float64) {
	c.rawTrigger.Store(math.Float64bits(clamp01(v)))
}

// SetBumper stores the raw bumper pressure, clamped to [0,1].
func (c *Controller) SetBumper(v float64) {
	c.rawBumper.Store(math.Float64bits(clamp01(v)))
}

func (c *Controller) RawTrigger() float64 { return math.Float64frombits(c.rawTrigger.Load()) }
func (c *Controller) RawBumper() float64  { return math.Float64frombits(c.rawBumper.Load()) }

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

func (c *Controller) updateSmoothedTrigger() {
	r := c.cfg.TriggerSmoothRatio
	c.triggerSmoothed = c.triggerSmoothed*r + c.RawTrigger()*(1-r)
}

func (c *Controller) triggerSqueezed() bool { return c.triggerSmoothed > c.cfg.TriggerOn }
func (c *Controller) triggerReleased() bool { return c.triggerSmoothed < c.cfg.TriggerOff }
func (c *Controller) bumperSqueezed() bool  { return c.bumper > c.cfg.BumperOn }
func (c *Controller) bumperReleased() bool  { return c.bumper < c.cfg.BumperOff }

// Update runs one tick: smooth the trigger, run the current state, and finish
// a release entered during the tick.
func (c *Controller) Update(now time.Time) {
	c.updateSmoothedTrigger()
	c.bumper = c.RawBumper()

	switch c.state {
	case StateOff:
		c.off(now)
		if c.state == StateOff {
			c.touchScan(now)
		} else {
			c.stopAllTouches()
		}
	case StateSearching, StateEquipSearching:
		c.search(now)
	case StateDistanceHolding:
		c.distanceHolding(now)
	case StateContinueDistanceHolding:
		c.continueDistanceHolding(now)
	case StateNearGrabbing, StateEquip:
		c.nearGrabbing(now)
	case StateContinueNearGrabbing, StateContinueEquipBumperDown, StateContinueEquip:
		c.continueNearGrabbing(now)
	case StateWaitingForBumperRelease:
		c.waitingForBumperRelease(now)
	case StateEquipSpring:
		c.pullTowardEquipPose(now)
	case StateNearTrigger:
		c.nearTrigger(now)
	case StateContinueNearTrigger:
		c.continueNearTrigger(now)
	case StateFarTrigger:
		c.farTrigger(now)
	case StateContinueFarTrigger:
		c.continueFarTrigger(now)
	}

	if c.state == StateRelease {
		c.release(now)
	}
}

// Release drops whatever the controller holds and returns it to Off. Calling
// it again is a no-op apart from clearing visuals.
func (c *Controller) Release(now time.Time) {
	if c.state != StateOff {
		c.setState(StateRelease, now)
	}
	c.release(now)
}

// Cleanup releases, ends any grasp animation and stops all touches. It is the
// teardown path and is safe to call at any time.
func (c *Controller) Cleanup(now time.Time) {
	c.Release(now)
	c.animator.EndGrasp(c.hand)
	c.visuals.BeamOff(c.hand)
	c.stopAllTouches()
}

func (c *Controller) setState(next State, now time.Time) {
	if next == c.state {
		return
	}
	prev := c.state
	c.state = next

	c.logger.Debug("grab state changed",
		log.Stringer("from", prev),
		log.Stringer("to", next),
		log.String("entity", string(c.grabbed)),
	)
	if c.notifyFn != nil {
		c.notifyFn(Transition{Hand: c.hand, From: prev, To: next, Entity: c.grabbed, At: now})
	}
}

// selectEntity records the target chosen by a search and moves to next.
func (c *Controller) selectEntity(id world.EntityID, next State, now time.Time) {
	c.grabbed = id
	c.setState(next, now)
}

func (c *Controller) off(now time.Time) {
	switch {
	case c.triggerSqueezed():
		c.pickLimiter.Reset()
		c.setState(StateSearching, now)
	case c.bumperSqueezed():
		c.pickLimiter.Reset()
		c.setState(StateEquipSearching, now)
	}
}

// grabbedProperties fetches the held entity, forcing a release if it is gone.
func (c *Controller) grabbedProperties(now time.Time) (world.Properties, bool) {
	props, ok := c.world.EntityProperties(c.grabbed)
	if !ok {
		c.logger.Warn("grabbed entity vanished", log.String("entity", string(c.grabbed)))
		c.setState(StateRelease, now)
	}
	return props, ok
}

func (c *Controller) release(now time.Time) {
	c.visuals.LineOff(c.hand)
	c.visuals.BeamOff(c.hand)

	wasHold := c.constraint != nil && c.constraint.Kind() == world.KindHold
	if err := c.constraint.Delete(); err != nil {
		c.logger.Warn("delete constraint failed", log.String("entity", string(c.grabbed)), log.Error(err))
	}
	if err := c.equipSpring.Delete(); err != nil {
		c.logger.Warn("delete equip spring failed", log.String("entity", string(c.grabbed)), log.Error(err))
	}

	if c.activated {
		if err := c.ledger.Deactivate(c.grabbed); err != nil {
			c.logger.Warn("deactivate failed", log.String("entity", string(c.grabbed)), log.Error(err))
		}
		c.activated = false
	}

	if wasHold && c.cfg.ReleaseVelocityMultiplier > 0 {
		v := c.velocity.Velocity().Scale(c.cfg.ReleaseVelocityMultiplier)
		if err := c.world.EditEntity(c.grabbed, world.PropertyEdit{Velocity: &v}); err != nil {
			c.logger.Warn("impart release velocity failed", log.String("entity", string(c.grabbed)), log.Error(err))
		}
	}

	c.constraint = nil
	c.equipSpring = nil
	c.setState(StateOff, now)
	c.grabbed = ""
}

// activate takes a ledger reference on the grabbed entity once per grab.
func (c *Controller) activate(props world.Properties, kinematic bool) {
	if c.activated {
		return
	}
	data := world.LoadGrabbableData(c.world, c.grabbed)
	_, err := c.ledger.Activate(c.grabbed, props, ledger.Overrides{
		InvertSolid: data.InvertSolidWhileHeld,
		Kinematic:   kinematic,
	})
	if err != nil {
		c.logger.Warn("activate failed", log.String("entity", string(c.grabbed)), log.Error(err))
		return
	}
	c.activated = true
}
