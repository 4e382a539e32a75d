package grab

import (
	"errors"
	"fmt"
	"time"
)

// EquipMode selects how an equip target reaches the hand.
type EquipMode string

const (
	// EquipInstant attaches the hold constraint immediately.
	EquipInstant EquipMode = "instant"
	// EquipSpring pulls the object to its equip pose with a spring first.
	EquipSpring EquipMode = "spring"
)

// Config holds the controller tuning. Distances are meters, timescales seconds.
type Config struct {
	TriggerSmoothRatio float64 `yaml:"triggerSmoothRatio" env:"TRIGGER_SMOOTH_RATIO"`
	TriggerOn          float64 `yaml:"triggerOn" env:"TRIGGER_ON"`
	TriggerOff         float64 `yaml:"triggerOff" env:"TRIGGER_OFF"`
	BumperOn           float64 `yaml:"bumperOn" env:"BUMPER_ON"`
	BumperOff          float64 `yaml:"bumperOff" env:"BUMPER_OFF"`

	PickMaxDistance     float64 `yaml:"pickMaxDistance" env:"PICK_MAX_DISTANCE"`
	PickBackoff         float64 `yaml:"pickBackoff" env:"PICK_BACKOFF"`
	NearPickMaxDistance float64 `yaml:"nearPickMaxDistance" env:"NEAR_PICK_MAX_DISTANCE"`
	GrabRadius          float64 `yaml:"grabRadius" env:"GRAB_RADIUS"`
	PicksPerSecond      float64 `yaml:"picksPerSecond" env:"PICKS_PER_SECOND"`
	LineLength          float64 `yaml:"lineLength" env:"LINE_LENGTH"`

	DistanceHoldTimescale float64 `yaml:"distanceHoldTimescale" env:"DISTANCE_HOLD_TIMESCALE"`
	RadiusFactor          float64 `yaml:"radiusFactor" env:"RADIUS_FACTOR"`
	RotationExaggeration  float64 `yaml:"rotationExaggeration" env:"ROTATION_EXAGGERATION"`
	MoveWithHead          bool    `yaml:"moveWithHead" env:"MOVE_WITH_HEAD"`

	NearGrabTimescale         float64 `yaml:"nearGrabTimescale" env:"NEAR_GRAB_TIMESCALE"`
	NearGrabKinematic         bool    `yaml:"nearGrabKinematic" env:"NEAR_GRAB_KINEMATIC"`
	ReleaseVelocityMultiplier float64 `yaml:"releaseVelocityMultiplier" env:"RELEASE_VELOCITY_MULTIPLIER"`

	EquipMode            EquipMode `yaml:"equipMode" env:"EQUIP_MODE"`
	EquipSpringTimescale float64   `yaml:"equipSpringTimescale" env:"EQUIP_SPRING_TIMESCALE"`
	EquipSpringShutoff   float64   `yaml:"equipSpringShutoff" env:"EQUIP_SPRING_SHUTOFF"`

	ConstraintTTL     time.Duration `yaml:"constraintTTL" env:"CONSTRAINT_TTL"`
	ConstraintRefresh time.Duration `yaml:"constraintRefresh" env:"CONSTRAINT_REFRESH"`

	TouchRadius         float64 `yaml:"touchRadius" env:"TOUCH_RADIUS"`
	TouchScansPerSecond float64 `yaml:"touchScansPerSecond" env:"TOUCH_SCANS_PER_SECOND"`
}

func DefaultConfig() Config {
	return Config{
		TriggerSmoothRatio: 0.1,
		TriggerOn:          0.4,
		TriggerOff:         0.15,
		BumperOn:           0.5,
		BumperOff:          0.5,

		PickMaxDistance:     500,
		PickBackoff:         0.2,
		NearPickMaxDistance: 0.3,
		GrabRadius:          0.03,
		PicksPerSecond:      5,
		LineLength:          500,

		DistanceHoldTimescale: 0.1,
		RadiusFactor:          3.5,
		RotationExaggeration:  2.0,
		MoveWithHead:          true,

		NearGrabTimescale:         0.05,
		NearGrabKinematic:         true,
		ReleaseVelocityMultiplier: 1.5,

		EquipMode:            EquipInstant,
		EquipSpringTimescale: 0.4,
		EquipSpringShutoff:   0.05,

		ConstraintTTL:     15 * time.Second,
		ConstraintRefresh: 5 * time.Second,

		TouchRadius:         0.05,
		TouchScansPerSecond: 30,
	}
}

func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.TriggerSmoothRatio >= 0 && c.TriggerSmoothRatio < 1, "triggerSmoothRatio must be in [0,1), got %v", c.TriggerSmoothRatio)
	check(c.TriggerOff < c.TriggerOn, "triggerOff (%v) must be below triggerOn (%v)", c.TriggerOff, c.TriggerOn)
	check(c.BumperOff <= c.BumperOn, "bumperOff (%v) must not exceed bumperOn (%v)", c.BumperOff, c.BumperOn)
	check(c.PickMaxDistance > 0, "pickMaxDistance must be positive")
	check(c.PickBackoff >= 0, "pickBackoff must not be negative")
	check(c.NearPickMaxDistance > 0 && c.NearPickMaxDistance < c.PickMaxDistance, "nearPickMaxDistance must be in (0, pickMaxDistance)")
	check(c.GrabRadius > 0, "grabRadius must be positive")
	check(c.PicksPerSecond >= 0, "picksPerSecond must not be negative")
	check(c.DistanceHoldTimescale > 0, "distanceHoldTimescale must be positive")
	check(c.RadiusFactor > 0, "radiusFactor must be positive")
	check(c.RotationExaggeration > 0, "rotationExaggeration must be positive")
	check(c.NearGrabTimescale > 0, "nearGrabTimescale must be positive")
	check(c.ReleaseVelocityMultiplier >= 0, "releaseVelocityMultiplier must not be negative")
	check(c.EquipMode == EquipInstant || c.EquipMode == EquipSpring, "unknown equipMode %q", c.EquipMode)
	check(c.EquipSpringTimescale > 0, "equipSpringTimescale must be positive")
	check(c.EquipSpringShutoff > 0, "equipSpringShutoff must be positive")
	check(c.ConstraintTTL > 0, "constraintTTL must be positive")
	check(c.ConstraintRefresh > 0 && c.ConstraintRefresh < c.ConstraintTTL, "constraintRefresh must be in (0, constraintTTL)")
	check(c.TouchRadius > 0, "touchRadius must be positive")
	check(c.TouchScansPerSecond >= 0, "touchScansPerSecond must not be negative")

	return errors.Join(errs...)
}
