package grab

import "fmt"

// State is a controller state. Release is transient: a controller entering it
// reaches Off within the same tick.
type State uint8

const (
	StateOff State = iota
	StateSearching
	StateDistanceHolding
	StateContinueDistanceHolding
	StateNearGrabbing
	StateContinueNearGrabbing
	StateNearTrigger
	StateContinueNearTrigger
	StateFarTrigger
	StateContinueFarTrigger
	StateRelease
	StateEquipSearching
	StateEquip
	StateContinueEquipBumperDown
	StateContinueEquip
	StateWaitingForBumperRelease
	StateEquipSpring
)

var stateNames = [...]string{
	StateOff:                     "off",
	StateSearching:               "searching",
	StateDistanceHolding:         "distance_holding",
	StateContinueDistanceHolding: "continue_distance_holding",
	StateNearGrabbing:            "near_grabbing",
	StateContinueNearGrabbing:    "continue_near_grabbing",
	StateNearTrigger:             "near_trigger",
	StateContinueNearTrigger:     "continue_near_trigger",
	StateFarTrigger:              "far_trigger",
	StateContinueFarTrigger:      "continue_far_trigger",
	StateRelease:                 "release",
	StateEquipSearching:          "equip_searching",
	StateEquip:                   "equip",
	StateContinueEquipBumperDown: "continue_equip_bd",
	StateContinueEquip:           "continue_equip",
	StateWaitingForBumperRelease: "waiting_for_bumper_release",
	StateEquipSpring:             "equip_spring",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Holding reports whether the controller owns a constraint in this state.
func (s State) Holding() bool {
	switch s {
	case StateContinueDistanceHolding,
		StateContinueNearGrabbing,
		StateContinueEquipBumperDown,
		StateContinueEquip,
		StateWaitingForBumperRelease:
		return true
	default:
		return false
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	for i, name := range stateNames {
		if name == string(b) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown grab state %q", b)
}
