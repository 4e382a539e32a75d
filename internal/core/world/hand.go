package world

import "fmt"

// Hand identifies a controller side.
type Hand uint8

const (
	LeftHand Hand = iota
	RightHand
)

func (h Hand) String() string {
	switch h {
	case LeftHand:
		return "left"
	case RightHand:
		return "right"
	default:
		return "unknown"
	}
}

// ParseHand accepts "left" or "right".
func ParseHand(s string) (Hand, error) {
	switch s {
	case "left":
		return LeftHand, nil
	case "right":
		return RightHand, nil
	default:
		return 0, fmt.Errorf("unknown hand %q", s)
	}
}

func (h Hand) MarshalText() ([]byte, error) {
	if h > RightHand {
		return nil, fmt.Errorf("unknown hand %d", uint8(h))
	}
	return []byte(h.String()), nil
}

func (h *Hand) UnmarshalText(b []byte) error {
	v, err := ParseHand(string(b))
	if err != nil {
		return err
	}
	*h = v
	return nil
}
