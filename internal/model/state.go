package model

import "fmt"

// FusionState is the tracking mode of the fusion controller.
type FusionState int

const (
	// StateTracking is the initial state: the tracker output is trusted.
	StateTracking FusionState = iota
	// StateLost is entered after too many consecutive missed detections.
	StateLost
)

func (s FusionState) String() string {
	switch s {
	case StateTracking:
		return "tracking"
	case StateLost:
		return "lost"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// MarshalText encodes the state by name.
func (s FusionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *FusionState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "tracking":
		*s = StateTracking
	case "lost":
		*s = StateLost
	default:
		return fmt.Errorf("unknown fusion state %q", string(text))
	}
	return nil
}
