package vo

import (
	"encoding/json"
	"fmt"
)

type ScreenKind string

const (
	ScreenHome        ScreenKind = "home"
	ScreenDestination ScreenKind = "destination"
	ScreenPlanner     ScreenKind = "planner"
)

type Tab string

const (
	TabTypes     Tab = "types"
	TabDivisions Tab = "divisions"
)

// Screen is the view a session is currently on. Exactly one of the
// implementations below is current at any time.
type Screen interface {
	Kind() ScreenKind
	screen()
}

type HomeScreen struct {
	Tab Tab `json:"tab"`
}

// DestinationScreen shows a guide. Guide is nil while it is being generated
// or when generation failed.
type DestinationScreen struct {
	Destination string       `json:"destination"`
	Guide       *TravelGuide `json:"guide,omitempty"`
}

type PlannerScreen struct{}

func (HomeScreen) Kind() ScreenKind        { return ScreenHome }
func (DestinationScreen) Kind() ScreenKind { return ScreenDestination }
func (PlannerScreen) Kind() ScreenKind     { return ScreenPlanner }

func (HomeScreen) screen()        {}
func (DestinationScreen) screen() {}
func (PlannerScreen) screen()     {}

// MarshalScreen encodes a screen with a "kind" discriminator.
func MarshalScreen(s Screen) ([]byte, error) {
	var payload any
	switch v := s.(type) {
	case HomeScreen:
		payload = struct {
			Kind ScreenKind `json:"kind"`
			HomeScreen
		}{v.Kind(), v}
	case DestinationScreen:
		payload = struct {
			Kind ScreenKind `json:"kind"`
			DestinationScreen
		}{v.Kind(), v}
	case PlannerScreen:
		payload = struct {
			Kind ScreenKind `json:"kind"`
		}{v.Kind()}
	default:
		return nil, fmt.Errorf("unknown screen %T", s)
	}
	return json.Marshal(payload)
}

// UnmarshalScreen decodes data produced by MarshalScreen.
func UnmarshalScreen(data []byte) (Screen, error) {
	var head struct {
		Kind ScreenKind `json:"kind"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to decode screen: %w", err)
	}
	switch head.Kind {
	case ScreenHome:
		var s HomeScreen
		err := json.Unmarshal(data, &s)
		return s, err
	case ScreenDestination:
		var s DestinationScreen
		err := json.Unmarshal(data, &s)
		return s, err
	case ScreenPlanner:
		return PlannerScreen{}, nil
	default:
		return nil, fmt.Errorf("unknown screen kind %q", head.Kind)
	}
}
