package vo

import "encoding/json"

// SessionState is a snapshot of one user session.
type SessionState struct {
	ID      string        `json:"id"`
	Screen  Screen        `json:"-"`
	// Loading is set while a guide or plan is being generated.
	Loading bool          `json:"loading,omitempty"`
	HasChat bool          `json:"hasChat"`
	History []ChatMessage `json:"history"`
}

// Guide returns the guide shown on the current screen, if any.
func (s *SessionState) Guide() *TravelGuide {
	if d, ok := s.Screen.(DestinationScreen); ok {
		return d.Guide
	}
	return nil
}

func (s SessionState) MarshalJSON() ([]byte, error) {
	type alias SessionState
	screen, err := MarshalScreen(s.Screen)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		alias
		Screen json.RawMessage `json:"screen"`
	}{alias(s), screen})
}

func (s *SessionState) UnmarshalJSON(data []byte) error {
	type alias SessionState
	var raw struct {
		alias
		Screen json.RawMessage `json:"screen"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	screen, err := UnmarshalScreen(raw.Screen)
	if err != nil {
		return err
	}
	*s = SessionState(raw.alias)
	s.Screen = screen
	return nil
}
