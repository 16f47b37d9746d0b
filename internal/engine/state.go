package engine

import "fmt"

// State is the interaction state.
type State int

const (
	// Inactive means no face is in view.
	Inactive State = iota
	// Observing means the pointer follows the head and activation gestures are watched.
	Observing
	// Preselecting means an activation gesture was seen and awaits confirmation.
	Preselecting
	// Executing means an action was just committed and input is debounced.
	Executing
)

var stateNames = map[State]string{
	Inactive:     "inactive",
	Observing:    "observing",
	Preselecting: "preselecting",
	Executing:    "executing",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(text []byte) error {
	for state, name := range stateNames {
		if name == string(text) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", text)
}
