package automation

// State models the lifecycle of one browser-driven session:
// uninitialized -> ready -> (querying -> ready)* -> closed.
// Teardown forces closed from anywhere; a restart reaches ready again.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateQuerying
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateQuerying:
		return "querying"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// transitions is the legal transition table. Keeping it explicit makes the
// teardown-and-recreate retry boundary checkable without a real browser.
var transitions = map[State][]State{
	StateUninitialized: {StateReady, StateClosed},
	StateReady:         {StateQuerying, StateClosed},
	StateQuerying:      {StateReady, StateClosed},
	StateClosed:        {StateReady, StateClosed},
}

func canTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
