package domain

// SessionState is the lifecycle position of an annotation session.
type SessionState string

const (
	StateInit          SessionState = "INIT"
	StateLibraryLoaded SessionState = "LIBRARY_LOADED"
	StateHitsLoaded    SessionState = "HITS_LOADED"
	StateResolved      SessionState = "RESOLVED"
	StateCertified     SessionState = "CERTIFIED"
	StateFailed        SessionState = "FAILED" // Terminal
)

// transitions lists the allowed target states for every non-terminal state.
// Reset to INIT (cancellation) and FAILED are handled by CanTransition.
var transitions = map[SessionState][]SessionState{
	StateInit:          {StateLibraryLoaded},
	StateLibraryLoaded: {StateHitsLoaded},
	StateHitsLoaded:    {StateHitsLoaded, StateResolved},
	StateResolved:      {StateHitsLoaded, StateResolved, StateCertified},
	StateCertified:     {StateHitsLoaded, StateResolved, StateCertified},
}

// CanTransition reports whether the lifecycle allows moving from one state to another.
func CanTransition(from, to SessionState) bool {
	if from == StateFailed {
		return false
	}
	if to == StateFailed || to == StateInit {
		return true
	}
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s SessionState) Terminal() bool {
	return s == StateFailed
}

// AtLeast reports whether s has reached the given point of the happy path.
// FAILED is never at least anything.
func (s SessionState) AtLeast(other SessionState) bool {
	return s.order() >= other.order() && s != StateFailed
}

func (s SessionState) order() int {
	switch s {
	case StateInit:
		return 0
	case StateLibraryLoaded:
		return 1
	case StateHitsLoaded:
		return 2
	case StateResolved:
		return 3
	case StateCertified:
		return 4
	default:
		return -1
	}
}
