package ses

// State is a Baseline's position in its lifecycle. Transitions only move
// forward: Uninitialized, Initializing, then Ready or Aborted.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}
