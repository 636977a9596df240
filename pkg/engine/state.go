package engine

// State is one state of the traversal state machine.
type State int

const (
	StateIdle State = iota
	StateBootstrapping
	StateTraversing
	StateInspecting
	StateExecuting
	StateVerifying
	StateRecovering
	StateTerminated
)

// String returns the state name used in transition events and logs.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateBootstrapping:
		return "BOOTSTRAPPING"
	case StateTraversing:
		return "TRAVERSING"
	case StateInspecting:
		return "INSPECTING"
	case StateExecuting:
		return "EXECUTING"
	case StateVerifying:
		return "VERIFYING"
	case StateRecovering:
		return "RECOVERING"
	case StateTerminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}
