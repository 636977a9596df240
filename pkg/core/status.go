package core

import "time"

// RunStatus is the final status of a traversal run.
type RunStatus int

const (
	RunCompleted RunStatus = iota // Terminated through a normal termination predicate
	RunFailed                     // Terminated through an unrecoverable failure
)

// String returns the string representation of RunStatus.
func (s RunStatus) String() string {
	switch s {
	case RunCompleted:
		return "completed"
	case RunFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Termination reason codes.
const (
	ReasonCoverageCompleted = "coverage_completed"
	ReasonQueueExhausted    = "queue_exhausted"
	ReasonBootstrapFailed   = "bootstrap_failed"
	ReasonUnrecoverable     = "unrecoverable"
)

// RunStats aggregates the counters of one traversal run.
type RunStats struct {
	TotalActions      int `json:"totalActions"`
	SuccessfulActions int `json:"successfulActions"`
	FailedActions     int `json:"failedActions"`
	CoverageScreens   int `json:"coverageScreens"`
}

// TransitionEvent records one state machine transition for audit logging.
// From and To are state names; Data carries transition-specific context
// such as the screen signature or the executed action description.
type TransitionEvent struct {
	RunID   string                 `json:"runId"`
	From    string                 `json:"from"`
	To      string                 `json:"to"`
	Success bool                   `json:"success"`
	Error   string                 `json:"error,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
	At      time.Time              `json:"at"`
}
