package graph

import "github.com/pzy560117/uiexplorer/pkg/core"

// Tier is the priority tier of a queued action.
type Tier int

// Queue tiers, drained in this order.
const (
	TierPrimary Tier = iota // Actions targeting unvisited screens
	TierFallback            // Actions whose target screen was already visited
	TierRevisit             // Actions explicitly requested for re-verification
)

// String returns the string representation of Tier.
func (t Tier) String() string {
	switch t {
	case TierPrimary:
		return "primary"
	case TierFallback:
		return "fallback"
	case TierRevisit:
		return "revisit"
	default:
		return "unknown"
	}
}

// QueuedAction is one pending action plus the context the enqueue policy
// attached to it. TargetPath is matched against the run's path blacklist.
type QueuedAction struct {
	Plan       core.ActionPlan
	TargetPath string
}

// ActionQueues holds the three FIFO priority tiers. Dequeue always drains
// PRIMARY first, then FALLBACK, then REVISIT; an action is removed on
// dequeue, giving at-most-once consumption. The enqueue policy (which tier
// an action belongs to) is owned by callers, not by the queue.
type ActionQueues struct {
	tiers [3][]QueuedAction
}

// NewActionQueues creates empty queues.
func NewActionQueues() *ActionQueues {
	return &ActionQueues{}
}

// Enqueue appends the action to the given tier.
func (q *ActionQueues) Enqueue(tier Tier, a QueuedAction) {
	q.tiers[tier] = append(q.tiers[tier], a)
}

// Dequeue removes and returns the next action by priority.
func (q *ActionQueues) Dequeue() (QueuedAction, Tier, bool) {
	for tier := TierPrimary; tier <= TierRevisit; tier++ {
		items := q.tiers[tier]
		if len(items) == 0 {
			continue
		}
		a := items[0]
		q.tiers[tier] = items[1:]
		return a, tier, true
	}
	return QueuedAction{}, 0, false
}

// Len returns the total number of pending actions across all tiers.
func (q *ActionQueues) Len() int {
	return len(q.tiers[TierPrimary]) + len(q.tiers[TierFallback]) + len(q.tiers[TierRevisit])
}

// TierLen returns the number of pending actions in one tier.
func (q *ActionQueues) TierLen(tier Tier) int {
	return len(q.tiers[tier])
}
