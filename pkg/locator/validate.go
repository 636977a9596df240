package locator

import (
	"context"
	"time"

	"github.com/pzy560117/uiexplorer/pkg/alert"
	"github.com/pzy560117/uiexplorer/pkg/core"
)

// successWindow bounds the sliding window used to recompute a candidate's
// success rate: only the most recent attempts count.
const successWindow = 10

// AttemptResult is the outcome of trying one candidate on the live device.
// Screenshot optionally carries the screen at the time of the attempt, for
// diagnosing why a candidate stopped matching.
type AttemptResult struct {
	Passed     bool
	Latency    time.Duration
	Note       string
	Screenshot []byte
}

// Executor attempts a single locator candidate on the live device.
type Executor func(ctx context.Context, c *Candidate) AttemptResult

// ValidationRecord is one append-only outcome of a validation attempt.
type ValidationRecord struct {
	CandidateID string        `json:"candidateId"`
	Passed      bool          `json:"passed"`
	Latency     time.Duration `json:"latency"`
	Note        string        `json:"note,omitempty"`
	Screenshot  []byte        `json:"screenshot,omitempty"`
	At          time.Time     `json:"at"`
}

// Tracker owns the append-only validation history and recomputes each
// candidate's rolling success rate after every attempt.
type Tracker struct {
	records map[string][]ValidationRecord
	sink    alert.Sink
}

// NewTracker creates a Tracker reporting exhaustion through sink.
func NewTracker(sink alert.Sink) *Tracker {
	if sink == nil {
		sink = alert.Nop{}
	}
	return &Tracker{
		records: make(map[string][]ValidationRecord),
		sink:    sink,
	}
}

// Record appends the attempt outcome and updates the candidate's success
// rate over the most recent attempts. A pass also refreshes LastVerified.
func (t *Tracker) Record(c *Candidate, res AttemptResult) {
	rec := ValidationRecord{
		CandidateID: c.ID,
		Passed:      res.Passed,
		Latency:     res.Latency,
		Note:        res.Note,
		Screenshot:  res.Screenshot,
		At:          time.Now(),
	}
	t.records[c.ID] = append(t.records[c.ID], rec)

	c.SuccessRate = t.SuccessRate(c.ID)
	if res.Passed {
		c.LastVerified = rec.At
	}
}

// SuccessRate computes passed/window*100 over the candidate's most recent
// attempts, not merely the latest one.
func (t *Tracker) SuccessRate(candidateID string) float64 {
	recs := t.records[candidateID]
	if len(recs) == 0 {
		return 0
	}
	window := recs
	if len(window) > successWindow {
		window = window[len(window)-successWindow:]
	}
	passed := 0
	for _, r := range window {
		if r.Passed {
			passed++
		}
	}
	return float64(passed) / float64(len(window)) * 100
}

// Records returns the recorded attempts for a candidate.
func (t *Tracker) Records(candidateID string) []ValidationRecord {
	return t.records[candidateID]
}

// ValidateInOrder tries candidates in rank order (primary first, then by
// score) and stops at the first pass, returning that candidate's ID.
// Every attempt is recorded regardless of outcome. If all candidates fail
// it raises a locator-exhausted alert and returns core.ErrLocatorExhausted.
func (t *Tracker) ValidateInOrder(ctx context.Context, candidates []*Candidate, exec Executor) (string, error) {
	attempted := 0
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		res := exec(ctx, c)
		attempted++
		t.Record(c, res)
		if res.Passed {
			return c.ID, nil
		}
	}

	t.sink.Raise(alert.KindLocatorExhausted, alert.SeverityWarning,
		"all locator candidates failed validation",
		map[string]interface{}{"attempted": attempted})
	return "", core.ErrLocatorExhausted.WithDetails(map[string]interface{}{
		"attempted": attempted,
	})
}
