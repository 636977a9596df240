// Package report writes per-run audit trails: one JSONL file of state
// transitions plus a final summary document.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pzy560117/uiexplorer/pkg/core"
)

// Summary is the final run report written next to the transition trail.
type Summary struct {
	RunID      string        `json:"runId"`
	DeviceID   string        `json:"deviceId"`
	AppPackage string        `json:"appPackage"`
	Status     string        `json:"status"`
	Reason     string        `json:"reason"`
	Stats      core.RunStats `json:"stats"`
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`
}

// Writer records one run's audit trail under a directory.
type Writer struct {
	mu    sync.Mutex
	dir   string
	runID string
	f     *os.File
	enc   *json.Encoder
}

// NewWriter opens the transition trail for a run, creating the report
// directory when needed.
func NewWriter(dir, runID string) (*Writer, error) {
	runDir := filepath.Join(dir, runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}
	f, err := os.Create(filepath.Join(runDir, "transitions.jsonl"))
	if err != nil {
		return nil, fmt.Errorf("create transition trail: %w", err)
	}
	return &Writer{dir: runDir, runID: runID, f: f, enc: json.NewEncoder(f)}, nil
}

// Record appends one transition event to the trail. Errors are returned but
// callers typically log and continue; a broken trail must not stop a run.
func (w *Writer) Record(ev core.TransitionEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enc.Encode(ev)
}

// Finish writes the summary and closes the trail.
func (w *Writer) Finish(s Summary) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(w.dir, "summary.json"), data, 0o644); err != nil {
		return err
	}
	return w.f.Close()
}

// Dir returns the directory holding this run's artifacts.
func (w *Writer) Dir() string { return w.dir }
