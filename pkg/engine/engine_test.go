package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pzy560117/uiexplorer/pkg/alert"
	"github.com/pzy560117/uiexplorer/pkg/config"
	"github.com/pzy560117/uiexplorer/pkg/core"
	"github.com/pzy560117/uiexplorer/pkg/decision"
	"github.com/pzy560117/uiexplorer/pkg/driver/mock"
	"github.com/pzy560117/uiexplorer/pkg/logger"
	"github.com/pzy560117/uiexplorer/pkg/recovery"
	"github.com/pzy560117/uiexplorer/pkg/safety"
)

// scriptModel returns canned proposals, repeating the last one.
type scriptModel struct {
	mu        sync.Mutex
	proposals []json.RawMessage
	err       error
	calls     int
}

func (m *scriptModel) GenerateAction(_ context.Context, _ decision.Context) (*decision.Proposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	idx := m.calls - 1
	if idx >= len(m.proposals) {
		idx = len(m.proposals) - 1
	}
	return &decision.Proposal{ActionPlan: m.proposals[idx]}, nil
}

type recordingSink struct {
	mu    sync.Mutex
	kinds []string
}

func (s *recordingSink) Raise(kind string, _ alert.Severity, _ string, _ map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kinds = append(s.kinds, kind)
}

func (s *recordingSink) has(kind string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range s.kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func clickProposal(target string, confidence float64) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(
		`{"actionPlan":{"actionType":"CLICK","params":{"target":%q},"confidence":%g}}`,
		target, confidence))
}

func allActions() []core.ActionType {
	return []core.ActionType{
		core.ActionClick, core.ActionInput, core.ActionScroll,
		core.ActionNavigateBack, core.ActionSwipe, core.ActionLongPress,
	}
}

func profile(maxActions int) config.CoverageProfile {
	return config.CoverageProfile{
		Timeout:    config.Duration(time.Minute),
		MaxActions: maxActions,
	}
}

func newTestEngine(d *mock.Driver, m decision.Model, sink alert.Sink, opts Options) *Engine {
	log := logger.Nop()
	validator := safety.New(safety.Config{Allowed: allActions()})
	recoverer := recovery.NewExecutor(d, recovery.SettleDelays{}, log)
	if opts.DeviceID == "" {
		opts.DeviceID = "emulator-5554"
	}
	if opts.AppPackage == "" {
		opts.AppPackage = "com.example.app"
	}
	opts.BootstrapDelay = time.Millisecond
	return New(d, m, validator, recoverer, sink, log, opts)
}

func TestRun_SingleActionBudget(t *testing.T) {
	d := mock.New(mock.Config{Screens: []mock.Screen{
		mock.DefaultScreen("Home"),
		mock.DefaultScreen("Detail"),
	}})
	m := &scriptModel{proposals: []json.RawMessage{clickProposal("Next", 0.9)}}

	eng := newTestEngine(d, m, nil, Options{Profile: profile(1)})
	res := eng.Run(context.Background())

	if res.Status != core.RunCompleted {
		t.Fatalf("expected completed, got %s (%s)", res.Status, res.Detail)
	}
	if res.Reason != core.ReasonCoverageCompleted {
		t.Errorf("expected coverage_completed, got %s", res.Reason)
	}
	if res.Stats.TotalActions != 1 || res.Stats.SuccessfulActions != 1 {
		t.Errorf("expected exactly one successful action, got %+v", res.Stats)
	}
	if res.Stats.CoverageScreens != 1 {
		t.Errorf("expected one discovered screen, got %d", res.Stats.CoverageScreens)
	}
}

func TestRun_QueueExhaustedOnStaticScreen(t *testing.T) {
	d := mock.New(mock.Config{StickyScreen: true})
	m := &scriptModel{proposals: []json.RawMessage{clickProposal("Next", 0.9)}}

	eng := newTestEngine(d, m, nil, Options{Profile: profile(10)})
	res := eng.Run(context.Background())

	if res.Status != core.RunCompleted {
		t.Fatalf("expected completed, got %s (%s)", res.Status, res.Detail)
	}
	if res.Reason != core.ReasonQueueExhausted {
		t.Errorf("expected queue_exhausted, got %s", res.Reason)
	}
	if res.Stats.TotalActions > 1 {
		t.Errorf("a static screen must not burn the action budget, got %d actions", res.Stats.TotalActions)
	}
}

func TestRun_BootstrapFailure(t *testing.T) {
	d := mock.New(mock.Config{FailSession: true})
	m := &scriptModel{proposals: []json.RawMessage{clickProposal("Next", 0.9)}}

	eng := newTestEngine(d, m, nil, Options{Profile: profile(10)})
	res := eng.Run(context.Background())

	if res.Status != core.RunFailed {
		t.Fatalf("expected failed, got %s", res.Status)
	}
	if res.Reason != core.ReasonBootstrapFailed {
		t.Errorf("expected bootstrap_failed, got %s", res.Reason)
	}
	if res.Stats.TotalActions != 0 {
		t.Errorf("expected no actions, got %d", res.Stats.TotalActions)
	}
}

func TestRun_BootstrapFailureRoutesThroughRecovery(t *testing.T) {
	d := mock.New(mock.Config{FailSession: true})
	m := &scriptModel{proposals: []json.RawMessage{clickProposal("Next", 0.9)}}
	sink := &recordingSink{}

	var mu sync.Mutex
	var hops []string
	eng := newTestEngine(d, m, sink, Options{
		Profile: profile(10),
		Observer: func(ev core.TransitionEvent) {
			mu.Lock()
			hops = append(hops, ev.From+">"+ev.To)
			mu.Unlock()
		},
	})
	res := eng.Run(context.Background())

	if res.Status != core.RunFailed || res.Reason != core.ReasonBootstrapFailed {
		t.Fatalf("expected failed/bootstrap_failed, got %s/%s", res.Status, res.Reason)
	}
	mu.Lock()
	defer mu.Unlock()
	if !hasHop(hops, "BOOTSTRAPPING>RECOVERING") {
		t.Errorf("expected the failure to pass through recovery, got %v", hops)
	}
	if !hasHop(hops, "RECOVERING>TERMINATED") {
		t.Errorf("expected recovery to escalate to termination, got %v", hops)
	}
	if !sink.has(alert.KindRecoveryFailed) {
		t.Error("expected a recovery-failed alert for the sessionless run")
	}
	if d.Backs != 0 || d.Launches != 0 {
		t.Errorf("no strategy may touch the device without a session, got backs=%d launches=%d", d.Backs, d.Launches)
	}
}

func hasHop(hops []string, hop string) bool {
	for _, h := range hops {
		if h == hop {
			return true
		}
	}
	return false
}

func TestRun_ActionFailureTriggersRecovery(t *testing.T) {
	d := mock.New(mock.Config{StickyScreen: true, FailOnAction: 1})
	m := &scriptModel{proposals: []json.RawMessage{clickProposal("Next", 0.9)}}

	eng := newTestEngine(d, m, nil, Options{Profile: profile(10)})
	res := eng.Run(context.Background())

	if res.Status != core.RunCompleted {
		t.Fatalf("expected recovery to keep the run alive, got %s (%s)", res.Status, res.Detail)
	}
	if res.Stats.FailedActions != 1 {
		t.Errorf("expected one failed action, got %+v", res.Stats)
	}
	// One cumulative failure selects UI_UNDO: a back press.
	if d.Backs < 1 {
		t.Errorf("expected a back press from recovery, got %d", d.Backs)
	}
}

func TestRun_RejectedProposalFallsBack(t *testing.T) {
	d := mock.New(mock.Config{StickyScreen: true})
	m := &scriptModel{proposals: []json.RawMessage{clickProposal("Next", 0.1)}}
	sink := &recordingSink{}

	eng := newTestEngine(d, m, sink, Options{Profile: profile(10)})
	res := eng.Run(context.Background())

	if res.Status != core.RunCompleted {
		t.Fatalf("expected completed, got %s (%s)", res.Status, res.Detail)
	}
	// The low-confidence click is replaced by back navigation.
	if d.Backs < 1 {
		t.Errorf("expected the fallback back press, got %d", d.Backs)
	}
	if res.Stats.SuccessfulActions != 1 {
		t.Errorf("the fallback still counts as an executed action, got %+v", res.Stats)
	}
	if !sink.has(alert.KindDecisionRejected) {
		t.Error("expected a decision-rejected alert")
	}
}

func TestRun_BlacklistDropsContinuation(t *testing.T) {
	d := mock.New(mock.Config{Screens: []mock.Screen{
		mock.DefaultScreen("Home"),
		mock.DefaultScreen("Settings"),
		mock.DefaultScreen("Deeper"),
	}})
	m := &scriptModel{proposals: []json.RawMessage{clickProposal("Settings", 0.9)}}

	prof := profile(10)
	prof.PathBlacklist = []string{"Settings"}
	eng := newTestEngine(d, m, nil, Options{Profile: prof})
	res := eng.Run(context.Background())

	if res.Reason != core.ReasonQueueExhausted {
		t.Errorf("expected the blacklisted path to end the run, got %s", res.Reason)
	}
	if res.Stats.TotalActions != 1 {
		t.Errorf("expected exactly one action before the drop, got %d", res.Stats.TotalActions)
	}
}

func TestRun_ModelErrorRecovered(t *testing.T) {
	d := mock.New(mock.Config{StickyScreen: true})
	m := &scriptModel{err: fmt.Errorf("model unreachable")}

	eng := newTestEngine(d, m, nil, Options{Profile: profile(10)})
	res := eng.Run(context.Background())

	if res.Status != core.RunCompleted {
		t.Fatalf("a single model error must be recoverable, got %s (%s)", res.Status, res.Detail)
	}
	if res.Stats.FailedActions != 1 {
		t.Errorf("expected one recorded failure, got %+v", res.Stats)
	}
}

func TestRun_TransitionEventsObserved(t *testing.T) {
	d := mock.New(mock.Config{Screens: []mock.Screen{
		mock.DefaultScreen("Home"),
		mock.DefaultScreen("Detail"),
	}})
	m := &scriptModel{proposals: []json.RawMessage{clickProposal("Next", 0.9)}}

	var mu sync.Mutex
	var events []core.TransitionEvent
	eng := newTestEngine(d, m, nil, Options{
		Profile: profile(1),
		Observer: func(ev core.TransitionEvent) {
			mu.Lock()
			events = append(events, ev)
			mu.Unlock()
		},
	})
	res := eng.Run(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if len(events) == 0 {
		t.Fatal("expected transition events")
	}
	first := events[0]
	if first.From != "IDLE" || first.To != "BOOTSTRAPPING" {
		t.Errorf("expected the run to start at IDLE->BOOTSTRAPPING, got %s->%s", first.From, first.To)
	}
	last := events[len(events)-1]
	if last.To != "TERMINATED" {
		t.Errorf("expected the final event to reach TERMINATED, got %s", last.To)
	}
	for _, ev := range events {
		if ev.RunID != res.RunID {
			t.Errorf("expected run id %s on every event, got %s", res.RunID, ev.RunID)
		}
	}
}

func TestRun_PinnedRunID(t *testing.T) {
	d := mock.New(mock.Config{StickyScreen: true})
	m := &scriptModel{proposals: []json.RawMessage{clickProposal("Next", 0.9)}}

	eng := newTestEngine(d, m, nil, Options{Profile: profile(1), RunID: "run-pinned"})
	res := eng.Run(context.Background())

	if res.RunID != "run-pinned" {
		t.Errorf("expected the pinned run id, got %s", res.RunID)
	}
}

func TestRun_EdgeRecordedOnScreenChange(t *testing.T) {
	d := mock.New(mock.Config{Screens: []mock.Screen{
		mock.DefaultScreen("Home"),
		mock.DefaultScreen("Detail"),
	}})
	m := &scriptModel{proposals: []json.RawMessage{clickProposal("Next", 0.9)}}

	eng := newTestEngine(d, m, nil, Options{Profile: profile(5)})
	res := eng.Run(context.Background())

	// Home and Detail both get discovered; the click edge links them.
	if res.Stats.CoverageScreens != 2 {
		t.Fatalf("expected 2 discovered screens, got %d", res.Stats.CoverageScreens)
	}
}
