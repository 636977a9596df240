// Package engine drives one autonomous traversal run: an explicit state
// machine over a run context that owns the visited graph, the priority
// queues, the device session, and the run counters.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pzy560117/uiexplorer/pkg/alert"
	"github.com/pzy560117/uiexplorer/pkg/config"
	"github.com/pzy560117/uiexplorer/pkg/core"
	"github.com/pzy560117/uiexplorer/pkg/decision"
	"github.com/pzy560117/uiexplorer/pkg/driver"
	"github.com/pzy560117/uiexplorer/pkg/fingerprint"
	"github.com/pzy560117/uiexplorer/pkg/graph"
	"github.com/pzy560117/uiexplorer/pkg/locator"
	"github.com/pzy560117/uiexplorer/pkg/recovery"
	"github.com/pzy560117/uiexplorer/pkg/safety"
)

const (
	// historyLimit caps the action history sent to the decision model.
	historyLimit = 10
	// maxSummaryElements caps the element list sent to the decision model.
	maxSummaryElements = 40

	bootstrapAttempts = 3
	bootstrapDelay    = 2 * time.Second
)

// RunContext is all per-traversal mutable state. Exclusively owned by the
// Engine driving it; never shared across runs.
type RunContext struct {
	RunID      string
	DeviceID   string
	AppPackage string
	Session    *driver.Session

	Graph   *graph.VisitedGraph
	Queues  *graph.ActionQueues
	Stats   core.RunStats
	Profile config.CoverageProfile

	StartedAt time.Time

	// Capture of the most recent inspection.
	CurrentSignature  fingerprint.Signature
	CurrentDOM        *core.UINode
	CurrentScreenshot []byte

	// Locators tracks candidate validation outcomes across the whole run
	// so success rates accumulate screen over screen.
	Locators *locator.Tracker

	// For edge recording: the screen and action that led to the current one.
	LastSignature   string
	LastActionLabel string

	rootSignature string
	history       []decision.HistoryEntry
	locatorMemory map[string][]*locator.Candidate

	terminalStatus core.RunStatus
	terminalReason string
	terminalDetail string
}

// Result is the outcome of one traversal run.
type Result struct {
	RunID  string
	Status core.RunStatus
	Reason string
	Detail string
	Stats  core.RunStats
}

// Options configures an Engine beyond its collaborators.
type Options struct {
	DeviceID   string
	AppPackage string
	Profile    config.CoverageProfile

	// RunID pins the run identifier; empty generates one.
	RunID string

	// SettleDelay is the pause applied in the verification step. Zero is
	// allowed (tests).
	SettleDelay time.Duration
	// StateTimeout bounds every transition except bootstrap; zero means
	// the 30s default.
	StateTimeout time.Duration
	// BootstrapTimeout bounds session establishment; zero means the 120s
	// default.
	BootstrapTimeout time.Duration
	// BootstrapDelay is the base delay between bootstrap attempts (the
	// n-th retry waits n times this); zero means the 2s default.
	BootstrapDelay time.Duration

	// Observer receives every transition event. Optional.
	Observer func(core.TransitionEvent)
}

// Engine executes one traversal run at a time.
type Engine struct {
	drv       driver.DeviceDriver
	model     decision.Model
	validator *safety.Validator
	sink      alert.Sink
	recoverer *recovery.Executor
	logger    zerolog.Logger
	opts      Options
}

// New creates an Engine. A nil sink is replaced with a no-op sink.
func New(drv driver.DeviceDriver, model decision.Model, validator *safety.Validator,
	recoverer *recovery.Executor, sink alert.Sink, logger zerolog.Logger, opts Options) *Engine {
	if sink == nil {
		sink = alert.Nop{}
	}
	if opts.StateTimeout <= 0 {
		opts.StateTimeout = 30 * time.Second
	}
	if opts.BootstrapTimeout <= 0 {
		opts.BootstrapTimeout = 120 * time.Second
	}
	if opts.BootstrapDelay <= 0 {
		opts.BootstrapDelay = bootstrapDelay
	}
	return &Engine{
		drv:       drv,
		model:     model,
		validator: validator,
		sink:      sink,
		recoverer: recoverer,
		logger:    logger,
		opts:      opts,
	}
}

// Run executes the traversal until the terminal state. The returned result
// is always non-nil; the caller releases the device reservation and the
// session once Run returns.
func (e *Engine) Run(ctx context.Context) *Result {
	runID := e.opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	rc := &RunContext{
		RunID:         runID,
		DeviceID:      e.opts.DeviceID,
		AppPackage:    e.opts.AppPackage,
		Graph:         graph.NewVisitedGraph(),
		Queues:        graph.NewActionQueues(),
		Locators:      locator.NewTracker(e.sink),
		Profile:       e.opts.Profile,
		StartedAt:     time.Now(),
		locatorMemory: make(map[string][]*locator.Candidate),
	}

	e.logger.Info().
		Str("run_id", rc.RunID).
		Str("device", rc.DeviceID).
		Str("app", rc.AppPackage).
		Msg("traversal run starting")

	state := StateIdle
	e.emit(rc, state, StateBootstrapping, true, nil, nil)
	state = StateBootstrapping

	for state != StateTerminated {
		next, err := e.step(ctx, rc, state)
		e.emit(rc, state, next, err == nil, err, nil)
		state = next
	}

	if rc.Session != nil {
		_ = e.drv.DeleteSession(context.Background(), rc.Session)
	}

	e.logger.Info().
		Str("run_id", rc.RunID).
		Str("status", rc.terminalStatus.String()).
		Str("reason", rc.terminalReason).
		Int("actions", rc.Stats.TotalActions).
		Int("screens", rc.Stats.CoverageScreens).
		Msg("traversal run finished")

	return &Result{
		RunID:  rc.RunID,
		Status: rc.terminalStatus,
		Reason: rc.terminalReason,
		Detail: rc.terminalDetail,
		Stats:  rc.Stats,
	}
}

// step dispatches one state handler under its per-state time budget. The
// budget is enforced as a context deadline: a slow device effect is not
// forcibly cancelled, only its result is discarded, so recovery must stay
// idempotent against late side effects.
func (e *Engine) step(ctx context.Context, rc *RunContext, state State) (State, error) {
	budget := e.opts.StateTimeout
	if state == StateBootstrapping {
		budget = e.opts.BootstrapTimeout
	}
	sctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	var next State
	var err error
	switch state {
	case StateBootstrapping:
		next, err = e.bootstrap(sctx, rc)
	case StateTraversing:
		next, err = e.traverse(rc)
	case StateInspecting:
		next, err = e.inspect(sctx, rc)
	case StateExecuting:
		next, err = e.execute(sctx, rc)
	case StateVerifying:
		next, err = e.verify(sctx, rc)
	case StateRecovering:
		next, err = e.recoverRun(sctx, rc)
	default:
		return StateTerminated, fmt.Errorf("no handler for state %s", state)
	}

	if err != nil && errors.Is(err, context.DeadlineExceeded) && state != StateRecovering {
		e.logger.Warn().Str("state", state.String()).Msg("transition exceeded its time budget")
		return StateRecovering, core.ErrTransitionTimeout.WithCause(err)
	}
	return next, err
}

// bootstrap establishes the device session and launches the app with
// bounded linear-backoff retry. Exhausting the attempts hands the failure
// to the recovery step, which escalates to termination when no session was
// ever established, keeping the bootstrap failure distinct from a generic
// execution failure.
func (e *Engine) bootstrap(ctx context.Context, rc *RunContext) (State, error) {
	attempt := 0
	op := func() error {
		attempt++
		sess, err := e.drv.CreateSession(ctx, rc.DeviceID, rc.AppPackage)
		if err != nil {
			e.logger.Warn().Int("attempt", attempt).Err(err).Msg("session bootstrap failed")
			return err
		}
		if err := e.drv.LaunchApp(ctx, sess, rc.AppPackage); err != nil {
			e.logger.Warn().Int("attempt", attempt).Err(err).Msg("app launch failed")
			return err
		}
		rc.Session = sess
		return nil
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(&linearBackOff{delay: e.opts.BootstrapDelay}, bootstrapAttempts-1), ctx)
	if err := backoff.Retry(op, b); err != nil {
		rc.terminalDetail = err.Error()
		return StateRecovering, core.ErrBootstrapFailed.WithCause(err)
	}
	return StateInspecting, nil
}

// traverse evaluates the termination predicates and consumes the next
// queued action. Blacklisted actions are dropped without a device
// interaction and the state loops.
func (e *Engine) traverse(rc *RunContext) (State, error) {
	for {
		if time.Since(rc.StartedAt) >= rc.Profile.Timeout.Std() ||
			rc.Stats.TotalActions >= rc.Profile.MaxActions {
			rc.terminalStatus = core.RunCompleted
			rc.terminalReason = core.ReasonCoverageCompleted
			return StateTerminated, nil
		}

		qa, tier, ok := rc.Queues.Dequeue()
		if !ok {
			rc.terminalStatus = core.RunCompleted
			rc.terminalReason = core.ReasonQueueExhausted
			return StateTerminated, nil
		}
		if rule := e.blacklisted(rc, qa); rule != "" {
			e.logger.Debug().
				Str("action", qa.Plan.Describe()).
				Str("rule", rule).
				Msg("dropping blacklisted action")
			continue
		}
		e.logger.Debug().
			Str("tier", tier.String()).
			Str("action", qa.Plan.Describe()).
			Msg("action dequeued")
		return StateInspecting, nil
	}
}

// inspect captures the current screen, records the transition edge, and
// routes new screens to execution and visited ones back to traversal.
func (e *Engine) inspect(ctx context.Context, rc *RunContext) (State, error) {
	shot, err := e.drv.Screenshot(ctx, rc.Session)
	if err != nil {
		rc.Stats.FailedActions++
		return StateRecovering, err
	}
	dom, err := e.drv.PageSource(ctx, rc.Session)
	if err != nil {
		rc.Stats.FailedActions++
		return StateRecovering, err
	}

	sig := fingerprint.Fingerprint(shot, dom)
	rc.CurrentSignature = sig
	rc.CurrentDOM = dom
	rc.CurrentScreenshot = shot

	if rc.LastSignature != "" && rc.LastActionLabel != "" && rc.LastSignature != sig.Hash {
		rc.Graph.AddEdge(rc.LastSignature, sig.Hash, rc.LastActionLabel)
	}
	if rc.rootSignature == "" {
		rc.rootSignature = sig.Hash
	}

	first := rc.Graph.Observe(sig.Hash)
	if !first {
		e.logger.Debug().Str("signature", sig.Hash).
			Int("visits", rc.Graph.VisitCount(sig.Hash)).
			Msg("screen already visited")
		return StateTraversing, nil
	}

	rc.Stats.CoverageScreens++
	e.logger.Info().Str("signature", sig.Hash).
		Int("screens", rc.Stats.CoverageScreens).
		Msg("new screen discovered")
	return StateExecuting, nil
}

// execute asks the decision model for the next action, validates it,
// resolves its element target through the locator candidates, and performs
// the resulting (possibly fallback) action on the device.
func (e *Engine) execute(ctx context.Context, rc *RunContext) (State, error) {
	plan, err := e.nextPlan(ctx, rc)
	if err != nil {
		rc.Stats.FailedActions++
		return StateRecovering, err
	}

	rc.Stats.TotalActions++
	plan, err = e.resolveTarget(ctx, rc, plan)
	if err != nil {
		rc.Stats.FailedActions++
		rc.pushHistory(decision.HistoryEntry{
			Action:    "locator resolution failed",
			Outcome:   "failed",
			Signature: rc.CurrentSignature.Hash,
		})
		return StateRecovering, err
	}
	if err := driver.Execute(ctx, e.drv, rc.Session, plan); err != nil {
		rc.Stats.FailedActions++
		rc.pushHistory(decision.HistoryEntry{
			Action:    plan.Describe(),
			Outcome:   "failed",
			Signature: rc.CurrentSignature.Hash,
		})
		return StateRecovering, err
	}

	rc.Stats.SuccessfulActions++
	rc.LastSignature = rc.CurrentSignature.Hash
	rc.LastActionLabel = plan.Describe()
	rc.pushHistory(decision.HistoryEntry{
		Action:    plan.Describe(),
		Outcome:   "success",
		Signature: rc.CurrentSignature.Hash,
	})

	// One continuation ticket per successful action keeps the traversal
	// alive; its target path is what the blacklist is matched against.
	rc.Queues.Enqueue(graph.TierPrimary, graph.QueuedAction{
		Plan:       *plan,
		TargetPath: planTarget(plan),
	})
	return StateVerifying, nil
}

// verify applies the settle delay and hands control back to traversal.
func (e *Engine) verify(ctx context.Context, rc *RunContext) (State, error) {
	if e.opts.SettleDelay > 0 {
		t := time.NewTimer(e.opts.SettleDelay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			rc.Stats.FailedActions++
			return StateRecovering, ctx.Err()
		}
	}
	return StateTraversing, nil
}

// recoverRun selects the strategy for the cumulative failure count and
// executes it. A strategy failure terminates the run.
func (e *Engine) recoverRun(ctx context.Context, rc *RunContext) (State, error) {
	if rc.Session == nil {
		// Bootstrap never produced a session, so no strategy can act on
		// the device; escalate straight to termination.
		e.sink.Raise(alert.KindRecoveryFailed, alert.SeverityCritical,
			"no device session to recover, terminating run",
			map[string]interface{}{"runId": rc.RunID, "detail": rc.terminalDetail})
		rc.terminalStatus = core.RunFailed
		rc.terminalReason = core.ReasonBootstrapFailed
		return StateTerminated, core.ErrBootstrapFailed
	}

	strategy := recovery.Select(rc.Stats.FailedActions)
	if err := e.recoverer.Execute(ctx, strategy, rc.Session); err != nil {
		e.sink.Raise(alert.KindRecoveryFailed, alert.SeverityCritical,
			"recovery strategy failed, terminating run",
			map[string]interface{}{
				"runId":    rc.RunID,
				"strategy": strategy.String(),
				"failures": rc.Stats.FailedActions,
				"error":    err.Error(),
			})
		rc.terminalStatus = core.RunFailed
		rc.terminalReason = core.ReasonUnrecoverable
		rc.terminalDetail = fmt.Sprintf("%s: %v", strategy, err)
		return StateTerminated, err
	}
	// Recovery navigated away; re-fingerprint before acting again.
	rc.LastActionLabel = ""
	return StateTraversing, nil
}

// nextPlan consults the decision model and runs the proposal through the
// safety validator. Rejections fall back to deterministic back navigation
// rather than failing the run.
func (e *Engine) nextPlan(ctx context.Context, rc *RunContext) (*core.ActionPlan, error) {
	if rc.Profile.MaxDepth > 0 {
		depth := len(rc.Graph.PathTo(rc.rootSignature, rc.CurrentSignature.Hash))
		if depth >= rc.Profile.MaxDepth {
			return core.BackPlan("navigation depth limit reached"), nil
		}
	}

	dc := decision.Context{
		TaskID:         rc.RunID,
		DeviceID:       rc.DeviceID,
		AppPackage:     rc.AppPackage,
		Screen:         summarize(rc.CurrentSignature, rc.CurrentDOM),
		History:        rc.history,
		AllowedActions: e.validator.Allowed(),
	}
	proposal, err := e.model.GenerateAction(ctx, dc)
	if err != nil {
		return nil, err
	}

	res := e.validator.Validate(proposal.ActionPlan)
	if res.Passed {
		return res.Plan, nil
	}

	e.logger.Warn().
		Str("reason", res.Reason).
		Str("field", res.Field).
		Msg("model proposal rejected")
	e.sink.Raise(alert.KindDecisionRejected, alert.SeverityWarning, res.Reason,
		map[string]interface{}{
			"runId":     rc.RunID,
			"field":     res.Field,
			"signature": rc.CurrentSignature.Hash,
		})
	rc.pushHistory(decision.HistoryEntry{
		Action:    "proposal rejected: " + res.Reason,
		Outcome:   "rejected",
		Signature: rc.CurrentSignature.Hash,
	})

	if res.Fallback != nil {
		return res.Fallback, nil
	}
	return core.BackPlan(res.Reason), nil
}

// pushHistory appends to the bounded history window sent to the model.
func (rc *RunContext) pushHistory(entry decision.HistoryEntry) {
	rc.history = append(rc.history, entry)
	if len(rc.history) > historyLimit {
		rc.history = rc.history[len(rc.history)-historyLimit:]
	}
}

// emit publishes one transition event to the observer, if any.
func (e *Engine) emit(rc *RunContext, from, to State, success bool, err error, data map[string]interface{}) {
	if e.opts.Observer == nil {
		return
	}
	ev := core.TransitionEvent{
		RunID:   rc.RunID,
		From:    from.String(),
		To:      to.String(),
		Success: success,
		Data:    data,
		At:      time.Now(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	e.opts.Observer(ev)
}

// blacklisted returns the first matching blacklist rule, or "".
func (e *Engine) blacklisted(rc *RunContext, qa graph.QueuedAction) string {
	if qa.TargetPath == "" {
		return ""
	}
	for _, rule := range rc.Profile.PathBlacklist {
		if rule != "" && strings.Contains(qa.TargetPath, rule) {
			return rule
		}
	}
	return ""
}

// planTarget extracts the element target a plan aims at, for blacklist
// matching. Coordinate-only and directional plans have no target.
func planTarget(p *core.ActionPlan) string {
	switch {
	case p.Click != nil:
		return p.Click.Target
	case p.Input != nil:
		return p.Input.Target
	}
	return ""
}

// summarize builds the model-facing view of the current screen: the
// signature plus the interactive elements of the hierarchy.
func summarize(sig fingerprint.Signature, dom *core.UINode) decision.ScreenSummary {
	s := decision.ScreenSummary{
		Signature:   sig.Hash,
		PrimaryText: sig.PrimaryText,
	}
	if dom == nil {
		return s
	}
	dom.Walk(func(n *core.UINode, _ int) bool {
		if len(s.Elements) >= maxSummaryElements {
			return false
		}
		if n.Clickable || n.Scrollable || (n.Text != "" && n.Enabled) {
			s.Elements = append(s.Elements, core.ElementInfo{
				ResourceID:  n.ResourceID,
				Text:        n.Text,
				ContentDesc: n.ContentDesc,
				Class:       n.Class,
				Bounds:      n.Bounds,
				Visible:     true,
				Enabled:     n.Enabled,
				Clickable:   n.Clickable,
			})
		}
		return true
	})
	return s
}

// linearBackOff waits attempt x delay between retries.
type linearBackOff struct {
	attempt int
	delay   time.Duration
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return time.Duration(b.attempt) * b.delay
}

func (b *linearBackOff) Reset() { b.attempt = 0 }
