// Package safety filters model-proposed actions before they are allowed to
// run. Four ordered checks short-circuit on the first failure: response
// shape, action-type whitelist, type-specific parameters, confidence floor.
// Checks return result values rather than errors; the caller decides how to
// react to a rejection.
package safety

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/pzy560117/uiexplorer/pkg/core"
)

// ConfidenceFloor is the minimum confidence a proposal must carry.
const ConfidenceFloor = 0.3

// DefaultMaxInputLen caps the length of model-proposed input text.
const DefaultMaxInputLen = 500

// Result is the outcome of validating one model proposal. On rejection,
// Reason and Field describe the violation; Fallback, when non-nil, is the
// deterministic action the caller should run instead. A shape violation
// offers no fallback: the caller supplies its own default.
type Result struct {
	Passed   bool
	Plan     *core.ActionPlan
	Reason   string
	Field    string
	Fallback *core.ActionPlan
}

// Config for a Validator.
type Config struct {
	// Allowed is the run's action-type whitelist.
	Allowed []core.ActionType
	// ScreenWidth/ScreenHeight bound proposed tap coordinates.
	ScreenWidth  int
	ScreenHeight int
	// MaxInputLen caps input text length; 0 means DefaultMaxInputLen.
	MaxInputLen int
}

// Validator validates model proposals against a response-shape contract,
// an action-type whitelist, parameter rules, and a confidence floor.
// Stateless given its configuration.
type Validator struct {
	allowed     map[core.ActionType]bool
	width       int
	height      int
	maxInputLen int
}

// New creates a Validator.
func New(cfg Config) *Validator {
	allowed := make(map[core.ActionType]bool, len(cfg.Allowed))
	for _, t := range cfg.Allowed {
		allowed[t] = true
	}
	width, height := cfg.ScreenWidth, cfg.ScreenHeight
	if width <= 0 {
		width = 1080
	}
	if height <= 0 {
		height = 2400
	}
	maxLen := cfg.MaxInputLen
	if maxLen <= 0 {
		maxLen = DefaultMaxInputLen
	}
	return &Validator{allowed: allowed, width: width, height: height, maxInputLen: maxLen}
}

// Allowed returns the configured action-type whitelist.
func (v *Validator) Allowed() []core.ActionType {
	out := make([]core.ActionType, 0, len(v.allowed))
	for _, t := range []core.ActionType{
		core.ActionClick, core.ActionInput, core.ActionScroll,
		core.ActionNavigateBack, core.ActionSwipe, core.ActionLongPress,
	} {
		if v.allowed[t] {
			out = append(out, t)
		}
	}
	return out
}

// envelope is the response shape expected from the decision model.
type envelope struct {
	ActionPlan *rawPlan `json:"actionPlan"`
}

type rawPlan struct {
	ActionType  string          `json:"actionType"`
	Params      json.RawMessage `json:"params"`
	Description string          `json:"description"`
	Confidence  *float64        `json:"confidence"`
}

// Sensitive element keywords. A proposed click whose target matches any of
// these is rejected regardless of confidence.
var sensitiveTargets = []string{
	"delete", "uninstall", "pay", "purchase", "transfer", "logout",
	"删除", "卸载", "支付", "购买", "转账", "退出",
}

// Sensitive input patterns: script injection, destructive SQL, destructive
// shell, and long digit runs resembling card numbers or PINs.
var (
	scriptPattern   = regexp.MustCompile(`(?i)<\s*script`)
	sqlDropPattern  = regexp.MustCompile(`(?i)drop\s+table`)
	shellRmPattern  = regexp.MustCompile(`rm\s+-rf`)
	longDigitRun    = regexp.MustCompile(`\d{13,}`)
	scrollDirection = map[string]bool{"up": true, "down": true, "left": true, "right": true}
)

// Validate runs the four ordered checks against the raw model response.
func (v *Validator) Validate(raw json.RawMessage) Result {
	// 1. Shape check. No fallback on failure: the caller owns the default.
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Result{Reason: "response is not a JSON object: " + err.Error(), Field: "response"}
	}
	if env.ActionPlan == nil {
		return Result{Reason: "response has no actionPlan", Field: "actionPlan"}
	}
	plan := env.ActionPlan
	actionType := core.ActionType(plan.ActionType)
	if !core.KnownActionType(actionType) {
		return Result{
			Reason: fmt.Sprintf("unknown actionType %q", plan.ActionType),
			Field:  "actionPlan.actionType",
		}
	}
	if len(plan.Params) == 0 || !isJSONObject(plan.Params) {
		return Result{Reason: "params must be an object", Field: "actionPlan.params"}
	}
	if plan.Confidence == nil || *plan.Confidence < 0 || *plan.Confidence > 1 {
		return Result{Reason: "confidence must be in [0,1]", Field: "actionPlan.confidence"}
	}

	// 2. Whitelist check.
	if !v.allowed[actionType] {
		reason := fmt.Sprintf("actionType %q is not in the run's whitelist", plan.ActionType)
		return Result{Reason: reason, Field: "actionPlan.actionType", Fallback: core.BackPlan(reason)}
	}

	// 3. Type-specific parameter check.
	built, reason, field := v.checkParams(actionType, plan)
	if reason != "" {
		return Result{Reason: reason, Field: field, Fallback: core.BackPlan(reason)}
	}

	// 4. Confidence floor.
	if *plan.Confidence < ConfidenceFloor {
		reason := fmt.Sprintf("confidence %.2f below floor %.2f", *plan.Confidence, ConfidenceFloor)
		return Result{Reason: reason, Field: "actionPlan.confidence", Fallback: core.BackPlan(reason)}
	}

	built.Confidence = *plan.Confidence
	built.Description = plan.Description
	return Result{Passed: true, Plan: built}
}

// checkParams validates and builds the typed parameter struct for the
// action. Returns the built plan, or a rejection reason and field.
func (v *Validator) checkParams(t core.ActionType, plan *rawPlan) (*core.ActionPlan, string, string) {
	switch t {
	case core.ActionClick, core.ActionLongPress:
		var p struct {
			Target interface{} `json:"target"`
			X      *int        `json:"x"`
			Y      *int        `json:"y"`
		}
		if err := json.Unmarshal(plan.Params, &p); err != nil {
			return nil, "malformed click params: " + err.Error(), "actionPlan.params"
		}
		target := stringify(p.Target)
		if strings.TrimSpace(target) == "" {
			return nil, "click requires a non-empty target", "actionPlan.params.target"
		}
		if kw := matchSensitiveTarget(target); kw != "" {
			reason := fmt.Sprintf("target %q matches sensitive element keyword %q", target, kw)
			return nil, reason, "actionPlan.params.target"
		}
		click := &core.ClickParams{Target: target}
		if p.X != nil || p.Y != nil {
			if p.X == nil || p.Y == nil {
				return nil, "click coordinates require both x and y", "actionPlan.params"
			}
			if *p.X < 0 || *p.X > v.width || *p.Y < 0 || *p.Y > v.height {
				reason := fmt.Sprintf("coordinates (%d,%d) outside screen bound %dx%d",
					*p.X, *p.Y, v.width, v.height)
				return nil, reason, "actionPlan.params"
			}
			click.X, click.Y, click.HasPoint = *p.X, *p.Y, true
		}
		return &core.ActionPlan{Type: t, Click: click}, "", ""

	case core.ActionInput:
		var p struct {
			Target string `json:"target"`
			Text   string `json:"text"`
		}
		if err := json.Unmarshal(plan.Params, &p); err != nil {
			return nil, "malformed input params: " + err.Error(), "actionPlan.params"
		}
		if p.Text == "" {
			return nil, "input requires non-empty text", "actionPlan.params.text"
		}
		if len(p.Text) > v.maxInputLen {
			reason := fmt.Sprintf("input text length %d exceeds ceiling %d", len(p.Text), v.maxInputLen)
			return nil, reason, "actionPlan.params.text"
		}
		if reason := matchSensitiveInput(p.Text); reason != "" {
			return nil, reason, "actionPlan.params.text"
		}
		return &core.ActionPlan{Type: t, Input: &core.InputParams{Target: p.Target, Text: p.Text}}, "", ""

	case core.ActionScroll, core.ActionSwipe:
		var p struct {
			Direction string `json:"direction"`
		}
		if err := json.Unmarshal(plan.Params, &p); err != nil {
			return nil, "malformed scroll params: " + err.Error(), "actionPlan.params"
		}
		if t == core.ActionScroll && !scrollDirection[strings.ToLower(p.Direction)] {
			reason := fmt.Sprintf("scroll direction %q must be one of up/down/left/right", p.Direction)
			return nil, reason, "actionPlan.params.direction"
		}
		if t == core.ActionSwipe {
			var sp core.SwipeParams
			if err := json.Unmarshal(plan.Params, &sp); err != nil {
				return nil, "malformed swipe params: " + err.Error(), "actionPlan.params"
			}
			return &core.ActionPlan{Type: t, Swipe: &sp}, "", ""
		}
		return &core.ActionPlan{Type: t, Scroll: &core.ScrollParams{Direction: strings.ToLower(p.Direction)}}, "", ""

	case core.ActionNavigateBack:
		// No additional constraint.
		return &core.ActionPlan{Type: t}, "", ""
	}
	return nil, fmt.Sprintf("unsupported actionType %q", t), "actionPlan.actionType"
}

// matchSensitiveTarget returns the matched keyword, or "".
func matchSensitiveTarget(target string) string {
	lower := strings.ToLower(target)
	for _, kw := range sensitiveTargets {
		if strings.Contains(lower, kw) {
			return kw
		}
	}
	return ""
}

// matchSensitiveInput returns a rejection reason, or "".
func matchSensitiveInput(text string) string {
	switch {
	case scriptPattern.MatchString(text):
		return "input text matches script injection pattern"
	case sqlDropPattern.MatchString(text):
		return "input text matches destructive SQL pattern"
	case shellRmPattern.MatchString(text):
		return "input text matches destructive shell pattern"
	case longDigitRun.MatchString(text):
		return "input text contains a long digit run resembling a card number or PIN"
	}
	return ""
}

func stringify(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprintf("%v", x)
	}
}

func isJSONObject(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return strings.HasPrefix(trimmed, "{")
}
