// Package decision defines the client for the vision-language decision
// model that proposes the next interaction for a screen. The model's output
// is returned raw; the safety validator owns shape checking.
package decision

import (
	"context"
	"encoding/json"

	"github.com/pzy560117/uiexplorer/pkg/core"
)

// HistoryEntry summarizes one recently executed action for the model.
type HistoryEntry struct {
	Action    string `json:"action"`
	Outcome   string `json:"outcome"` // success, failed, rejected
	Signature string `json:"signature,omitempty"`
}

// ScreenSummary is the model-facing view of the current screen.
type ScreenSummary struct {
	Signature   string             `json:"signature"`
	PrimaryText string             `json:"primaryText,omitempty"`
	Elements    []core.ElementInfo `json:"elements,omitempty"`
}

// Context is everything the model sees when proposing the next action.
type Context struct {
	TaskID         string            `json:"taskId"`
	DeviceID       string            `json:"deviceId"`
	AppPackage     string            `json:"appPackage"`
	Screen         ScreenSummary     `json:"screen"`
	History        []HistoryEntry    `json:"history,omitempty"`
	AllowedActions []core.ActionType `json:"allowedActions"`
}

// Proposal is the model's raw response. ActionPlan stays unparsed so the
// safety validator can run its own shape contract against it.
type Proposal struct {
	ActionPlan json.RawMessage
	Reasoning  string
}

// Model proposes the next action for a screen. Implementations may return
// core.ErrMalformedDecision when the response body is not JSON.
type Model interface {
	GenerateAction(ctx context.Context, dc Context) (*Proposal, error)
}
