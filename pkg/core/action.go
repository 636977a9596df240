// Package core defines the shared types for the traversal engine:
// action plans, element information, run statistics and structured errors.
package core

import "fmt"

// ActionType identifies the kind of device interaction an ActionPlan performs.
type ActionType string

// Action type constants.
const (
	ActionClick        ActionType = "CLICK"
	ActionInput        ActionType = "INPUT"
	ActionScroll       ActionType = "SCROLL"
	ActionNavigateBack ActionType = "NAVIGATE_BACK"
	ActionSwipe        ActionType = "SWIPE"
	ActionLongPress    ActionType = "LONG_PRESS"
)

// KnownActionType reports whether t is one of the defined action types.
func KnownActionType(t ActionType) bool {
	switch t {
	case ActionClick, ActionInput, ActionScroll, ActionNavigateBack,
		ActionSwipe, ActionLongPress:
		return true
	}
	return false
}

// ClickParams are the parameters for a CLICK or LONG_PRESS action.
// Target identifies the element; when HasPoint is set the tap lands on
// the absolute coordinates instead.
type ClickParams struct {
	Target   string `json:"target,omitempty"`
	X        int    `json:"x,omitempty"`
	Y        int    `json:"y,omitempty"`
	HasPoint bool   `json:"hasPoint,omitempty"`
}

// InputParams are the parameters for an INPUT action.
type InputParams struct {
	Target string `json:"target,omitempty"`
	Text   string `json:"text"`
}

// ScrollParams are the parameters for a SCROLL action.
type ScrollParams struct {
	Direction string `json:"direction"` // up, down, left, right
}

// SwipeParams are the parameters for a SWIPE action with absolute coordinates.
type SwipeParams struct {
	StartX int `json:"startX"`
	StartY int `json:"startY"`
	EndX   int `json:"endX"`
	EndY   int `json:"endY"`
}

// ActionPlan is one proposed or queued device interaction.
// Exactly one parameter struct matching Type is populated.
// A plan is immutable once enqueued and consumed exactly once.
type ActionPlan struct {
	Type        ActionType    `json:"actionType"`
	Click       *ClickParams  `json:"click,omitempty"`
	Input       *InputParams  `json:"input,omitempty"`
	Scroll      *ScrollParams `json:"scroll,omitempty"`
	Swipe       *SwipeParams  `json:"swipe,omitempty"`
	Description string        `json:"description,omitempty"`
	Confidence  float64       `json:"confidence"`
}

// Describe returns a human-readable description of the plan.
func (p *ActionPlan) Describe() string {
	if p.Description != "" {
		return p.Description
	}
	switch p.Type {
	case ActionClick:
		if p.Click != nil && p.Click.Target != "" {
			return fmt.Sprintf("click %q", p.Click.Target)
		}
		return "click"
	case ActionInput:
		if p.Input != nil && p.Input.Target != "" {
			return fmt.Sprintf("input into %q", p.Input.Target)
		}
		return "input"
	case ActionScroll:
		if p.Scroll != nil {
			return "scroll " + p.Scroll.Direction
		}
		return "scroll"
	case ActionNavigateBack:
		return "navigate back"
	case ActionSwipe:
		return "swipe"
	case ActionLongPress:
		if p.Click != nil && p.Click.Target != "" {
			return fmt.Sprintf("long-press %q", p.Click.Target)
		}
		return "long-press"
	}
	return string(p.Type)
}

// BackPlan returns the deterministic back-navigation plan used as the
// default fallback when a model proposal is rejected.
func BackPlan(reason string) *ActionPlan {
	return &ActionPlan{
		Type:        ActionNavigateBack,
		Description: "navigate back (" + reason + ")",
		Confidence:  1.0,
	}
}
