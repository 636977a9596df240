// Package driver defines the device driver consumed by the traversal core.
// Implementations wrap a concrete wire protocol (UIAutomator2-style HTTP,
// in-memory mock); the core treats them as opaque capabilities.
package driver

import (
	"context"

	"github.com/pzy560117/uiexplorer/pkg/core"
)

// Session is the handle for one established device session. It lives inside
// the run context owning it and is passed to every driver call; there is no
// process-wide session registry.
type Session struct {
	ID         string
	DeviceID   string
	AppPackage string
}

// DeviceDriver executes interactions on a device. All calls are blocking
// suspension points and must honor the context deadline; a deadline that
// fires does not guarantee the device-level effect was cancelled.
type DeviceDriver interface {
	// CreateSession establishes a session against the device.
	CreateSession(ctx context.Context, deviceID, appPackage string) (*Session, error)

	// DeleteSession tears the session down. Idempotent on the driver side.
	DeleteSession(ctx context.Context, s *Session) error

	// LaunchApp starts (or foregrounds) the target app.
	LaunchApp(ctx context.Context, s *Session, appPackage string) error

	// TerminateApp stops the target app.
	TerminateApp(ctx context.Context, s *Session, appPackage string) error

	// ClearState clears the target app's data.
	ClearState(ctx context.Context, s *Session, appPackage string) error

	// Screenshot captures the current screen as PNG bytes.
	Screenshot(ctx context.Context, s *Session) ([]byte, error)

	// PageSource captures the current UI hierarchy.
	PageSource(ctx context.Context, s *Session) (*core.UINode, error)

	// Click taps the element or point described by the params.
	Click(ctx context.Context, s *Session, p core.ClickParams) error

	// Input types text into the element described by the params.
	Input(ctx context.Context, s *Session, p core.InputParams) error

	// Scroll scrolls the screen in the given direction.
	Scroll(ctx context.Context, s *Session, p core.ScrollParams) error

	// Swipe performs an absolute-coordinate swipe gesture.
	Swipe(ctx context.Context, s *Session, p core.SwipeParams) error

	// LongPress long-presses the element or point described by the params.
	LongPress(ctx context.Context, s *Session, p core.ClickParams) error

	// Back issues a back navigation. Safe to issue at any time.
	Back(ctx context.Context, s *Session) error

	// Reboot restarts the device. Implementations may not support it.
	Reboot(ctx context.Context, deviceID string) error
}

// Execute dispatches one action plan to the matching driver call.
func Execute(ctx context.Context, d DeviceDriver, s *Session, plan *core.ActionPlan) error {
	switch plan.Type {
	case core.ActionClick:
		p := core.ClickParams{}
		if plan.Click != nil {
			p = *plan.Click
		}
		return d.Click(ctx, s, p)
	case core.ActionInput:
		p := core.InputParams{}
		if plan.Input != nil {
			p = *plan.Input
		}
		return d.Input(ctx, s, p)
	case core.ActionScroll:
		p := core.ScrollParams{Direction: "down"}
		if plan.Scroll != nil {
			p = *plan.Scroll
		}
		return d.Scroll(ctx, s, p)
	case core.ActionSwipe:
		p := core.SwipeParams{}
		if plan.Swipe != nil {
			p = *plan.Swipe
		}
		return d.Swipe(ctx, s, p)
	case core.ActionLongPress:
		p := core.ClickParams{}
		if plan.Click != nil {
			p = *plan.Click
		}
		return d.LongPress(ctx, s, p)
	case core.ActionNavigateBack:
		return d.Back(ctx, s)
	}
	return core.ErrActionFailed.WithMessage("unknown action type: " + string(plan.Type))
}
