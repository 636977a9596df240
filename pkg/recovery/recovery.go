// Package recovery maps a run's accumulated failure count to an escalating
// corrective action and executes it against the device.
package recovery

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/pzy560117/uiexplorer/pkg/core"
	"github.com/pzy560117/uiexplorer/pkg/driver"
)

// Strategy is one escalation level of corrective action.
type Strategy int

// Strategies in strictly increasing severity.
const (
	UIUndo       Strategy = iota // back navigation, brief settle
	AppRestart                   // relaunch the target app
	CleanRestart                 // clear app state, then relaunch
	DeviceReboot                 // restart the device
)

// String returns the string representation of Strategy.
func (s Strategy) String() string {
	switch s {
	case UIUndo:
		return "UI_UNDO"
	case AppRestart:
		return "APP_RESTART"
	case CleanRestart:
		return "CLEAN_RESTART"
	case DeviceReboot:
		return "DEVICE_REBOOT"
	default:
		return "unknown"
	}
}

// Select maps the run's cumulative failed-action count to a strategy.
// Pure function; escalation never resets within a run.
func Select(failedActions int) Strategy {
	switch {
	case failedActions <= 3:
		return UIUndo
	case failedActions <= 6:
		return AppRestart
	case failedActions <= 10:
		return CleanRestart
	default:
		return DeviceReboot
	}
}

// SettleDelays configures how long each strategy waits for the UI to settle.
type SettleDelays struct {
	Undo    time.Duration
	Restart time.Duration
	Clean   time.Duration
}

// DefaultSettleDelays returns the production settle delays.
func DefaultSettleDelays() SettleDelays {
	return SettleDelays{
		Undo:    1 * time.Second,
		Restart: 3 * time.Second,
		Clean:   5 * time.Second,
	}
}

// Executor runs recovery strategies against the device. Strategies are
// designed to be idempotent: issuing them is safe even when a timed-out
// operation later completes its device-level effect.
type Executor struct {
	driver driver.DeviceDriver
	delays SettleDelays
	logger zerolog.Logger
}

// NewExecutor creates an Executor.
func NewExecutor(d driver.DeviceDriver, delays SettleDelays, logger zerolog.Logger) *Executor {
	return &Executor{driver: d, delays: delays, logger: logger}
}

// Execute performs the strategy. An error is unrecoverable: the caller is
// expected to terminate the run.
func (e *Executor) Execute(ctx context.Context, s Strategy, sess *driver.Session) error {
	if sess == nil {
		return core.ErrUnrecoverable.WithMessage("no active session")
	}
	e.logger.Info().Str("strategy", s.String()).Msg("executing recovery strategy")

	switch s {
	case UIUndo:
		if err := e.driver.Back(ctx, sess); err != nil {
			return core.ErrUnrecoverable.WithMessage("UI_UNDO failed").WithCause(err)
		}
		e.settle(ctx, e.delays.Undo)
		return nil

	case AppRestart:
		if err := e.driver.TerminateApp(ctx, sess, sess.AppPackage); err != nil {
			return core.ErrUnrecoverable.WithMessage("APP_RESTART failed").WithCause(err)
		}
		if err := e.driver.LaunchApp(ctx, sess, sess.AppPackage); err != nil {
			return core.ErrUnrecoverable.WithMessage("APP_RESTART failed").WithCause(err)
		}
		e.settle(ctx, e.delays.Restart)
		return nil

	case CleanRestart:
		if err := e.driver.ClearState(ctx, sess, sess.AppPackage); err != nil {
			return core.ErrUnrecoverable.WithMessage("CLEAN_RESTART failed").WithCause(err)
		}
		if err := e.driver.LaunchApp(ctx, sess, sess.AppPackage); err != nil {
			return core.ErrUnrecoverable.WithMessage("CLEAN_RESTART failed").WithCause(err)
		}
		e.settle(ctx, e.delays.Clean)
		return nil

	case DeviceReboot:
		// Deliberately unimplemented: the driver surface cannot guarantee a
		// reconnect after reboot, so this strategy always surfaces as an
		// unrecoverable condition terminating the run.
		return core.ErrRebootUnsupported
	}
	return core.ErrUnrecoverable.WithMessage("unknown recovery strategy")
}

func (e *Executor) settle(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
