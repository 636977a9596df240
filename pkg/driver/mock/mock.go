// Package mock provides an in-memory device driver for testing without a
// real device.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/pzy560117/uiexplorer/pkg/core"
	"github.com/pzy560117/uiexplorer/pkg/driver"
)

// Screen is one scripted screen the mock presents.
type Screen struct {
	Screenshot []byte
	DOM        *core.UINode
}

// Config configures mock driver behavior.
type Config struct {
	// Screens presented in order; each successful interaction advances to
	// the next screen. The last screen repeats once the script runs out.
	Screens []Screen
	// FailOnAction makes interaction N fail (1-indexed). 0 = never fail.
	FailOnAction int
	// FailSession makes CreateSession fail every time.
	FailSession bool
	// StickyScreen disables advancing: every interaction re-presents the
	// current screen.
	StickyScreen bool
}

// Driver is a mock implementation of driver.DeviceDriver.
type Driver struct {
	mu      sync.Mutex
	cfg     Config
	current int

	// Counters for assertions.
	Actions     int
	Backs       int
	Launches    int
	ClearStates int
	Reboots     int
}

// New creates a mock driver. With no configured screens, a single default
// screen is presented.
func New(cfg Config) *Driver {
	if len(cfg.Screens) == 0 {
		cfg.Screens = []Screen{DefaultScreen("Home")}
	}
	return &Driver{cfg: cfg}
}

// DefaultScreen builds a minimal one-button screen labelled by title.
func DefaultScreen(title string) Screen {
	return Screen{
		Screenshot: []byte("png:" + title),
		DOM: &core.UINode{
			Class:  "android.widget.FrameLayout",
			Bounds: core.Bounds{Width: 1080, Height: 2400},
			Children: []*core.UINode{
				{
					Class:   "android.widget.TextView",
					Text:    title,
					Enabled: true,
					Bounds:  core.Bounds{X: 0, Y: 100, Width: 1080, Height: 120},
				},
				{
					Class:      "android.widget.Button",
					ResourceID: "com.example:id/next",
					Text:       "Next",
					Clickable:  true,
					Enabled:    true,
					Bounds:     core.Bounds{X: 340, Y: 2000, Width: 400, Height: 140},
				},
			},
		},
	}
}

// CreateSession establishes a mock session.
func (d *Driver) CreateSession(_ context.Context, deviceID, appPackage string) (*driver.Session, error) {
	if d.cfg.FailSession {
		return nil, fmt.Errorf("mock: session refused for device %s", deviceID)
	}
	return &driver.Session{
		ID:         uuid.NewString(),
		DeviceID:   deviceID,
		AppPackage: appPackage,
	}, nil
}

// DeleteSession is a no-op.
func (d *Driver) DeleteSession(context.Context, *driver.Session) error {
	return nil
}

// LaunchApp records the launch.
func (d *Driver) LaunchApp(context.Context, *driver.Session, string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Launches++
	return nil
}

// TerminateApp is a no-op.
func (d *Driver) TerminateApp(context.Context, *driver.Session, string) error {
	return nil
}

// ClearState records the clear and rewinds the script to the first screen.
func (d *Driver) ClearState(context.Context, *driver.Session, string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ClearStates++
	d.current = 0
	return nil
}

// Screenshot returns the current screen's scripted bytes.
func (d *Driver) Screenshot(context.Context, *driver.Session) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.screen().Screenshot, nil
}

// PageSource returns the current screen's scripted hierarchy.
func (d *Driver) PageSource(context.Context, *driver.Session) (*core.UINode, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.screen().DOM, nil
}

// Click simulates a tap.
func (d *Driver) Click(_ context.Context, _ *driver.Session, _ core.ClickParams) error {
	return d.interact()
}

// Input simulates typing.
func (d *Driver) Input(_ context.Context, _ *driver.Session, _ core.InputParams) error {
	return d.interact()
}

// Scroll simulates scrolling.
func (d *Driver) Scroll(_ context.Context, _ *driver.Session, _ core.ScrollParams) error {
	return d.interact()
}

// Swipe simulates a swipe.
func (d *Driver) Swipe(_ context.Context, _ *driver.Session, _ core.SwipeParams) error {
	return d.interact()
}

// LongPress simulates a long press.
func (d *Driver) LongPress(_ context.Context, _ *driver.Session, _ core.ClickParams) error {
	return d.interact()
}

// Back simulates back navigation, rewinding one screen.
func (d *Driver) Back(context.Context, *driver.Session) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Backs++
	if d.current > 0 {
		d.current--
	}
	return nil
}

// Reboot records the request and succeeds.
func (d *Driver) Reboot(context.Context, string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Reboots++
	return nil
}

func (d *Driver) interact() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Actions++
	if d.cfg.FailOnAction > 0 && d.Actions == d.cfg.FailOnAction {
		return fmt.Errorf("mock: simulated failure on action %d", d.Actions)
	}
	if !d.cfg.StickyScreen && d.current < len(d.cfg.Screens)-1 {
		d.current++
	}
	return nil
}

func (d *Driver) screen() Screen {
	return d.cfg.Screens[d.current]
}
