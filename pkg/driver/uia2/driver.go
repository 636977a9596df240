package uia2

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pzy560117/uiexplorer/pkg/core"
	"github.com/pzy560117/uiexplorer/pkg/driver"
)

// Driver implements driver.DeviceDriver over the UIAutomator2 wire.
type Driver struct {
	client *Client
	logger zerolog.Logger
}

// New creates a Driver against the given automation server URL.
func New(baseURL string, logger zerolog.Logger) *Driver {
	return &Driver{
		client: NewClient(baseURL, logger),
		logger: logger,
	}
}

// CreateSession starts a new automation session for the device.
func (d *Driver) CreateSession(ctx context.Context, deviceID, appPackage string) (*driver.Session, error) {
	req := map[string]interface{}{
		"capabilities": map[string]interface{}{
			"alwaysMatch": map[string]interface{}{
				"platformName":      "Android",
				"appium:udid":       deviceID,
				"appium:appPackage": appPackage,
			},
		},
	}
	resp, err := d.client.request(ctx, "POST", "/session", req)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	sessionID := resp.SessionID
	if sessionID == "" {
		// Alternate response format nests the session id in the value.
		var v struct {
			SessionID string `json:"sessionId"`
		}
		if json.Unmarshal(resp.Value, &v) == nil {
			sessionID = v.SessionID
		}
	}
	if sessionID == "" {
		return nil, fmt.Errorf("create session: no session ID in response")
	}

	return &driver.Session{ID: sessionID, DeviceID: deviceID, AppPackage: appPackage}, nil
}

// DeleteSession ends the session.
func (d *Driver) DeleteSession(ctx context.Context, s *driver.Session) error {
	_, err := d.client.request(ctx, "DELETE", d.sessionPath(s, ""), nil)
	return err
}

// LaunchApp activates the target app.
func (d *Driver) LaunchApp(ctx context.Context, s *driver.Session, appPackage string) error {
	_, err := d.client.request(ctx, "POST", d.sessionPath(s, "/appium/device/activate_app"),
		map[string]string{"appId": appPackage})
	return err
}

// TerminateApp stops the target app.
func (d *Driver) TerminateApp(ctx context.Context, s *driver.Session, appPackage string) error {
	_, err := d.client.request(ctx, "POST", d.sessionPath(s, "/appium/device/terminate_app"),
		map[string]string{"appId": appPackage})
	return err
}

// ClearState clears the target app's data.
func (d *Driver) ClearState(ctx context.Context, s *driver.Session, appPackage string) error {
	_, err := d.client.request(ctx, "POST", d.sessionPath(s, "/appium/device/clear_app"),
		map[string]string{"appId": appPackage})
	return err
}

// Screenshot captures the current screen as PNG bytes.
func (d *Driver) Screenshot(ctx context.Context, s *driver.Session) ([]byte, error) {
	resp, err := d.client.request(ctx, "GET", d.sessionPath(s, "/screenshot"), nil)
	if err != nil {
		return nil, err
	}
	encoded, err := resp.valueString()
	if err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	return data, nil
}

// PageSource captures and parses the current UI hierarchy.
func (d *Driver) PageSource(ctx context.Context, s *driver.Session) (*core.UINode, error) {
	resp, err := d.client.request(ctx, "GET", d.sessionPath(s, "/source"), nil)
	if err != nil {
		return nil, err
	}
	xmlData, err := resp.valueString()
	if err != nil {
		return nil, err
	}
	return ParsePageSource(xmlData)
}

// Click taps the element named by the params, or the given point.
func (d *Driver) Click(ctx context.Context, s *driver.Session, p core.ClickParams) error {
	x, y, err := d.resolvePoint(ctx, s, p)
	if err != nil {
		return err
	}
	return d.tap(ctx, s, x, y, 0)
}

// LongPress long-presses the element named by the params, or the given point.
func (d *Driver) LongPress(ctx context.Context, s *driver.Session, p core.ClickParams) error {
	x, y, err := d.resolvePoint(ctx, s, p)
	if err != nil {
		return err
	}
	return d.tap(ctx, s, x, y, 800)
}

// Input types text, tapping the target element first when one is named.
func (d *Driver) Input(ctx context.Context, s *driver.Session, p core.InputParams) error {
	if p.Target != "" {
		if err := d.Click(ctx, s, core.ClickParams{Target: p.Target}); err != nil {
			return err
		}
	}
	_, err := d.client.request(ctx, "POST", d.sessionPath(s, "/keys"),
		map[string]string{"text": p.Text})
	return err
}

// Scroll swipes across the screen center in the given direction.
func (d *Driver) Scroll(ctx context.Context, s *driver.Session, p core.ScrollParams) error {
	root, err := d.PageSource(ctx, s)
	if err != nil {
		return err
	}
	w, h := root.Bounds.Width, root.Bounds.Height
	if w == 0 || h == 0 {
		w, h = 1080, 2400
	}
	cx, cy := w/2, h/2
	var sw core.SwipeParams
	switch p.Direction {
	case "up":
		sw = core.SwipeParams{StartX: cx, StartY: h * 7 / 10, EndX: cx, EndY: h * 3 / 10}
	case "down":
		sw = core.SwipeParams{StartX: cx, StartY: h * 3 / 10, EndX: cx, EndY: h * 7 / 10}
	case "left":
		sw = core.SwipeParams{StartX: w * 7 / 10, StartY: cy, EndX: w * 3 / 10, EndY: cy}
	case "right":
		sw = core.SwipeParams{StartX: w * 3 / 10, StartY: cy, EndX: w * 7 / 10, EndY: cy}
	default:
		return fmt.Errorf("unknown scroll direction %q", p.Direction)
	}
	return d.Swipe(ctx, s, sw)
}

// Swipe performs an absolute-coordinate swipe via W3C pointer actions.
func (d *Driver) Swipe(ctx context.Context, s *driver.Session, p core.SwipeParams) error {
	actions := map[string]interface{}{
		"actions": []interface{}{
			map[string]interface{}{
				"type": "pointer",
				"id":   "finger1",
				"parameters": map[string]string{
					"pointerType": "touch",
				},
				"actions": []interface{}{
					map[string]interface{}{"type": "pointerMove", "duration": 0, "x": p.StartX, "y": p.StartY},
					map[string]interface{}{"type": "pointerDown", "button": 0},
					map[string]interface{}{"type": "pointerMove", "duration": 300, "x": p.EndX, "y": p.EndY},
					map[string]interface{}{"type": "pointerUp", "button": 0},
				},
			},
		},
	}
	_, err := d.client.request(ctx, "POST", d.sessionPath(s, "/actions"), actions)
	return err
}

// Back issues a back navigation.
func (d *Driver) Back(ctx context.Context, s *driver.Session) error {
	_, err := d.client.request(ctx, "POST", d.sessionPath(s, "/back"), nil)
	return err
}

// Reboot is not supported by this wire protocol.
func (d *Driver) Reboot(context.Context, string) error {
	return core.ErrRebootUnsupported
}

// resolvePoint turns click params into screen coordinates, locating the
// target element through the page source when no point is given.
func (d *Driver) resolvePoint(ctx context.Context, s *driver.Session, p core.ClickParams) (int, int, error) {
	if p.HasPoint {
		return p.X, p.Y, nil
	}
	root, err := d.PageSource(ctx, s)
	if err != nil {
		return 0, 0, err
	}
	node := core.FindByText(root, p.Target)
	if node == nil {
		return 0, 0, core.ErrActionFailed.WithMessage(fmt.Sprintf("element %q not found", p.Target))
	}
	x, y := node.Bounds.Center()
	return x, y, nil
}

// tap presses at (x,y); holdMs > 0 makes it a long press.
func (d *Driver) tap(ctx context.Context, s *driver.Session, x, y, holdMs int) error {
	pointer := []interface{}{
		map[string]interface{}{"type": "pointerMove", "duration": 0, "x": x, "y": y},
		map[string]interface{}{"type": "pointerDown", "button": 0},
	}
	if holdMs > 0 {
		pointer = append(pointer, map[string]interface{}{"type": "pause", "duration": holdMs})
	}
	pointer = append(pointer, map[string]interface{}{"type": "pointerUp", "button": 0})

	actions := map[string]interface{}{
		"actions": []interface{}{
			map[string]interface{}{
				"type": "pointer",
				"id":   "finger1",
				"parameters": map[string]string{
					"pointerType": "touch",
				},
				"actions": pointer,
			},
		},
	}
	_, err := d.client.request(ctx, "POST", d.sessionPath(s, "/actions"), actions)
	return err
}

// sessionPath returns path with the session ID prefix.
func (d *Driver) sessionPath(s *driver.Session, path string) string {
	return fmt.Sprintf("/session/%s%s", s.ID, path)
}
