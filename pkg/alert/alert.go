// Package alert defines the fire-and-forget alerting sink used by the
// traversal core. Delivery failures are logged and never abort a run.
package alert

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Severity of an alert event.
type Severity string

// Severity levels.
const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert kinds raised by the core.
const (
	KindDecisionRejected = "decision_rejected"
	KindLocatorExhausted = "locator_exhausted"
	KindRecoveryFailed   = "recovery_failed"
)

// Sink receives alert events. Implementations must not block the caller
// for longer than a single delivery attempt and must swallow their own errors.
type Sink interface {
	Raise(kind string, severity Severity, message string, payload map[string]interface{})
}

// Nop is a Sink that discards all events.
type Nop struct{}

// Raise discards the event.
func (Nop) Raise(string, Severity, string, map[string]interface{}) {}

// Webhook posts alert events as JSON to a configured URL.
type Webhook struct {
	url    string
	client *http.Client
	logger zerolog.Logger
}

// NewWebhook creates a webhook sink.
func NewWebhook(url string, logger zerolog.Logger) *Webhook {
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
		logger: logger,
	}
}

type webhookEvent struct {
	Kind     string                 `json:"kind"`
	Severity Severity               `json:"severity"`
	Message  string                 `json:"message"`
	Payload  map[string]interface{} `json:"payload,omitempty"`
	At       time.Time              `json:"at"`
}

// Raise delivers the event. Failures are logged, never returned.
func (w *Webhook) Raise(kind string, severity Severity, message string, payload map[string]interface{}) {
	body, err := json.Marshal(webhookEvent{
		Kind:     kind,
		Severity: severity,
		Message:  message,
		Payload:  payload,
		At:       time.Now(),
	})
	if err != nil {
		w.logger.Warn().Err(err).Str("kind", kind).Msg("alert marshal failed")
		return
	}

	resp, err := w.client.Post(w.url, "application/json", bytes.NewReader(body))
	if err != nil {
		w.logger.Warn().Err(err).Str("kind", kind).Msg("alert delivery failed")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		w.logger.Warn().Int("status", resp.StatusCode).Str("kind", kind).Msg("alert rejected by webhook")
	}
}
