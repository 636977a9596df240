package decision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/pzy560117/uiexplorer/pkg/core"
)

// HTTPModel invokes a vision-language model behind an HTTP endpoint.
type HTTPModel struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   zerolog.Logger
}

// NewHTTPModel creates an HTTP model client. apiKey may be empty for
// unauthenticated endpoints.
func NewHTTPModel(endpoint, apiKey string, logger zerolog.Logger) *HTTPModel {
	return &HTTPModel{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 60 * time.Second},
		logger:   logger,
	}
}

// generateResponse is the minimal parse used to pull out reasoning; the
// full body is handed to the safety validator untouched.
type generateResponse struct {
	Reasoning string `json:"reasoning"`
}

// GenerateAction posts the decision context and returns the raw proposal.
func (m *HTTPModel) GenerateAction(ctx context.Context, dc Context) (*Proposal, error) {
	body, err := json.Marshal(dc)
	if err != nil {
		return nil, fmt.Errorf("marshal decision context: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if m.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.apiKey)
	}

	start := time.Now()
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("invoke decision model: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read decision response: %w", err)
	}

	m.logger.Debug().
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Str("signature", dc.Screen.Signature).
		Msg("decision model invoked")

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("decision model returned status %d", resp.StatusCode)
	}
	if !json.Valid(raw) {
		return nil, core.ErrMalformedDecision.WithDetails(map[string]interface{}{
			"bodyPrefix": prefix(raw, 120),
		})
	}

	var parsed generateResponse
	// Best effort; reasoning is optional and shape errors are the
	// validator's concern.
	_ = json.Unmarshal(raw, &parsed)

	return &Proposal{ActionPlan: raw, Reasoning: parsed.Reasoning}, nil
}

func prefix(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
