// Package uia2 implements the device driver against a UIAutomator2-style
// HTTP automation server (W3C wire format with a value envelope).
package uia2

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Client communicates with the automation server.
type Client struct {
	http    *http.Client
	baseURL string
	logger  zerolog.Logger
}

// NewClient creates a client for the given base URL.
func NewClient(baseURL string, logger zerolog.Logger) *Client {
	return &Client{
		http:    &http.Client{Timeout: 30 * time.Second},
		baseURL: baseURL,
		logger:  logger,
	}
}

// response is the W3C wire envelope.
type response struct {
	SessionID string          `json:"sessionId,omitempty"`
	Value     json.RawMessage `json:"value,omitempty"`
}

// request makes an HTTP request and unwraps the value envelope.
func (c *Client) request(ctx context.Context, method, path string, body interface{}) (*response, error) {
	start := time.Now()

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Debug().Str("method", method).Str("path", path).Dur("elapsed", elapsed).Err(err).Msg("wire request failed")
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug().Str("method", method).Str("path", path).Dur("elapsed", elapsed).Int("status", resp.StatusCode).Msg("wire request")

	if resp.StatusCode >= 400 {
		var errEnv struct {
			Value struct {
				Error   string `json:"error"`
				Message string `json:"message"`
			} `json:"value"`
		}
		if json.Unmarshal(respBody, &errEnv) == nil && errEnv.Value.Error != "" {
			return nil, fmt.Errorf("%s: %s", errEnv.Value.Error, errEnv.Value.Message)
		}
		return nil, fmt.Errorf("server error %d: %s", resp.StatusCode, string(respBody))
	}

	var r response
	if err := json.Unmarshal(respBody, &r); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &r, nil
}

// valueString decodes the envelope value as a string.
func (r *response) valueString() (string, error) {
	var s string
	if err := json.Unmarshal(r.Value, &s); err != nil {
		return "", fmt.Errorf("parse value: %w", err)
	}
	return s, nil
}
