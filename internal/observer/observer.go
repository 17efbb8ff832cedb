// Package observer watches a running yieldpoint server through its HTTP API
// and reports phase transitions as playback moves through the test.
package observer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/talgya/yieldpoint/internal/playback"
	"github.com/talgya/yieldpoint/internal/tensile"
)

// ErrNotReady is returned by WaitForAPI when the deadline passes.
var ErrNotReady = errors.New("observer: API did not become ready")

// Status mirrors GET /api/v1/status.
type Status struct {
	Name       string                   `json:"name"`
	Version    string                   `json:"version"`
	Session    string                   `json:"session"`
	Material   string                   `json:"material"`
	Tick       uint64                   `json:"tick"`
	Strain     float64                  `json:"strain"`
	Stress     float64                  `json:"stress"`
	Phase      tensile.DeformationPhase `json:"phase"`
	Progress   float64                  `json:"progress"`
	Playing    bool                     `json:"playing"`
	Speed      float64                  `json:"speed"`
	Resolution int                      `json:"resolution"`
	Running    bool                     `json:"running"`
}

// State mirrors GET /api/v1/state without a strain parameter.
type State struct {
	Frame   *playback.Frame `json:"frame"`
	Reading tensile.State   `json:"reading"`
	Content struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"content"`
}

// Observer fetches session state from the API.
type Observer struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewObserver creates an Observer targeting the given API base URL.
func NewObserver(baseURL string) *Observer {
	return &Observer{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Status fetches the server status.
func (o *Observer) Status(ctx context.Context) (*Status, error) {
	var s Status
	if err := o.fetchJSON(ctx, "/api/v1/status", &s); err != nil {
		return nil, fmt.Errorf("fetch status: %w", err)
	}
	return &s, nil
}

// State fetches the live frame.
func (o *Observer) State(ctx context.Context) (*State, error) {
	var s State
	if err := o.fetchJSON(ctx, "/api/v1/state", &s); err != nil {
		return nil, fmt.Errorf("fetch state: %w", err)
	}
	return &s, nil
}

// fetchJSON GETs a path and decodes the JSON response into target.
func (o *Observer) fetchJSON(ctx context.Context, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.BaseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := o.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return fmt.Errorf("GET %s returned %d: %s", path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// Backoff bounds the retry delay of WaitForAPI.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
	Timeout time.Duration
}

// DefaultBackoff starts at 2s, caps at 30s and gives up after 5 minutes.
func DefaultBackoff() Backoff {
	return Backoff{Initial: 2 * time.Second, Max: 30 * time.Second, Timeout: 5 * time.Minute}
}

// WaitForAPI polls the status endpoint with exponential backoff until it
// answers 200, the timeout elapses, or ctx is cancelled.
func (o *Observer) WaitForAPI(ctx context.Context, b Backoff) error {
	backoff := b.Initial
	deadline := time.Now().Add(b.Timeout)

	for {
		if _, err := o.Status(ctx); err == nil {
			slog.Info("yieldpoint API is ready", "url", o.BaseURL)
			return nil
		} else if time.Now().After(deadline) {
			return fmt.Errorf("%w within %s: %v", ErrNotReady, b.Timeout, err)
		}

		slog.Info("yieldpoint not ready, retrying...", "backoff", backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > b.Max {
			backoff = b.Max
		}
	}
}
