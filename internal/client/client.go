// Package client implements the HTTP collaborators the session engine
// depends on: the local-check service and the measurement summary
// endpoint. Both are fronted by the netdiag backend API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hazz-dev/netdiag/internal/model"
)

// Error kinds distinguished by consumers. Transport-level failures and
// non-2xx statuses map to ErrUnavailable; payloads that fail to decode
// map to ErrBadResponse.
var (
	ErrUnavailable = errors.New("collaborator unavailable")
	ErrBadResponse = errors.New("collaborator bad response")
)

// Client talks to a netdiag backend. It is safe for concurrent use by
// independent sessions.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client for the backend at baseURL. A zero timeout
// defaults to 10s.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type diagnoseRequest struct {
	Domain string `json:"domain"`
}

// Submit runs the local check for domain and returns the report,
// including the measurement handle when one was scheduled.
func (c *Client) Submit(ctx context.Context, domain string) (model.Report, error) {
	body, err := json.Marshal(diagnoseRequest{Domain: domain})
	if err != nil {
		return model.Report{}, fmt.Errorf("encoding diagnose request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/diagnose", bytes.NewReader(body))
	if err != nil {
		return model.Report{}, fmt.Errorf("creating diagnose request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return model.Report{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.Report{}, fmt.Errorf("%w: diagnose returned status %d", ErrUnavailable, resp.StatusCode)
	}

	var rep model.Report
	if err := json.NewDecoder(resp.Body).Decode(&rep); err != nil {
		return model.Report{}, fmt.Errorf("%w: decoding report: %v", ErrBadResponse, err)
	}
	if rep.Domain == "" {
		return model.Report{}, fmt.Errorf("%w: report missing domain", ErrBadResponse)
	}
	return rep, nil
}

type summaryResponse struct {
	Status string        `json:"status"`
	Probes []model.Probe `json:"probes"`
}

// FetchSnapshot returns the current cumulative snapshot for a
// measurement.
func (c *Client) FetchSnapshot(ctx context.Context, measurementID string) (model.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/measurements/"+measurementID, nil)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("creating measurement request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.Snapshot{}, fmt.Errorf("%w: measurement returned status %d", ErrUnavailable, resp.StatusCode)
	}

	var sum summaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&sum); err != nil {
		return model.Snapshot{}, fmt.Errorf("%w: decoding summary: %v", ErrBadResponse, err)
	}

	switch sum.Status {
	case "finished", "in-progress":
	default:
		return model.Snapshot{}, fmt.Errorf("%w: unknown measurement status %q", ErrBadResponse, sum.Status)
	}

	return model.Snapshot{
		Probes:   sum.Probes,
		Complete: sum.Status == "finished",
	}, nil
}
