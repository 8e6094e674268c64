// Package globalping is a minimal client for the Globalping API used
// by the backend: it creates ping measurements and summarizes their
// results into the probe shape the rest of the system consumes.
package globalping

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hazz-dev/netdiag/internal/model"
)

// DefaultBaseURL is the public Globalping API endpoint.
const DefaultBaseURL = "https://api.globalping.io"

// Client talks to the Globalping API. Safe for concurrent use.
type Client struct {
	baseURL string
	limit   int
	http    *http.Client
}

// New creates a Client. limit is the number of vantage points per
// measurement (default 10); a zero timeout defaults to 10s.
func New(baseURL string, limit int, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if limit <= 0 {
		limit = 10
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		limit:   limit,
		http:    &http.Client{Timeout: timeout},
	}
}

type createRequest struct {
	Type   string `json:"type"`
	Target string `json:"target"`
	Limit  int    `json:"limit"`
}

type createResponse struct {
	ID string `json:"id"`
}

// CreateMeasurement schedules a global ping measurement for target and
// returns its id.
func (c *Client) CreateMeasurement(ctx context.Context, target string) (string, error) {
	body, err := json.Marshal(createRequest{Type: "ping", Target: target, Limit: c.limit})
	if err != nil {
		return "", fmt.Errorf("encoding measurement request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/measurements", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating measurement request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("posting measurement: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("measurement create returned status %d", resp.StatusCode)
	}

	var created createResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("decoding measurement response: %w", err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("measurement response missing id")
	}
	return created.ID, nil
}

type measurementResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Probe struct {
			Continent string `json:"continent"`
			Country   string `json:"country"`
			City      string `json:"city"`
			Network   string `json:"network"`
		} `json:"probe"`
		Result struct {
			Status string `json:"status"`
			Stats  struct {
				Avg *float64 `json:"avg"`
			} `json:"stats"`
		} `json:"result"`
	} `json:"results"`
}

// GetSummary fetches a measurement and reduces it to a snapshot.
func (c *Client) GetSummary(ctx context.Context, id string) (model.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/measurements/"+id, nil)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("creating measurement request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("fetching measurement %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.Snapshot{}, fmt.Errorf("measurement fetch returned status %d", resp.StatusCode)
	}

	var m measurementResponse
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return model.Snapshot{}, fmt.Errorf("decoding measurement %s: %w", id, err)
	}

	snap := model.Snapshot{
		Probes:   make([]model.Probe, 0, len(m.Results)),
		Complete: m.Status == "finished",
	}
	for _, r := range m.Results {
		p := model.Probe{
			Continent: r.Probe.Continent,
			Country:   r.Probe.Country,
			City:      r.Probe.City,
			ISP:       r.Probe.Network,
			Status:    toProbeStatus(r.Result.Status),
		}
		// Globalping reports avg=-1 when no reply came back.
		if avg := r.Result.Stats.Avg; avg != nil && *avg >= 0 {
			p.RTTMs = model.Float64(*avg)
		}
		snap.Probes = append(snap.Probes, p)
	}
	return snap, nil
}

func toProbeStatus(s string) model.ProbeStatus {
	switch s {
	case "finished":
		return model.ProbeFinished
	case "in-progress":
		return model.ProbeInProgress
	case "timeout":
		return model.ProbeTimeout
	default:
		return model.ProbeFailed
	}
}
