// Package notify sends webhook notifications for sessions that end in
// a non-healthy verdict.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hazz-dev/netdiag/internal/session"
)

// Notifier posts session outcomes to a webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
	logger     *slog.Logger
}

// New creates a Notifier. Pass nil logger to use the default logger.
func New(webhookURL string, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

type webhookPayload struct {
	Domain       string `json:"domain"`
	Verdict      string `json:"verdict"`
	TCPStatus    string `json:"tcp_status"`
	ProbesTotal  int    `json:"probes_total"`
	ProbesFailed int    `json:"probes_failed"`
	FinishedAt   string `json:"finished_at"`
	Source       string `json:"source"`
}

// Notify posts the outcome when the verdict is degraded or
// unavailable. Healthy and indeterminate sessions are skipped.
func (n *Notifier) Notify(ctx context.Context, st session.State, verdict session.Verdict) error {
	switch verdict {
	case session.VerdictDegraded, session.VerdictUnavailable:
	default:
		return nil
	}

	payload := webhookPayload{
		Domain:       st.Domain,
		Verdict:      string(verdict),
		TCPStatus:    string(st.TCP.Status),
		ProbesTotal:  len(st.Probes),
		ProbesFailed: session.FailedProbes(st.Probes),
		FinishedAt:   st.LastUpdatedAt.UTC().Format(time.RFC3339),
		Source:       "netdiag",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		n.logger.Warn("webhook returned non-2xx status",
			"domain", st.Domain,
			"status", resp.StatusCode,
		)
	}
	return nil
}
