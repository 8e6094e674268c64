package notify_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/hazz-dev/netdiag/internal/model"
	"github.com/hazz-dev/netdiag/internal/notify"
	"github.com/hazz-dev/netdiag/internal/session"
)

// webhookReceiver captures posted payloads.
type webhookReceiver struct {
	mu       sync.Mutex
	payloads []map[string]any
}

func (r *webhookReceiver) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var p map[string]any
		if err := json.NewDecoder(req.Body).Decode(&p); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		r.mu.Lock()
		r.payloads = append(r.payloads, p)
		r.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}
}

func (r *webhookReceiver) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payloads)
}

func sampleState(tcpStatus model.TCPStatus, probes []model.Probe) session.State {
	return session.State{
		Domain:        "example.com",
		TCP:           model.TCPResult{Port: 443, Status: tcpStatus},
		Probes:        probes,
		LastUpdatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNotify_SendsOnUnavailable(t *testing.T) {
	recv := &webhookReceiver{}
	srv := httptest.NewServer(recv.handler())
	defer srv.Close()

	probes := []model.Probe{
		{Country: "PT", Status: model.ProbeFailed},
		{Country: "JP", Status: model.ProbeFailed},
		{Country: "US", Status: model.ProbeFinished, RTTMs: model.Float64(50)},
	}
	n := notify.New(srv.URL, nil)
	st := sampleState(model.TCPOnline, probes)

	if err := n.Notify(context.Background(), st, session.VerdictUnavailable); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if recv.count() != 1 {
		t.Fatalf("expected 1 webhook, got %d", recv.count())
	}
	p := recv.payloads[0]
	if p["domain"] != "example.com" || p["verdict"] != "unavailable" {
		t.Errorf("unexpected payload: %+v", p)
	}
	if p["probes_failed"] != float64(2) || p["probes_total"] != float64(3) {
		t.Errorf("unexpected probe counts: %+v", p)
	}
}

func TestNotify_SkipsHealthy(t *testing.T) {
	recv := &webhookReceiver{}
	srv := httptest.NewServer(recv.handler())
	defer srv.Close()

	n := notify.New(srv.URL, nil)
	st := sampleState(model.TCPOnline, []model.Probe{
		{Country: "PT", Status: model.ProbeFinished, RTTMs: model.Float64(40)},
	})

	if err := n.Notify(context.Background(), st, session.VerdictHealthy); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if recv.count() != 0 {
		t.Errorf("expected no webhook for healthy verdict, got %d", recv.count())
	}
}

func TestNotify_SkipsIndeterminate(t *testing.T) {
	recv := &webhookReceiver{}
	srv := httptest.NewServer(recv.handler())
	defer srv.Close()

	n := notify.New(srv.URL, nil)
	if err := n.Notify(context.Background(), sampleState(model.TCPOnline, nil), session.VerdictIndeterminate); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if recv.count() != 0 {
		t.Errorf("expected no webhook for indeterminate verdict, got %d", recv.count())
	}
}

func TestNotify_UnreachableWebhook(t *testing.T) {
	n := notify.New("http://127.0.0.1:1/webhook", nil)
	st := sampleState(model.TCPOffline, nil)

	if err := n.Notify(context.Background(), st, session.VerdictUnavailable); err == nil {
		t.Fatal("expected error for unreachable webhook")
	}
}
