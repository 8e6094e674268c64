package integration_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hazz-dev/netdiag/internal/client"
	"github.com/hazz-dev/netdiag/internal/globalping"
	"github.com/hazz-dev/netdiag/internal/model"
	"github.com/hazz-dev/netdiag/internal/server"
	"github.com/hazz-dev/netdiag/internal/session"
	"github.com/hazz-dev/netdiag/internal/storage"
)

// stubChecker stands in for the DNS/TCP checks so the test needs no
// real network.
type stubChecker struct{}

func (stubChecker) Check(_ context.Context, _ string) ([]model.DNSRecord, model.TCPResult) {
	return []model.DNSRecord{{Type: "A", Value: "93.184.216.34", TTL: model.Int(300)}},
		model.TCPResult{Port: 443, Status: model.TCPOnline, LatencyMs: model.Float64(9)}
}

// fakeGlobalping simulates the upstream measurement API: the first
// summary fetch is in progress, the second is finished.
func fakeGlobalping(t *testing.T) *httptest.Server {
	t.Helper()
	var fetches int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/measurements", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"id": "m-1"}`))
	})
	mux.HandleFunc("GET /v1/measurements/m-1", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&fetches, 1)
		if n == 1 {
			w.Write([]byte(`{
				"status": "in-progress",
				"results": [
					{"probe": {"continent": "EU", "country": "PT", "city": "Lisbon", "network": "NOS"},
					 "result": {"status": "finished", "stats": {"avg": 40}}},
					{"probe": {"continent": "AS", "country": "JP", "city": "Tokyo", "network": "NTT"},
					 "result": {"status": "in-progress", "stats": {}}}
				]
			}`))
			return
		}
		w.Write([]byte(`{
			"status": "finished",
			"results": [
				{"probe": {"continent": "EU", "country": "PT", "city": "Lisbon", "network": "NOS"},
				 "result": {"status": "finished", "stats": {"avg": 40}}},
				{"probe": {"continent": "AS", "country": "JP", "city": "Tokyo", "network": "NTT"},
				 "result": {"status": "finished", "stats": {"avg": 190}}},
				{"probe": {"continent": "NA", "country": "US", "city": "Dallas", "network": "Cogent"},
				 "result": {"status": "finished", "stats": {"avg": 110}}},
				{"probe": {"continent": "SA", "country": "BR", "city": "Sao Paulo", "network": "Claro"},
				 "result": {"status": "failed", "stats": {"avg": -1}}}
			]
		}`))
	})
	return httptest.NewServer(mux)
}

// TestIntegration_FullSession verifies the complete pipeline:
// backend API (checker + globalping) → collaborator client → session
// runner → storage.
func TestIntegration_FullSession(t *testing.T) {
	upstream := fakeGlobalping(t)
	defer upstream.Close()

	// 1. Backend wired against the fake upstream.
	gp := globalping.New(upstream.URL, 4, time.Second)
	apiServer := server.New(stubChecker{}, gp, nil)
	backend := httptest.NewServer(apiServer.Router())
	defer backend.Close()

	// 2. Session engine wired against the backend.
	api := client.New(backend.URL, time.Second)
	runner := session.NewRunner(api, api, nil)

	var updates int
	onUpdate := func(st session.State, v session.Verdict) {
		updates++
	}

	opts := session.Options{PollInterval: 20 * time.Millisecond, PollDeadline: 2 * time.Second}
	st, verdict, err := runner.Run(context.Background(), "example.com", opts, onUpdate)
	if err != nil {
		t.Fatalf("running session: %v", err)
	}

	// 3. Final state: 4 probes, 1 failed (1/4 < 0.5), none slow.
	if verdict != session.VerdictHealthy {
		t.Errorf("expected healthy, got %q", verdict)
	}
	if !st.ProbesComplete {
		t.Error("expected complete probes")
	}
	if len(st.Probes) != 4 {
		t.Errorf("expected 4 probes, got %d", len(st.Probes))
	}
	// initial + in-progress merge + finished merge + finalization
	if updates != 4 {
		t.Errorf("expected 4 updates, got %d", updates)
	}

	// 4. Persist and read back.
	db, err := storage.Open(filepath.Join(t.TempDir(), "netdiag.db"))
	if err != nil {
		t.Fatalf("opening storage: %v", err)
	}
	defer db.Close()

	rec := storage.NewSession(st, verdict, time.Now())
	if err := db.InsertSession(context.Background(), rec); err != nil {
		t.Fatalf("inserting session: %v", err)
	}
	stored, err := db.RecentSessions(context.Background(), 1)
	if err != nil {
		t.Fatalf("querying sessions: %v", err)
	}
	if len(stored) != 1 || stored[0].Verdict != "healthy" || stored[0].ProbesTotal != 4 {
		t.Errorf("unexpected stored session: %+v", stored)
	}

	// 5. The backend report itself is well-formed JSON for consumers.
	resp, err := http.Post(backend.URL+"/api/diagnose", "application/json",
		strings.NewReader(`{"domain": "example.com"}`))
	if err != nil {
		t.Fatalf("posting diagnose: %v", err)
	}
	defer resp.Body.Close()
	var rep model.Report
	if err := json.NewDecoder(resp.Body).Decode(&rep); err != nil {
		t.Fatalf("decoding report: %v", err)
	}
	if rep.Measurement == nil || rep.Measurement.ID != "m-1" {
		t.Errorf("unexpected measurement handle: %+v", rep.Measurement)
	}
}
