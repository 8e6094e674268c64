// Package model holds the value types shared between the diagnostic
// session engine, the collaborator clients, and the backend service.
// Everything here is plain data; behavior lives in the packages that
// consume it.
package model

import "time"

// DNSRecord is one resolved record for the diagnosed domain. It is
// produced by the local check and passed through untouched.
type DNSRecord struct {
	Type  string `json:"type"`
	Value string `json:"value"`
	TTL   *int   `json:"ttl,omitempty"`
}

// TCPStatus is the outcome of the local TCP reachability check.
type TCPStatus string

const (
	TCPOnline  TCPStatus = "online"
	TCPOffline TCPStatus = "offline"
	TCPUnknown TCPStatus = "unknown"
)

// TCPResult is the local TCP reachability check outcome.
type TCPResult struct {
	Port      int       `json:"port"`
	Status    TCPStatus `json:"status"`
	LatencyMs *float64  `json:"latency_ms"`
}

// ProbeStatus is the per-vantage-point measurement state.
type ProbeStatus string

const (
	ProbeFinished   ProbeStatus = "finished"
	ProbeInProgress ProbeStatus = "in-progress"
	ProbeFailed     ProbeStatus = "failed"
	ProbeTimeout    ProbeStatus = "timeout"
)

// Probe is one vantage-point latency measurement. RTTMs is nil when the
// probe produced no usable round-trip time.
type Probe struct {
	Continent string      `json:"continent"`
	Country   string      `json:"country"`
	City      string      `json:"city"`
	ISP       string      `json:"isp"`
	Status    ProbeStatus `json:"status"`
	RTTMs     *float64    `json:"rtt_ms"`
}

// MeasurementHandle is the opaque correlation token for an in-flight
// distributed measurement. Only the poller consumes it.
type MeasurementHandle struct {
	ID string `json:"measurement_id"`
}

// Snapshot is the cumulative probe set reported by the measurement
// collaborator at one point in time. Each snapshot supersedes the
// previous one in full; probes are never deltas.
type Snapshot struct {
	Probes   []Probe `json:"probes"`
	Complete bool    `json:"complete"`
}

// Report is the local-check collaborator's response to a submitted
// domain. Measurement is nil when no distributed measurement was
// scheduled.
type Report struct {
	Domain      string             `json:"domain"`
	DNS         []DNSRecord        `json:"dns"`
	TCP         TCPResult          `json:"tcp"`
	Measurement *MeasurementHandle `json:"measurement,omitempty"`
	Timestamp   time.Time          `json:"timestamp"`
}

// Float64 returns a pointer to v. Convenience for building literals.
func Float64(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
