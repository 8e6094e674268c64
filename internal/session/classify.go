package session

import "github.com/hazz-dev/netdiag/internal/model"

// Verdict is the classified health outcome of a session.
type Verdict string

const (
	VerdictHealthy       Verdict = "healthy"
	VerdictDegraded      Verdict = "degraded"
	VerdictUnavailable   Verdict = "unavailable"
	VerdictIndeterminate Verdict = "indeterminate"
)

// Classification thresholds. Tuned to tolerate noisy individual probes
// while still flagging systemic regional failure or widespread latency
// degradation.
const (
	// FailureRatioLimit marks the session unavailable when at least
	// this fraction of probes failed (inclusive).
	FailureRatioLimit = 0.5
	// SlowRatioLimit marks the session degraded when at least this
	// fraction of probes is slow (inclusive).
	SlowRatioLimit = 0.3
	// SlowRTTMs is the round-trip time above which a probe counts as
	// slow.
	SlowRTTMs = 300.0
)

// FailedProbes counts probes that did not produce a usable result: any
// status other than finished, or a finished probe with no RTT.
func FailedProbes(probes []model.Probe) int {
	var failed int
	for _, p := range probes {
		if p.Status != model.ProbeFinished || p.RTTMs == nil {
			failed++
		}
	}
	return failed
}

// Classify maps a session state to a verdict. It is deterministic and
// total: any state, including one with no probe data, classifies.
// Rules are evaluated in order; the first match wins.
func Classify(st State) Verdict {
	if st.TCP.Status != model.TCPOnline {
		return VerdictUnavailable
	}
	total := len(st.Probes)
	if total == 0 {
		// Local check passed but no global data yet; distinct from
		// unavailable.
		return VerdictIndeterminate
	}

	// A probe with a partial-failure status but a measured RTT counts
	// both as failed and, when over the bound, as slow.
	failed := FailedProbes(st.Probes)
	var slow int
	for _, p := range st.Probes {
		if p.RTTMs != nil && *p.RTTMs > SlowRTTMs {
			slow++
		}
	}

	if float64(failed)/float64(total) >= FailureRatioLimit {
		return VerdictUnavailable
	}
	if float64(slow)/float64(total) >= SlowRatioLimit {
		return VerdictDegraded
	}
	return VerdictHealthy
}
