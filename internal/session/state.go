// Package session implements one diagnostic run end to end: it submits
// a domain to the local-check collaborator, polls the distributed
// measurement until it completes or the deadline passes, merges each
// snapshot into a single session state, and classifies that state into
// a health verdict.
package session

import (
	"time"

	"github.com/hazz-dev/netdiag/internal/model"
)

// State is the merged view of one diagnostic run. It has a single
// writer (the session runner); consumers receive copies via OnUpdate
// and must not retain references across updates.
type State struct {
	Domain         string            `json:"domain"`
	DNS            []model.DNSRecord `json:"dns"`
	TCP            model.TCPResult   `json:"tcp"`
	Probes         []model.Probe     `json:"probes"`
	ProbesComplete bool              `json:"probes_complete"`
	StartedAt      time.Time         `json:"started_at"`
	LastUpdatedAt  time.Time         `json:"last_updated_at"`
}

// Initial builds the starting state from a local-check report, before
// any probe data exists.
func Initial(rep model.Report, now time.Time) State {
	return State{
		Domain:        rep.Domain,
		DNS:           rep.DNS,
		TCP:           rep.TCP,
		StartedAt:     now,
		LastUpdatedAt: now,
	}
}

// Merge folds a probe snapshot into prev and returns the new state.
// Probes are replaced wholesale: the collaborator reports cumulative
// results, so each snapshot supersedes the last. ProbesComplete is
// monotonic; once a session has seen a complete snapshot it never
// reverts.
func Merge(prev State, snap model.Snapshot, now time.Time) State {
	next := prev
	next.Probes = snap.Probes
	next.ProbesComplete = snap.Complete || prev.ProbesComplete
	next.LastUpdatedAt = now
	return next
}
