package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/hazz-dev/netdiag/internal/model"
)

// MeasurementSource fetches the current cumulative snapshot for a
// measurement. Implementations report transport failures and
// unparsable payloads as errors; the poller treats both as transient.
type MeasurementSource interface {
	FetchSnapshot(ctx context.Context, measurementID string) (model.Snapshot, error)
}

// Poller drives a bounded sequential polling loop against a
// measurement. Queries never overlap: each tick waits for the previous
// query to return before the next one fires.
type Poller struct {
	source   MeasurementSource
	interval time.Duration
	deadline time.Duration
	logger   *slog.Logger
}

// NewPoller creates a Poller. Pass nil logger to use the default.
func NewPoller(source MeasurementSource, interval, deadline time.Duration, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		source:   source,
		interval: interval,
		deadline: deadline,
		logger:   logger,
	}
}

// Run polls the measurement and sends one snapshot per successful query
// on the returned channel. The channel is closed when the collaborator
// reports completion, the deadline elapses, or ctx is cancelled.
//
// Transient query failures are swallowed: the last good snapshot stays
// current and the next tick is attempted normally. On deadline expiry
// without any successful query, a single empty snapshot (no probes,
// complete=false) is emitted so the consumer can still classify.
//
// The deadline is checked only at tick boundaries, so termination can
// overshoot by up to one interval plus one collaborator round-trip.
func (p *Poller) Run(ctx context.Context, handle model.MeasurementHandle) <-chan model.Snapshot {
	out := make(chan model.Snapshot)
	go p.run(ctx, handle, out)
	return out
}

func (p *Poller) run(ctx context.Context, handle model.MeasurementHandle, out chan<- model.Snapshot) {
	defer close(out)

	start := time.Now()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	got := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		snap, err := p.source.FetchSnapshot(ctx, handle.ID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Debug("measurement query failed, keeping last snapshot",
				"measurement_id", handle.ID,
				"error", err,
			)
		} else {
			got = true
			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}
			if snap.Complete {
				return
			}
		}

		if time.Since(start) >= p.deadline {
			if !got {
				select {
				case out <- model.Snapshot{Probes: nil, Complete: false}:
				case <-ctx.Done():
				}
			}
			p.logger.Info("measurement poll deadline reached",
				"measurement_id", handle.ID,
				"elapsed", time.Since(start),
			)
			return
		}
	}
}
