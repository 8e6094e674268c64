// Package checker runs the local half of a diagnosis: DNS resolution
// and a TCP reachability check against the diagnosed domain.
package checker

import (
	"context"
	"log/slog"
	"time"

	"github.com/hazz-dev/netdiag/internal/model"
)

// Checker performs the local checks for one domain.
type Checker struct {
	resolver *Resolver
	tcpPort  int
	timeout  time.Duration
	logger   *slog.Logger
}

// New creates a Checker. Pass nil logger to use the default.
func New(resolver *Resolver, tcpPort int, timeout time.Duration, logger *slog.Logger) *Checker {
	if tcpPort <= 0 {
		tcpPort = 443
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{
		resolver: resolver,
		tcpPort:  tcpPort,
		timeout:  timeout,
		logger:   logger,
	}
}

// Check resolves the domain and probes its TCP port. DNS failure does
// not abort the check: the TCP dial is attempted against the domain
// name either way, so a resolver outage and a host outage stay
// distinguishable in the report.
func (c *Checker) Check(ctx context.Context, domain string) ([]model.DNSRecord, model.TCPResult) {
	records, err := c.resolver.Lookup(ctx, domain)
	if err != nil {
		c.logger.Warn("dns lookup failed", "domain", domain, "error", err)
		records = nil
	}

	tcp := CheckTCP(ctx, domain, c.tcpPort, c.timeout)
	return records, tcp
}
