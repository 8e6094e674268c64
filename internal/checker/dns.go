package checker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/hazz-dev/netdiag/internal/model"
)

// Exchanger abstracts the DNS round-trip for testability.
type Exchanger interface {
	Exchange(ctx context.Context, msg *dns.Msg, server string) (*dns.Msg, time.Duration, error)
}

type udpExchanger struct {
	client *dns.Client
}

func (e *udpExchanger) Exchange(ctx context.Context, msg *dns.Msg, server string) (*dns.Msg, time.Duration, error) {
	return e.client.ExchangeContext(ctx, msg, server)
}

// Record types queried for every diagnosed domain.
var queryTypes = []uint16{dns.TypeA, dns.TypeAAAA, dns.TypeCNAME, dns.TypeMX}

// Resolver looks up the record set for a domain against a single
// recursive resolver.
type Resolver struct {
	server    string
	exchanger Exchanger
}

// NewResolver creates a Resolver querying server (host:port). An empty
// server falls back to the system resolver from /etc/resolv.conf, or
// 1.1.1.1 when that is unavailable.
func NewResolver(server string, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if server == "" {
		server = systemResolver()
	}
	server = normalizeServer(server)
	return &Resolver{
		server:    server,
		exchanger: &udpExchanger{client: &dns.Client{Timeout: timeout}},
	}
}

// NewResolverWithExchanger creates a Resolver with a custom exchanger
// (for testing).
func NewResolverWithExchanger(server string, ex Exchanger) *Resolver {
	return &Resolver{server: normalizeServer(server), exchanger: ex}
}

// Lookup queries A, AAAA, CNAME, and MX records for domain. A query
// error for one type does not discard the others; Lookup fails only
// when every query failed.
func (r *Resolver) Lookup(ctx context.Context, domain string) ([]model.DNSRecord, error) {
	var records []model.DNSRecord
	var lastErr error
	failures := 0

	for _, qtype := range queryTypes {
		msg := &dns.Msg{}
		msg.SetQuestion(dns.Fqdn(domain), qtype)
		msg.RecursionDesired = true

		resp, _, err := r.exchanger.Exchange(ctx, msg, r.server)
		if err != nil {
			failures++
			lastErr = err
			continue
		}
		for _, rr := range resp.Answer {
			records = append(records, toRecord(rr))
		}
	}

	if failures == len(queryTypes) {
		return nil, fmt.Errorf("resolving %q via %s: %w", domain, r.server, lastErr)
	}
	return records, nil
}

func toRecord(rr dns.RR) model.DNSRecord {
	hdr := rr.Header()
	rec := model.DNSRecord{
		Type: dns.TypeToString[hdr.Rrtype],
		TTL:  model.Int(int(hdr.Ttl)),
	}
	switch v := rr.(type) {
	case *dns.A:
		rec.Value = v.A.String()
	case *dns.AAAA:
		rec.Value = v.AAAA.String()
	case *dns.CNAME:
		rec.Value = strings.TrimSuffix(v.Target, ".")
	case *dns.MX:
		rec.Value = fmt.Sprintf("%d %s", v.Preference, strings.TrimSuffix(v.Mx, "."))
	default:
		// Keep the record but fall back to the textual rdata.
		fields := strings.Fields(rr.String())
		rec.Value = fields[len(fields)-1]
	}
	return rec
}

func systemResolver() string {
	conf, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err == nil && len(conf.Servers) > 0 {
		return conf.Servers[0]
	}
	return "1.1.1.1"
}

func normalizeServer(server string) string {
	if !strings.Contains(server, ":") {
		return server + ":53"
	}
	return server
}
