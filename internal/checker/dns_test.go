package checker_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"

	"github.com/hazz-dev/netdiag/internal/checker"
)

// fakeExchanger answers queries from a canned record set, or fails.
type fakeExchanger struct {
	answers map[uint16][]dns.RR
	err     error
}

func (f *fakeExchanger) Exchange(_ context.Context, msg *dns.Msg, _ string) (*dns.Msg, time.Duration, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	resp := &dns.Msg{}
	resp.SetReply(msg)
	resp.Answer = f.answers[msg.Question[0].Qtype]
	return resp, time.Millisecond, nil
}

func aRecord(name string, ip string, ttl uint32) *dns.A {
	return &dns.A{
		Hdr: dns.RR_Header{Name: dns.Fqdn(name), Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: ttl},
		A:   net.ParseIP(ip),
	}
}

func TestLookup_CollectsRecordTypes(t *testing.T) {
	ex := &fakeExchanger{answers: map[uint16][]dns.RR{
		dns.TypeA: {aRecord("example.com", "93.184.216.34", 300)},
		dns.TypeMX: {&dns.MX{
			Hdr:        dns.RR_Header{Name: "example.com.", Rrtype: dns.TypeMX, Class: dns.ClassINET, Ttl: 600},
			Preference: 10,
			Mx:         "mail.example.com.",
		}},
	}}
	r := checker.NewResolverWithExchanger("1.1.1.1", ex)

	records, err := r.Lookup(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	if records[0].Type != "A" || records[0].Value != "93.184.216.34" {
		t.Errorf("unexpected A record %+v", records[0])
	}
	if records[0].TTL == nil || *records[0].TTL != 300 {
		t.Errorf("unexpected A ttl %v", records[0].TTL)
	}
	if records[1].Type != "MX" || records[1].Value != "10 mail.example.com" {
		t.Errorf("unexpected MX record %+v", records[1])
	}
}

func TestLookup_EmptyAnswerIsNotAnError(t *testing.T) {
	r := checker.NewResolverWithExchanger("1.1.1.1", &fakeExchanger{answers: map[uint16][]dns.RR{}})

	records, err := r.Lookup(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records, got %d", len(records))
	}
}

func TestLookup_AllQueriesFailed(t *testing.T) {
	boom := errors.New("i/o timeout")
	r := checker.NewResolverWithExchanger("1.1.1.1", &fakeExchanger{err: boom})

	_, err := r.Lookup(context.Background(), "example.com")
	if err == nil {
		t.Fatal("expected error when every query fails")
	}
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped exchange error, got %v", err)
	}
}
