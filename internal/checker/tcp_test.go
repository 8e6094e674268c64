package checker_test

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/hazz-dev/netdiag/internal/checker"
	"github.com/hazz-dev/netdiag/internal/model"
)

func listenerHostPort(t *testing.T, ln net.Listener) (string, int) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatal(err)
	}
	return host, port
}

func TestCheckTCP_Online(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	host, port := listenerHostPort(t, ln)
	result := checker.CheckTCP(context.Background(), host, port, 2*time.Second)

	if result.Status != model.TCPOnline {
		t.Errorf("expected online, got %q", result.Status)
	}
	if result.Port != port {
		t.Errorf("expected port %d, got %d", port, result.Port)
	}
	if result.LatencyMs == nil || *result.LatencyMs < 0 {
		t.Errorf("expected non-negative latency, got %v", result.LatencyMs)
	}
}

func TestCheckTCP_Offline(t *testing.T) {
	// Bind and immediately close to get a port that's not listening.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	host, port := listenerHostPort(t, ln)
	ln.Close()

	result := checker.CheckTCP(context.Background(), host, port, 2*time.Second)

	if result.Status != model.TCPOffline {
		t.Errorf("expected offline for refused connection, got %q", result.Status)
	}
	if result.LatencyMs != nil {
		t.Error("expected no latency for a failed dial")
	}
}

func TestCheckTCP_CancelledContextIsUnknown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := checker.CheckTCP(ctx, "203.0.113.1", 443, 2*time.Second)

	if result.Status != model.TCPUnknown {
		t.Errorf("expected unknown for cancelled check, got %q", result.Status)
	}
}
