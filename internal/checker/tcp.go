package checker

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/hazz-dev/netdiag/internal/model"
)

// CheckTCP dials host:port once and reports reachability plus connect
// latency in milliseconds. A failed dial yields offline with no
// latency; a dial aborted by ctx before completing yields unknown.
func CheckTCP(ctx context.Context, host string, port int, timeout time.Duration) model.TCPResult {
	result := model.TCPResult{
		Port:   port,
		Status: model.TCPUnknown,
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	dialer := &net.Dialer{Timeout: timeout}

	start := time.Now()
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	elapsed := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			return result
		}
		result.Status = model.TCPOffline
		return result
	}
	conn.Close()

	result.Status = model.TCPOnline
	result.LatencyMs = model.Float64(float64(elapsed.Microseconds()) / 1000.0)
	return result
}
