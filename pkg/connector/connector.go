package connector

import (
	"context"
	"fmt"
	"net"
	"time"
)

// Connector establishes readiness for an endpoint. A nil return means the
// endpoint is ready to serve; an error means the attempt failed and the
// endpoint will be quarantined. The balancer may invoke a connector many
// times for the same endpoint across reconnects, so implementations must be
// idempotent, and must respect context cancellation: a replaced or removed
// endpoint cancels its in-flight attempt.
type Connector[C comparable] func(ctx context.Context, endpoint C) error

// Immediate reports every endpoint ready without touching the network.
// This is the balancer default.
func Immediate[C comparable]() Connector[C] {
	return func(context.Context, C) error {
		return nil
	}
}

// TCP probes readiness by opening and closing a TCP connection to the
// endpoint's host:port address
func TCP(timeout time.Duration) Connector[string] {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	dialer := &net.Dialer{Timeout: timeout}

	return func(ctx context.Context, endpoint string) error {
		conn, err := dialer.DialContext(ctx, "tcp", endpoint)
		if err != nil {
			return fmt.Errorf("failed to connect to %s: %w", endpoint, err)
		}
		return conn.Close()
	}
}
