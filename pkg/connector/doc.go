/*
Package connector provides the transport adapters a Picket balancer uses to
establish endpoint readiness.

A Connector is invoked whenever an endpoint enters the connecting state; it
either confirms readiness (nil) or fails the attempt (error), which sends
the endpoint to quarantine. Connectors must be idempotent across repeated
invocations and honor context cancellation, because a removal mid-connect
cancels the attempt.

# Core Components

  - Connector[C]: the function type the balancer calls
  - Immediate: always ready, the balancer default
  - TCP: dial-and-close readiness probe for host:port endpoints
  - GRPCConnector: per-endpoint gRPC client connections, ready when the
    channel reaches connectivity READY; RPC callers share the validated
    connection via Conn

# Usage

	g := connector.NewGRPCConnector()
	defer g.Close()

	lb := balancer.New(source, factory,
		balancer.WithConnector[string, Metrics](g.Connect),
		balancer.WithReleaser[string, Metrics](g.Release),
	)

	// later, after Choose picked an endpoint:
	conn, err := g.Conn(endpoint)

	// WithReleaser closes an endpoint's cached connection when the
	// balancer removes it, so departed backends do not accumulate

# Design Patterns

GRPCConnector treats TransientFailure as a failed attempt rather than
waiting it out: the balancer owns retry policy through its backoff, so the
connector reports the edge and returns. A cancelled attempt returns the
context error, which the endpoint's holder absorbs if it was removed in the
meantime.

# See Also

  - Package balancer for the lifecycle driving these connectors
*/
package connector
