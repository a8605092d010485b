/*
Package failure provides the failure detection streams that quarantine
Picket endpoints.

A failure Source subscribes a detector to one endpoint and yields an
asynchronous stream of errors; each received error counts as one failure
and sends the endpoint to quarantine with backoff.

# Core Components

  - Source[C]: the subscription function the balancer calls per endpoint
  - Never: no failures, the balancer default
  - Manual: caller-driven Fail, for tests and external detectors
  - Probe: periodic health.Checker probes, one failure per threshold edge
  - GRPCHealth: watch of the standard gRPC health service

# Event Flow

	probe/watch goroutine ──► edge detection ──► chan error ──► holder
	                                                    │
	                 FAILED event (quarantine entry bumps quarantineCount)

# Design Patterns

Every source reports edges, not levels: an endpoint that stays broken
produces one failure, gets quarantined, and is retried on the balancer's
backoff schedule. Emissions never block a detector goroutine; if the
subscriber's buffer is full the endpoint is already on its way to
quarantine and the extra signal is dropped.

Subscriptions are context-scoped. Removing an endpoint cancels its
subscription context, which stops the probing or watching goroutine.

# See Also

  - Package health for the probe checkers
  - Package balancer for the quarantine lifecycle
*/
package failure
