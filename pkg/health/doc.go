/*
Package health provides the probe checkers behind Picket's probe-driven
failure sources.

A Checker knows how to probe one kind of endpoint (TCP connect, HTTP
request); the endpoint address is supplied per probe so one checker serves
an entire pool. A Status folds probe results into a consecutive-failure
count and reports the exact probe that crossed the unhealthy threshold.

# Health Check Types

	┌─────────┬─────────────────────────────────────────────────┐
	│ TCP     │ dial host:port, close immediately               │
	│ HTTP    │ GET scheme://host:port/path, classify status    │
	└─────────┴─────────────────────────────────────────────────┘

# Usage

	checker := health.NewHTTPChecker().WithPath("/livez").WithTimeout(2 * time.Second)
	status := health.NewStatus()

	result := checker.Check(ctx, "10.0.0.7:8080")
	if status.Update(result, health.DefaultConfig()) {
		// endpoint just crossed the failure threshold
	}

# Design Patterns

Status.Update returns true only on the healthy-to-unhealthy edge, never on
repeat failures. The failure source built on top of this package emits one
failure event per edge, matching the balancer's contract that each failure
emission quarantines the endpoint once.

# See Also

  - Package failure for the probe loop that drives these checkers
*/
package health
