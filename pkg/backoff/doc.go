/*
Package backoff provides quarantine delay policies for failing endpoints.

A backoff Func maps the number of consecutive failures an endpoint has
accumulated to the delay it spends quarantined before re-entering the idle
pool. Constant is the balancer default; Exponential and ExponentialJitter
are the usual production choices, with jitter preventing synchronized
reconnect storms when many endpoints fail together.
*/
package backoff
