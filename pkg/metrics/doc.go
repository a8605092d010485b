/*
Package metrics provides Prometheus instrumentation for Picket balancers.

All collectors are package-level and registered once at init, labelled by
balancer name so that multiple pools in one process stay distinguishable.

# Monitoring Metrics

	picket_endpoints{balancer,state}            gauge      endpoints per lifecycle state
	picket_connect_attempts_total{balancer}     counter    connect attempts
	picket_connect_failures_total{balancer}     counter    failed connect attempts
	picket_quarantines_total{balancer}          counter    quarantine entries
	picket_selections_total{balancer}           counter    successful Choose calls
	picket_selection_failures_total{balancer,reason}  counter  failed Choose calls
	picket_selection_duration_seconds{balancer} histogram  Choose latency

# Usage

Expose the standard handler somewhere in the host process:

	http.Handle("/metrics", metrics.Handler())

Time an operation:

	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.SelectionDuration, name)

# See Also

  - Package balancer, which updates these collectors on every transition
*/
package metrics
