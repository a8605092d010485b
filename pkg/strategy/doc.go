/*
Package strategy provides the weighting and selection functions of Picket's
selection pipeline.

Selection happens in two stages: a Weighting maps the snapshot of active
endpoints to parallel (endpoints, weights) slices, then a Selection picks
one endpoint from that weighted list. The balancer holds no lock across
either call.

# Scheduling Algorithms

	RoundRobin       atomic cursor rotation, skips zero-weight candidates
	Random           uniform pick, weights ignored
	WeightedRandom   probability proportional to weight
	LeastWeight      smallest weight wins (weight-as-load)

	EqualWeights     every active endpoint weighs 1
	ByMetric         caller-supplied scorer over the latest metrics value

# Usage

	lb := balancer.New(source, factory,
		balancer.WithWeighting(strategy.ByMetric[string](func(m Metrics) float64 {
			return 1 / (1 + m.LatencyMillis)
		}, 1)),
		balancer.WithSelection[string, Metrics](strategy.WeightedRandom[string]()),
	)

# Design Patterns

Strategies that need state (the round-robin cursor) capture it in the
closure returned by the constructor, so two balancers never share a
cursor. Weights are contractually non-negative; selections treat an
all-zero weighting as "nothing to rank by" and fall back to rotation or a
uniform pick rather than failing.

# See Also

  - Package balancer for the pipeline that invokes these functions
*/
package strategy
