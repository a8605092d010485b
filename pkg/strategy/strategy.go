package strategy

import "errors"

// ErrNoCandidates is returned by selection strategies invoked with an
// empty candidate list
var ErrNoCandidates = errors.New("no candidates to select from")

// Active is a point-in-time view of one active endpoint handed to
// weighting strategies
type Active[C comparable, M any] struct {
	Endpoint C

	// Metrics is the endpoint's latest metrics value; HasMetrics is false
	// until the metrics factory has emitted at least once
	Metrics    M
	HasMetrics bool
}

// Weighting assigns a non-negative weight to every active endpoint. The
// returned slices are parallel and must be the same length.
type Weighting[C comparable, M any] func(active []Active[C, M]) ([]C, []float64)

// Selection picks one endpoint from a weighted candidate list. A strategy
// may keep internal state (a round-robin cursor, a reservoir); the
// balancer treats it as a pure function per call.
type Selection[C comparable] func(endpoints []C, weights []float64) (C, error)
