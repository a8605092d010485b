package balancer

import (
	"errors"
	"fmt"

	"github.com/burrowlabs/picket/pkg/metrics"
	"github.com/burrowlabs/picket/pkg/strategy"
)

// Choose selects one endpoint from the currently active set: snapshot,
// weight, select. No lock is held across the strategy calls, so the
// returned endpoint may already be tearing down by the time the caller
// uses it; callers handle that through their own error paths.
func (b *Balancer[C, M]) Choose() (C, error) {
	var zero C
	if b.shut.Load() {
		return zero, ErrShutDown
	}

	timer := metrics.NewTimer()

	snapshot := b.active.snapshot()
	if len(snapshot) == 0 {
		metrics.SelectionFailures.WithLabelValues(b.name, "no_endpoints").Inc()
		return zero, ErrNoEndpoints
	}

	actives := make([]strategy.Active[C, M], len(snapshot))
	for i, h := range snapshot {
		value, ok := h.Metrics()
		actives[i] = strategy.Active[C, M]{
			Endpoint:   h.endpoint,
			Metrics:    value,
			HasMetrics: ok,
		}
	}

	endpoints, weights, err := b.weigh(actives)
	if err != nil {
		metrics.SelectionFailures.WithLabelValues(b.name, "weighting").Inc()
		return zero, err
	}

	endpoint, err := b.selectOne(endpoints, weights)
	if err != nil {
		metrics.SelectionFailures.WithLabelValues(b.name, "selection").Inc()
		if errors.Is(err, strategy.ErrNoCandidates) {
			// The weighting filtered every candidate out
			return zero, ErrNoEndpoints
		}
		return zero, err
	}

	metrics.Selections.WithLabelValues(b.name).Inc()
	timer.ObserveDurationVec(metrics.SelectionDuration, b.name)
	return endpoint, nil
}

// weigh runs the weighting strategy, converting panics and malformed
// output into errors so a bad strategy cannot poison the balancer
func (b *Balancer[C, M]) weigh(actives []strategy.Active[C, M]) (endpoints []C, weights []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().
				Interface("panic", r).
				Msg("Weighting strategy panicked")
			err = fmt.Errorf("weighting strategy panicked: %v", r)
		}
	}()

	endpoints, weights = b.opts.weighting(actives)
	if len(endpoints) != len(weights) {
		return nil, nil, fmt.Errorf("weighting strategy returned %d endpoints but %d weights", len(endpoints), len(weights))
	}
	return endpoints, weights, nil
}

// selectOne runs the selection strategy with the same panic isolation
func (b *Balancer[C, M]) selectOne(endpoints []C, weights []float64) (endpoint C, err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().
				Interface("panic", r).
				Msg("Selection strategy panicked")
			err = fmt.Errorf("selection strategy panicked: %v", r)
		}
	}()

	return b.opts.selection(endpoints, weights)
}
