package strategy

// EqualWeights gives every active endpoint weight 1. This is the balancer
// default.
func EqualWeights[C comparable, M any]() Weighting[C, M] {
	return func(active []Active[C, M]) ([]C, []float64) {
		endpoints := make([]C, len(active))
		weights := make([]float64, len(active))
		for i, a := range active {
			endpoints[i] = a.Endpoint
			weights[i] = 1
		}
		return endpoints, weights
	}
}

// ByMetric weights endpoints with a caller-supplied scorer over the latest
// metrics value. Endpoints that have not produced metrics yet receive the
// fallback weight; negative scores are clamped to zero.
func ByMetric[C comparable, M any](score func(M) float64, fallback float64) Weighting[C, M] {
	if fallback < 0 {
		fallback = 0
	}
	return func(active []Active[C, M]) ([]C, []float64) {
		endpoints := make([]C, len(active))
		weights := make([]float64, len(active))
		for i, a := range active {
			endpoints[i] = a.Endpoint
			if !a.HasMetrics {
				weights[i] = fallback
				continue
			}
			w := score(a.Metrics)
			if w < 0 {
				w = 0
			}
			weights[i] = w
		}
		return endpoints, weights
	}
}
