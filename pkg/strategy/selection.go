package strategy

import (
	"math/rand"
	"sync/atomic"
)

// RoundRobin cycles through the candidate list with an atomic cursor,
// skipping zero-weight candidates. This is the balancer default.
func RoundRobin[C comparable]() Selection[C] {
	var cursor uint64

	return func(endpoints []C, weights []float64) (C, error) {
		var zero C
		if len(endpoints) == 0 {
			return zero, ErrNoCandidates
		}

		start := atomic.AddUint64(&cursor, 1)
		for i := 0; i < len(endpoints); i++ {
			idx := int((start + uint64(i)) % uint64(len(endpoints)))
			if weights[idx] > 0 {
				return endpoints[idx], nil
			}
		}

		// Every weight is zero; weighting gave us nothing to rank by,
		// so plain rotation is as good as anything.
		return endpoints[int(start%uint64(len(endpoints)))], nil
	}
}

// Random picks a uniformly random candidate, ignoring weights
func Random[C comparable]() Selection[C] {
	return func(endpoints []C, weights []float64) (C, error) {
		var zero C
		if len(endpoints) == 0 {
			return zero, ErrNoCandidates
		}
		return endpoints[rand.Intn(len(endpoints))], nil
	}
}

// WeightedRandom picks a candidate with probability proportional to its
// weight. Falls back to uniform when all weights are zero.
func WeightedRandom[C comparable]() Selection[C] {
	return func(endpoints []C, weights []float64) (C, error) {
		var zero C
		if len(endpoints) == 0 {
			return zero, ErrNoCandidates
		}

		var total float64
		for _, w := range weights {
			total += w
		}
		if total <= 0 {
			return endpoints[rand.Intn(len(endpoints))], nil
		}

		target := rand.Float64() * total
		var accum float64
		for i, w := range weights {
			accum += w
			if accum > target {
				return endpoints[i], nil
			}
		}
		return endpoints[len(endpoints)-1], nil
	}
}

// LeastWeight picks the candidate with the smallest weight, for weightings
// where weight encodes load rather than capacity
func LeastWeight[C comparable]() Selection[C] {
	return func(endpoints []C, weights []float64) (C, error) {
		var zero C
		if len(endpoints) == 0 {
			return zero, ErrNoCandidates
		}

		selected := 0
		for i := 1; i < len(weights); i++ {
			if weights[i] < weights[selected] {
				selected = i
			}
		}
		return endpoints[selected], nil
	}
}
