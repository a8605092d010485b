package failure

import (
	"context"
	"sync"
)

// Source yields an asynchronous stream of failures for an endpoint. Each
// received error counts as one failure and quarantines the endpoint. The
// stream normally never completes; subscriptions end when the context is
// cancelled.
type Source[C comparable] func(ctx context.Context, endpoint C) <-chan error

// Never reports no failures, ever. This is the balancer default. The
// returned nil channel blocks forever, which subscribers multiplex with
// their context.
func Never[C comparable]() Source[C] {
	return func(context.Context, C) <-chan error {
		return nil
	}
}

// Manual is a failure source driven by explicit Fail calls, for tests and
// for callers that run their own failure detector
type Manual[C comparable] struct {
	mu   sync.Mutex
	subs map[C][]chan error
}

// NewManual creates a manual failure source
func NewManual[C comparable]() *Manual[C] {
	return &Manual[C]{subs: make(map[C][]chan error)}
}

// Subscribe is the Source[C] for this detector
func (m *Manual[C]) Subscribe(ctx context.Context, endpoint C) <-chan error {
	ch := make(chan error, 8)

	m.mu.Lock()
	m.subs[endpoint] = append(m.subs[endpoint], ch)
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		defer m.mu.Unlock()
		channels := m.subs[endpoint]
		for i, existing := range channels {
			if existing == ch {
				m.subs[endpoint] = append(channels[:i], channels[i+1:]...)
				break
			}
		}
	}()

	return ch
}

// Fail reports one failure for an endpoint to all current subscribers
func (m *Manual[C]) Fail(endpoint C, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, ch := range m.subs[endpoint] {
		select {
		case ch <- err:
		default:
			// Subscriber buffer full; the endpoint is already being
			// quarantined, extra signals carry no information.
		}
	}
}
