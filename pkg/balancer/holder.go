package balancer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/burrowlabs/picket/pkg/fsm"
	"github.com/burrowlabs/picket/pkg/metrics"
	"github.com/rs/zerolog"
)

// Holder is the per-endpoint record binding an endpoint to its state
// machine, its latest metrics value, and its subscriptions. All lifecycle
// transitions for the endpoint are serialized through the holder's
// machine.
type Holder[C comparable, M any] struct {
	endpoint C
	balancer *Balancer[C, M]
	machine  *fsm.Machine[*Holder[C, M]]
	logger   zerolog.Logger

	// subsCtx scopes the metrics and failure subscriptions and every
	// connect attempt; cancelled on removal and on balancer shutdown
	subsCtx    context.Context
	subsCancel context.CancelFunc

	mu              sync.Mutex
	metricsValue    M
	hasMetrics      bool
	quarantineCount int
	connectCancel   context.CancelFunc
	quarantineTimer *time.Timer

	shutdownOnce sync.Once
}

// newHolder creates a holder bound to the idle state. The state machine
// does not run until initialize.
func newHolder[C comparable, M any](b *Balancer[C, M], endpoint C) *Holder[C, M] {
	subsCtx, subsCancel := context.WithCancel(b.rootCtx)

	h := &Holder[C, M]{
		endpoint:   endpoint,
		balancer:   b,
		logger:     b.logger.With().Str("endpoint", fmt.Sprintf("%v", endpoint)).Logger(),
		subsCtx:    subsCtx,
		subsCancel: subsCancel,
	}
	h.machine = fsm.New(b.lifecycle, h, h.logger)
	return h
}

// initialize starts the state-machine driver and subscribes to the metrics
// and failure streams
func (h *Holder[C, M]) initialize() {
	h.machine.Start()

	if factory := h.balancer.opts.metricsFactory; factory != nil {
		go h.consumeMetrics(factory(h.subsCtx, h.endpoint))
	}
	go h.consumeFailures(h.balancer.opts.failureSource(h.subsCtx, h.endpoint))
}

// Endpoint returns the endpoint this holder tracks
func (h *Holder[C, M]) Endpoint() C {
	return h.endpoint
}

// State returns the holder's current lifecycle state
func (h *Holder[C, M]) State() fsm.State {
	return h.machine.State()
}

// QuarantineCount returns the consecutive-failure count
func (h *Holder[C, M]) QuarantineCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.quarantineCount
}

// Metrics returns the latest metrics value and whether one has been
// received yet
func (h *Holder[C, M]) Metrics() (M, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.metricsValue, h.hasMetrics
}

// resetQuarantine clears the consecutive-failure count after a successful
// connect
func (h *Holder[C, M]) resetQuarantine() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.quarantineCount = 0
}

// incrementQuarantine bumps the consecutive-failure count and returns the
// new value, which parameterizes the backoff for this quarantine
func (h *Holder[C, M]) incrementQuarantine() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.quarantineCount++
	return h.quarantineCount
}

// consumeMetrics applies each emission as the new latest value
func (h *Holder[C, M]) consumeMetrics(values <-chan M) {
	for {
		select {
		case value, ok := <-values:
			if !ok {
				// Stream ended; retain the last value
				return
			}
			h.mu.Lock()
			h.metricsValue = value
			h.hasMetrics = true
			h.mu.Unlock()
		case <-h.subsCtx.Done():
			return
		}
	}
}

// consumeFailures maps each failure emission to a FAILED event
func (h *Holder[C, M]) consumeFailures(failures <-chan error) {
	for {
		select {
		case err, ok := <-failures:
			if !ok {
				return
			}
			h.logger.Warn().Err(err).Msg("Failure reported for endpoint")
			h.machine.Submit(eventFailed)
		case <-h.subsCtx.Done():
			return
		}
	}
}

// connect starts a new connect attempt, replacing (and cancelling) any
// prior in-flight attempt. The attempt's outcome is submitted back to the
// machine; an outcome arriving after cancellation is absorbed.
func (h *Holder[C, M]) connect() {
	h.mu.Lock()
	if h.connectCancel != nil {
		h.connectCancel()
	}
	ctx, cancel := context.WithCancel(h.subsCtx)
	h.connectCancel = cancel
	h.mu.Unlock()

	metrics.ConnectAttempts.WithLabelValues(h.balancer.name).Inc()

	go func() {
		err := h.balancer.opts.connector(ctx, h.endpoint)
		if ctx.Err() != nil {
			// Cancelled attempt; any late outcome is dropped by the
			// machine if the holder was removed.
			return
		}
		if err != nil {
			metrics.ConnectFailures.WithLabelValues(h.balancer.name).Inc()
			h.logger.Warn().Err(err).Msg("Connect attempt failed")
			h.machine.Submit(eventFailed)
			return
		}
		h.machine.Submit(eventConnected)
	}()
}

// cancelConnect cancels the in-flight connect attempt, if any
func (h *Holder[C, M]) cancelConnect() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.connectCancel != nil {
		h.connectCancel()
		h.connectCancel = nil
	}
}

// startQuarantineTimer schedules the unquarantine wake-up
func (h *Holder[C, M]) startQuarantineTimer(delay time.Duration) {
	machine := h.machine
	h.mu.Lock()
	h.quarantineTimer = time.AfterFunc(delay, func() {
		machine.Submit(eventUnquarantine)
	})
	h.mu.Unlock()
}

// stopQuarantineTimer cancels a pending unquarantine wake-up
func (h *Holder[C, M]) stopQuarantineTimer() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.quarantineTimer != nil {
		h.quarantineTimer.Stop()
		h.quarantineTimer = nil
	}
}

// shutdown releases every subscription and the connect slot. Idempotent.
func (h *Holder[C, M]) shutdown() {
	h.shutdownOnce.Do(func() {
		h.cancelConnect()
		h.subsCancel()
	})
}
