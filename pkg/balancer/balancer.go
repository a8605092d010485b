package balancer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/burrowlabs/picket/pkg/backoff"
	"github.com/burrowlabs/picket/pkg/connector"
	"github.com/burrowlabs/picket/pkg/events"
	"github.com/burrowlabs/picket/pkg/failure"
	"github.com/burrowlabs/picket/pkg/fsm"
	"github.com/burrowlabs/picket/pkg/log"
	"github.com/burrowlabs/picket/pkg/membership"
	"github.com/burrowlabs/picket/pkg/queue"
	"github.com/burrowlabs/picket/pkg/strategy"
	"github.com/rs/zerolog"
)

// options holds the build-time configuration of a balancer
type options[C comparable, M any] struct {
	name                string
	weighting           strategy.Weighting[C, M]
	selection           strategy.Selection[C]
	activeCount         ActiveCountPolicy
	backoffFn           backoff.Func
	quarantineThreshold int
	connector           connector.Connector[C]
	failureSource       failure.Source[C]
	metricsFactory      MetricsFactory[C, M]
	broker              *events.Broker
	releaser            func(C)
}

// Option customizes a balancer at construction time
type Option[C comparable, M any] func(*options[C, M])

// WithName names the balancer for logs, metrics labels, and events
func WithName[C comparable, M any](name string) Option[C, M] {
	return func(o *options[C, M]) { o.name = name }
}

// WithWeighting sets the weighting strategy (default: equal weights)
func WithWeighting[C comparable, M any](w strategy.Weighting[C, M]) Option[C, M] {
	return func(o *options[C, M]) { o.weighting = w }
}

// WithSelection sets the selection strategy (default: round-robin)
func WithSelection[C comparable, M any](s strategy.Selection[C]) Option[C, M] {
	return func(o *options[C, M]) { o.selection = s }
}

// WithActiveCountPolicy sets the acquisition governor (default: acquire
// every known endpoint)
func WithActiveCountPolicy[C comparable, M any](p ActiveCountPolicy) Option[C, M] {
	return func(o *options[C, M]) { o.activeCount = p }
}

// WithBackoff sets the quarantine backoff (default: constant 10s)
func WithBackoff[C comparable, M any](f backoff.Func) Option[C, M] {
	return func(o *options[C, M]) { o.backoffFn = f }
}

// WithQuarantineThreshold caps the consecutive-failure count handed to the
// backoff function, bounding how far a growing backoff can stretch for an
// endpoint that keeps failing. Zero (the default) leaves the count
// uncapped. The holder's own counter keeps the true value.
func WithQuarantineThreshold[C comparable, M any](threshold int) Option[C, M] {
	return func(o *options[C, M]) { o.quarantineThreshold = threshold }
}

// WithReleaser registers a cleanup hook invoked once for every removed
// endpoint, after its subscriptions are released. Connectors that cache
// per-endpoint state wire their release here, e.g.
// connector.GRPCConnector.Release.
func WithReleaser[C comparable, M any](release func(C)) Option[C, M] {
	return func(o *options[C, M]) { o.releaser = release }
}

// WithConnector sets the transport connector (default: immediate success)
func WithConnector[C comparable, M any](c connector.Connector[C]) Option[C, M] {
	return func(o *options[C, M]) { o.connector = c }
}

// WithFailureSource sets the failure detector (default: never fails)
func WithFailureSource[C comparable, M any](s failure.Source[C]) Option[C, M] {
	return func(o *options[C, M]) { o.failureSource = s }
}

// WithEventBroker publishes lifecycle notifications to the broker
func WithEventBroker[C comparable, M any](b *events.Broker) Option[C, M] {
	return func(o *options[C, M]) { o.broker = b }
}

// Balancer maintains a pool of endpoints driven by a membership stream and
// selects among the connected ones on demand
type Balancer[C comparable, M any] struct {
	name      string
	opts      options[C, M]
	logger    zerolog.Logger
	lifecycle *fsm.Spec[*Holder[C, M]]

	// rootCtx scopes every holder subscription; cancelled on shutdown
	rootCtx    context.Context
	rootCancel context.CancelFunc

	clientsMu sync.RWMutex
	clients   map[C]*Holder[C, M]

	idle   *queue.Randomized[*Holder[C, M]]
	active *activeList[C, M]

	// slotMu guards the acquisition bookkeeping: acquired holds endpoints
	// in CONNECTING or CONNECTED, reserved holds endpoints the governor
	// has promoted but whose machines have not entered CONNECTING yet.
	// Counting both keeps the governor from over-acquiring during the
	// promotion window.
	slotMu   sync.Mutex
	acquired map[*Holder[C, M]]bool
	reserved map[*Holder[C, M]]bool

	stopCh       chan struct{}
	shutdownOnce sync.Once
	shut         atomic.Bool
}

// New creates a balancer consuming the given membership stream. The
// metrics factory may be nil, in which case endpoints carry no metrics and
// weighting strategies see HasMetrics == false throughout.
func New[C comparable, M any](source <-chan membership.Event[C], metricsFactory MetricsFactory[C, M], opts ...Option[C, M]) *Balancer[C, M] {
	o := options[C, M]{
		name:           "default",
		weighting:      strategy.EqualWeights[C, M](),
		selection:      strategy.RoundRobin[C](),
		activeCount:    AllEndpoints,
		backoffFn:      backoff.Constant(10 * time.Second),
		connector:      connector.Immediate[C](),
		failureSource:  failure.Never[C](),
		metricsFactory: metricsFactory,
	}
	for _, opt := range opts {
		opt(&o)
	}

	rootCtx, rootCancel := context.WithCancel(context.Background())

	b := &Balancer[C, M]{
		name:       o.name,
		opts:       o,
		logger:     log.WithBalancer(o.name),
		rootCtx:    rootCtx,
		rootCancel: rootCancel,
		clients:    make(map[C]*Holder[C, M]),
		idle:       queue.NewRandomized[*Holder[C, M]](),
		active:     newActiveList[C, M](),
		acquired:   make(map[*Holder[C, M]]bool),
		reserved:   make(map[*Holder[C, M]]bool),
		stopCh:     make(chan struct{}),
	}
	b.lifecycle = newLifecycle(b)

	go b.consumeMembership(source)

	return b
}

// consumeMembership dispatches membership events until shutdown. A closed
// stream stops membership changes without stopping the balancer.
func (b *Balancer[C, M]) consumeMembership(source <-chan membership.Event[C]) {
	for {
		select {
		case event, ok := <-source:
			if !ok {
				// Completed stream: keep serving the pool we have
				source = nil
				continue
			}
			b.dispatch(event)
		case <-b.stopCh:
			return
		}
	}
}

// dispatch applies one membership event
func (b *Balancer[C, M]) dispatch(event membership.Event[C]) {
	switch event.Type {
	case membership.EventAdd:
		b.addEndpoint(event.Endpoint)
	case membership.EventRemove:
		b.removeEndpoint(event.Endpoint)
	default:
		b.logger.Warn().
			Str("type", string(event.Type)).
			Msg("Unknown membership event type, ignoring")
	}
}

// addEndpoint creates and initializes a holder for a new endpoint. The
// insert is an atomic check-and-insert: a duplicate ADD loses the race and
// its holder is discarded without ever being initialized.
func (b *Balancer[C, M]) addEndpoint(endpoint C) {
	h := newHolder(b, endpoint)

	b.clientsMu.Lock()
	if _, exists := b.clients[endpoint]; exists {
		b.clientsMu.Unlock()
		h.shutdown()
		b.logger.Debug().
			Str("endpoint", fmt.Sprintf("%v", endpoint)).
			Msg("Duplicate add, ignoring")
		return
	}
	b.clients[endpoint] = h
	b.clientsMu.Unlock()

	b.publish(events.EventEndpointAdded, h, "membership add")
	h.initialize()

	// Consulting the governor here as well as on idle entry covers the
	// burst case where many endpoints are added before any reaches idle
	b.maybeAcquire()
}

// removeEndpoint routes a REMOVE to the endpoint's machine. Unknown
// endpoints are ignored.
func (b *Balancer[C, M]) removeEndpoint(endpoint C) {
	b.clientsMu.RLock()
	h, ok := b.clients[endpoint]
	b.clientsMu.RUnlock()

	if !ok {
		b.logger.Debug().
			Str("endpoint", fmt.Sprintf("%v", endpoint)).
			Msg("Remove for unknown endpoint, ignoring")
		return
	}
	h.machine.Submit(eventRemove)
}

// removeClient drops a holder from the client map, guarding against a
// newer holder having taken the key
func (b *Balancer[C, M]) removeClient(h *Holder[C, M]) {
	b.clientsMu.Lock()
	defer b.clientsMu.Unlock()
	if b.clients[h.endpoint] == h {
		delete(b.clients, h.endpoint)
	}
}

// clientCount returns the number of known endpoints
func (b *Balancer[C, M]) clientCount() int {
	b.clientsMu.RLock()
	defer b.clientsMu.RUnlock()
	return len(b.clients)
}

// slotAcquire moves a holder into the acquired set, clearing any
// governor reservation. Idempotent.
func (b *Balancer[C, M]) slotAcquire(h *Holder[C, M]) {
	b.slotMu.Lock()
	defer b.slotMu.Unlock()
	delete(b.reserved, h)
	b.acquired[h] = true
}

// slotRelease vacates a holder's slot and reservation. Idempotent.
func (b *Balancer[C, M]) slotRelease(h *Holder[C, M]) {
	b.slotMu.Lock()
	defer b.slotMu.Unlock()
	delete(b.reserved, h)
	delete(b.acquired, h)
}

// acquiredCount returns occupied plus reserved slots
func (b *Balancer[C, M]) acquiredCount() int {
	b.slotMu.Lock()
	defer b.slotMu.Unlock()
	return len(b.acquired) + len(b.reserved)
}

// maybeAcquire promotes one idle endpoint when the active-count policy
// wants more acquired than we hold. The reservation keeps concurrent
// callers from promoting past the policy.
func (b *Balancer[C, M]) maybeAcquire() {
	desired := b.opts.activeCount(b.clientCount())

	b.slotMu.Lock()
	if len(b.acquired)+len(b.reserved) >= desired {
		b.slotMu.Unlock()
		return
	}

	h, ok := b.idle.PollRandom()
	if !ok {
		b.slotMu.Unlock()
		return
	}
	b.reserved[h] = true
	b.slotMu.Unlock()

	h.machine.Submit(eventConnect)
}

// publish emits a lifecycle notification when a broker is configured
func (b *Balancer[C, M]) publish(eventType events.EventType, h *Holder[C, M], message string) {
	if b.opts.broker == nil {
		return
	}
	b.opts.broker.Publish(&events.Event{
		Type:     eventType,
		Balancer: b.name,
		Endpoint: fmt.Sprintf("%v", h.endpoint),
		Message:  message,
	})
}

// ListAll returns a snapshot of every known endpoint, in any state
func (b *Balancer[C, M]) ListAll() ([]C, error) {
	if b.shut.Load() {
		return nil, ErrShutDown
	}

	b.clientsMu.RLock()
	defer b.clientsMu.RUnlock()
	endpoints := make([]C, 0, len(b.clients))
	for endpoint := range b.clients {
		endpoints = append(endpoints, endpoint)
	}
	return endpoints, nil
}

// ListActive returns a snapshot of the endpoints currently eligible for
// selection
func (b *Balancer[C, M]) ListActive() ([]C, error) {
	if b.shut.Load() {
		return nil, ErrShutDown
	}

	snapshot := b.active.snapshot()
	endpoints := make([]C, len(snapshot))
	for i, h := range snapshot {
		endpoints[i] = h.endpoint
	}
	return endpoints, nil
}

// Shutdown removes every endpoint, releases all subscriptions, and stops
// membership consumption. Idempotent; blocks until every holder's machine
// has stopped. Subsequent operations return ErrShutDown.
func (b *Balancer[C, M]) Shutdown() {
	b.shutdownOnce.Do(func() {
		b.shut.Store(true)
		close(b.stopCh)

		b.clientsMu.RLock()
		holders := make([]*Holder[C, M], 0, len(b.clients))
		for _, h := range b.clients {
			holders = append(holders, h)
		}
		b.clientsMu.RUnlock()

		for _, h := range holders {
			h.machine.Submit(eventRemove)
		}
		for _, h := range holders {
			<-h.machine.Done()
		}

		b.rootCancel()

		if b.opts.broker != nil {
			b.opts.broker.Publish(&events.Event{
				Type:     events.EventBalancerShutdown,
				Balancer: b.name,
				Message:  "balancer shut down",
			})
		}

		b.logger.Info().Msg("Balancer shut down")
	})
}
