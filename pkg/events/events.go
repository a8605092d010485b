package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of balancer event
type EventType string

const (
	EventEndpointAdded       EventType = "endpoint.added"
	EventEndpointConnecting  EventType = "endpoint.connecting"
	EventEndpointConnected   EventType = "endpoint.connected"
	EventEndpointQuarantined EventType = "endpoint.quarantined"
	EventEndpointRecovered   EventType = "endpoint.recovered"
	EventEndpointRemoved     EventType = "endpoint.removed"
	EventBalancerShutdown    EventType = "balancer.shutdown"
)

// Event represents one balancer lifecycle event
type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
	Balancer  string
	Endpoint  string
	Message   string
}

// Subscriber is a channel that receives events
type Subscriber chan *Event

// Broker fans balancer events out to subscribers. Delivery is synchronous
// with the publisher but never blocks it: each subscriber owns a buffered
// channel, and a subscriber that falls behind loses events rather than
// stalling the pool.
type Broker struct {
	mu     sync.RWMutex
	subs   map[Subscriber]struct{}
	closed bool
}

// NewBroker creates a new event broker, ready for use without any
// start-up step
func NewBroker() *Broker {
	return &Broker{subs: make(map[Subscriber]struct{})}
}

// Subscribe registers a new subscriber and returns its channel. After
// Stop, the returned channel is already closed.
func (b *Broker) Subscribe() Subscriber {
	sub := make(Subscriber, 50)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(sub)
		return sub
	}
	b.subs[sub] = struct{}{}
	return sub
}

// Unsubscribe detaches a subscriber and closes its channel. Unknown or
// already-detached subscribers are a no-op.
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub]; !ok {
		return
	}
	delete(b.subs, sub)
	close(sub)
}

// Publish delivers an event to every current subscriber. Missing IDs and
// timestamps are filled in. Publishing to a stopped broker is a no-op.
func (b *Broker) Publish(event *Event) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	for sub := range b.subs {
		select {
		case sub <- event:
		default:
			// Subscriber buffer full, skip
		}
	}
}

// Stop closes every subscriber channel and rejects further publishes.
// Idempotent.
func (b *Broker) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		delete(b.subs, sub)
		close(sub)
	}
}

// SubscriberCount returns the number of active subscribers
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
