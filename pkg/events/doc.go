/*
Package events provides an in-memory event broker for Picket's lifecycle
notifications.

The events package implements a lightweight event bus for broadcasting
balancer events to interested subscribers. It supports asynchronous event
delivery with per-subscriber buffering, enabling loose coupling between the
balancer core and whatever wants to observe it: dashboards, alerting hooks,
tests.

# Architecture

	┌──────────────────── EVENT BROKER ────────────────────────┐
	│                                                           │
	│  Publisher ──► synchronous fan-out under a read lock      │
	│                     │                                     │
	│                     ▼                                     │
	│  Subscriber Channels (buffer: 50 each, non-blocking send) │
	│                                                           │
	│  No broadcast goroutine: a publish is delivered (or       │
	│  dropped per slow subscriber) before Publish returns      │
	│                                                           │
	└──────────────────────────────────────────────────────────┘

# Event Types Catalog

	endpoint.added         membership ADD accepted, holder created
	endpoint.connecting    connect attempt started
	endpoint.connected     endpoint entered the active set
	endpoint.quarantined   failure detected, endpoint backing off
	endpoint.recovered     quarantine elapsed, endpoint back in the idle pool
	endpoint.removed       membership REMOVE completed, holder destroyed
	balancer.shutdown      the balancer stopped

# Usage

	broker := events.NewBroker()
	defer broker.Stop()

	sub := broker.Subscribe()
	go func() {
		for event := range sub {
			fmt.Println(event.Type, event.Endpoint)
		}
	}()

	lb := balancer.New(source, factory,
		balancer.WithEventBroker[string, Metrics](broker),
	)

# Design Patterns

Publish is non-blocking with respect to subscribers: a full subscriber
buffer drops the event for that subscriber only. The balancer's correctness
never depends on event delivery; the broker is observability, not control
flow.

# See Also

  - Package balancer for the publisher
*/
package events
