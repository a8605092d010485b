package balancer

import (
	"context"

	"github.com/burrowlabs/picket/pkg/fsm"
)

// MetricsFactory attaches a metrics stream to an endpoint. The latest
// emitted value becomes the endpoint's metrics; a closed channel ends
// updates and the last value is retained. Subscriptions are scoped by the
// context and end when the endpoint is removed.
type MetricsFactory[C comparable, M any] func(ctx context.Context, endpoint C) <-chan M

// ActiveCountPolicy maps the total number of known endpoints to the number
// of endpoints the balancer should hold acquired (connecting or
// connected). The policy only governs new acquisitions; overshoot from a
// shrinking pool is tolerated and drains naturally.
type ActiveCountPolicy func(total int) int

// AllEndpoints acquires every known endpoint. This is the balancer
// default.
func AllEndpoints(total int) int {
	return total
}

// FixedActiveCount caps acquisitions at n regardless of pool size
func FixedActiveCount(n int) ActiveCountPolicy {
	return func(total int) int {
		if total < n {
			return total
		}
		return n
	}
}

// Endpoint lifecycle states
const (
	StateIdle        fsm.State = "idle"
	StateConnecting  fsm.State = "connecting"
	StateConnected   fsm.State = "connected"
	StateQuarantined fsm.State = "quarantined"
	StateRemoved     fsm.State = "removed"
)

// Endpoint lifecycle events
const (
	eventConnect      fsm.Event = "connect"
	eventConnected    fsm.Event = "connected"
	eventFailed       fsm.Event = "failed"
	eventRemove       fsm.Event = "remove"
	eventStop         fsm.Event = "stop"
	eventUnquarantine fsm.Event = "unquarantine"
)
