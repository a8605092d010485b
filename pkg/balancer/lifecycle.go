package balancer

import (
	"sync"

	"github.com/burrowlabs/picket/pkg/events"
	"github.com/burrowlabs/picket/pkg/fsm"
	"github.com/burrowlabs/picket/pkg/metrics"
)

// newLifecycle wires the endpoint state graph for one balancer. The graph
// is shared by every holder the balancer creates; handlers receive the
// holder as subject and reach shared structures through its balancer
// back-reference.
//
// State residence is kept as a strict function of state:
//
//	IDLE        → idleClients
//	CONNECTING  → acquired slots
//	CONNECTED   → acquired slots + activeClients
//	QUARANTINED → none
//	REMOVED     → none (holder dropped from clients)
func newLifecycle[C comparable, M any](b *Balancer[C, M]) *fsm.Spec[*Holder[C, M]] {
	return &fsm.Spec[*Holder[C, M]]{
		Initial: StateIdle,
		States: map[fsm.State]fsm.StateSpec[*Holder[C, M]]{
			StateIdle: {
				OnEnter: b.enterIdle,
				OnExit:  b.exitIdle,
				Transitions: map[fsm.Event]fsm.State{
					eventConnect: StateConnecting,
					eventFailed:  StateQuarantined,
					// A late success from a prior attempt is accepted
					// rather than dropped
					eventConnected: StateConnected,
					eventRemove:    StateRemoved,
				},
			},
			StateConnecting: {
				OnEnter: b.enterConnecting,
				OnExit:  b.exitConnecting,
				Transitions: map[fsm.Event]fsm.State{
					eventConnected: StateConnected,
					eventFailed:    StateQuarantined,
					eventRemove:    StateRemoved,
				},
			},
			StateConnected: {
				OnEnter: b.enterConnected,
				OnExit:  b.exitConnected,
				Ignore:  []fsm.Event{eventConnected, eventConnect},
				Transitions: map[fsm.Event]fsm.State{
					eventFailed: StateQuarantined,
					eventRemove: StateRemoved,
					eventStop:   StateIdle,
				},
			},
			StateQuarantined: {
				OnEnter: b.enterQuarantined,
				OnExit:  b.exitQuarantined,
				// A failure while already quarantined carries no new
				// information; the counter keeps the value of the
				// triggering failure
				Ignore: []fsm.Event{eventFailed},
				Transitions: map[fsm.Event]fsm.State{
					eventUnquarantine: StateIdle,
					eventRemove:       StateRemoved,
					eventConnected:    StateConnected,
				},
			},
			StateRemoved: {
				OnEnter:  b.enterRemoved,
				Terminal: true,
			},
		},
	}
}

// enterIdle returns the endpoint to the idle pool and gives the governor a
// chance to promote someone
func (b *Balancer[C, M]) enterIdle(h *Holder[C, M]) fsm.Event {
	b.slotRelease(h)
	metrics.Endpoints.WithLabelValues(b.name, string(StateIdle)).Inc()

	recovered := h.QuarantineCount() > 0
	b.idle.Offer(h)
	if recovered {
		b.publish(events.EventEndpointRecovered, h, "quarantine elapsed")
	}

	b.maybeAcquire()
	return fsm.None
}

func (b *Balancer[C, M]) exitIdle(h *Holder[C, M]) {
	// Best-effort: the holder is usually gone already, polled out by the
	// governor
	b.idle.Remove(h)
	metrics.Endpoints.WithLabelValues(b.name, string(StateIdle)).Dec()
}

// enterConnecting occupies an acquired slot and kicks off the connect
// attempt
func (b *Balancer[C, M]) enterConnecting(h *Holder[C, M]) fsm.Event {
	b.slotAcquire(h)
	metrics.Endpoints.WithLabelValues(b.name, string(StateConnecting)).Inc()
	b.publish(events.EventEndpointConnecting, h, "connect attempt started")
	h.connect()
	return fsm.None
}

func (b *Balancer[C, M]) exitConnecting(h *Holder[C, M]) {
	metrics.Endpoints.WithLabelValues(b.name, string(StateConnecting)).Dec()
}

// enterConnected makes the endpoint eligible for selection. The slot
// acquire covers stale-success entries straight from idle or quarantine,
// where no connecting state preceded this one.
func (b *Balancer[C, M]) enterConnected(h *Holder[C, M]) fsm.Event {
	b.slotAcquire(h)
	h.resetQuarantine()
	metrics.Endpoints.WithLabelValues(b.name, string(StateConnected)).Inc()
	b.active.add(h)
	b.publish(events.EventEndpointConnected, h, "endpoint active")
	return fsm.None
}

func (b *Balancer[C, M]) exitConnected(h *Holder[C, M]) {
	b.active.remove(h)
	metrics.Endpoints.WithLabelValues(b.name, string(StateConnected)).Dec()
}

// enterQuarantined isolates a failing endpoint and schedules its return.
// The backoff is computed exactly once, from the counter value at entry;
// further failures while quarantined are ignored by the table.
func (b *Balancer[C, M]) enterQuarantined(h *Holder[C, M]) fsm.Event {
	h.cancelConnect()
	b.slotRelease(h)

	count := h.incrementQuarantine()

	// The threshold caps what the backoff sees, not the counter itself
	capped := count
	if b.opts.quarantineThreshold > 0 && capped > b.opts.quarantineThreshold {
		capped = b.opts.quarantineThreshold
	}
	delay := b.opts.backoffFn(capped)
	if delay < 0 {
		delay = 0
	}

	metrics.Endpoints.WithLabelValues(b.name, string(StateQuarantined)).Inc()
	metrics.Quarantines.WithLabelValues(b.name).Inc()
	b.publish(events.EventEndpointQuarantined, h, "failure detected")

	h.logger.Info().
		Int("quarantine_count", count).
		Dur("backoff", delay).
		Msg("Endpoint quarantined")

	h.startQuarantineTimer(delay)
	return fsm.None
}

func (b *Balancer[C, M]) exitQuarantined(h *Holder[C, M]) {
	h.stopQuarantineTimer()
	metrics.Endpoints.WithLabelValues(b.name, string(StateQuarantined)).Dec()
}

// enterRemoved tears the endpoint down: every residence is vacated, every
// subscription released, and the holder dropped from the client map. The
// machine stops itself afterwards, so stale connect outcomes land nowhere.
func (b *Balancer[C, M]) enterRemoved(h *Holder[C, M]) fsm.Event {
	b.active.remove(h)
	b.idle.Remove(h)
	b.slotRelease(h)
	b.removeClient(h)
	h.shutdown()
	if b.opts.releaser != nil {
		b.opts.releaser(h.endpoint)
	}
	b.publish(events.EventEndpointRemoved, h, "endpoint removed")

	h.logger.Debug().Msg("Endpoint removed")
	return fsm.None
}

// activeList is the ordered sequence of connected holders, supporting
// concurrent append, remove, and point-in-time snapshot
type activeList[C comparable, M any] struct {
	mu      sync.RWMutex
	holders []*Holder[C, M]
}

func newActiveList[C comparable, M any]() *activeList[C, M] {
	return &activeList[C, M]{}
}

func (l *activeList[C, M]) add(h *Holder[C, M]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.holders = append(l.holders, h)
}

func (l *activeList[C, M]) remove(h *Holder[C, M]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, existing := range l.holders {
		if existing == h {
			l.holders = append(l.holders[:i], l.holders[i+1:]...)
			return
		}
	}
}

func (l *activeList[C, M]) snapshot() []*Holder[C, M] {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Holder[C, M], len(l.holders))
	copy(out, l.holders)
	return out
}

func (l *activeList[C, M]) len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.holders)
}
