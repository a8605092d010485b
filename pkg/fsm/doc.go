/*
Package fsm provides the table-driven state machine driver behind every
endpoint lifecycle in Picket.

The fsm package implements a generic, per-instance finite state machine.
A Spec declares the state graph once (states, transition tables, ignore
sets, enter/exit hooks); each Machine binds that graph to one subject and
serializes all event processing for that subject on a single goroutine.

# Architecture

	┌──────────────────── STATE MACHINE ───────────────────────┐
	│                                                           │
	│  Submit(event)  ──►  pending queue (unbounded, FIFO)      │
	│       any goroutine          │                            │
	│                              ▼                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │              Event Loop                     │          │
	│  │  - one goroutine per machine                │          │
	│  │  - dequeue → table lookup → transition      │          │
	│  │  - OnExit(prev) then OnEnter(next), atomic  │          │
	│  │    with respect to event dispatch           │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                     │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          Transition Outcomes                │          │
	│  │  - table hit:   exit, enter, follow-up      │          │
	│  │  - ignore hit:  debug log, no change        │          │
	│  │  - table miss:  warn log, event dropped     │          │
	│  └────────────────────────────────────────────┘          │
	│                                                           │
	└──────────────────────────────────────────────────────────┘

# Core Components

  - Spec[T]: the immutable state graph, shared across machines
  - StateSpec[T]: per-state transitions, ignore set, hooks, terminal flag
  - Machine[T]: one subject's driver with a serialized event loop
  - EnterHandler: may return a follow-up event, queued behind pending ones

# Usage

	spec := &fsm.Spec[*door]{
		Initial: "closed",
		States: map[fsm.State]fsm.StateSpec[*door]{
			"closed": {
				Transitions: map[fsm.Event]fsm.State{"open": "open"},
			},
			"open": {
				OnEnter:     func(d *door) fsm.Event { return "latch" },
				Transitions: map[fsm.Event]fsm.State{"latch": "closed"},
			},
		},
	}
	m := fsm.New(spec, d, logger)
	m.Start()
	m.Submit("open")

# Design Patterns

The machine is state-machine-as-data: a transition is a table hit, an
illegal event is a table miss that gets logged and dropped rather than
raised. Enter handlers that need asynchronous work (dialing, timers) start
it on another goroutine and Submit the result later; Submit on a stopped
machine is a silent no-op, which is how stale completions are absorbed
after an endpoint is removed.

# Performance Characteristics

Submit is a mutex-guarded append plus a non-blocking channel send; it never
blocks the caller. The pending queue is unbounded, so a handler submitting
to its own machine cannot deadlock.

# See Also

  - Package balancer for the endpoint lifecycle graph built on this driver
*/
package fsm
