/*
Package balancer implements Picket's client-side load balancer core: a
pool of endpoints driven by a membership stream, guarded by per-endpoint
state machines, and selected from on demand.

# Architecture

	┌───────────────────── LOAD BALANCER ──────────────────────┐
	│                                                           │
	│  membership stream ──► dispatch ──► one Holder per        │
	│    ADD / REMOVE                     endpoint              │
	│                                                           │
	│  ┌──────────────── Holder lifecycle ──────────────┐      │
	│  │                                                 │      │
	│  │   IDLE ──connect──► CONNECTING ──ok──► CONNECTED│      │
	│  │    ▲  ▲                  │               │  │   │      │
	│  │    │  └── unquarantine ──┤ failed        │  │   │      │
	│  │    │                     ▼               │  │   │      │
	│  │    │               QUARANTINED ◄──failed─┘  │   │      │
	│  │    │ stop               │                   │   │      │
	│  │    └───────────────────┐│┌──── remove ──────┘   │      │
	│  │                        ▼▼▼                      │      │
	│  │                      REMOVED (terminal)          │      │
	│  └─────────────────────────────────────────────────┘      │
	│                                                           │
	│  Choose() ──► snapshot(active) ──► weighting ──► selection│
	│                                                           │
	└──────────────────────────────────────────────────────────┘

Residence follows state: idle endpoints sit in a randomized queue,
connecting and connected endpoints occupy acquired slots under the
active-count policy, connected endpoints additionally appear in the active
list that selection snapshots. Quarantined and removed endpoints hold no
residence.

# Core Components

  - Holder: per-endpoint record (state machine, latest metrics, failure
    and metrics subscriptions, single-slot connect attempt)
  - lifecycle: the shared state graph wiring holders to the pool
  - Balancer: facade exposing Choose, ListAll, ListActive, Shutdown
  - Config: YAML manifest for the declarative subset of options

# Usage

	lb := balancer.New(membership.Static("a:443", "b:443"), nil,
		balancer.WithName[string, any]("edge-pool"),
		balancer.WithConnector[string, any](connector.TCP(3*time.Second)),
		balancer.WithBackoff[string, any](backoff.ExponentialJitter(time.Second, time.Minute)),
	)
	defer lb.Shutdown()

	endpoint, err := lb.Choose()

# Concurrency

Events are serialized per endpoint by its state machine; no ordering holds
across endpoints or between selection and lifecycle changes. Choose may
therefore return an endpoint that is being torn down — callers tolerate
this through their own error handling. No lock is held across a call into
a connector, failure source, metrics factory, or strategy.

# Error Handling

Choose and the list operations never panic and never throw through the
caller: strategy panics are recovered into errors, an empty active set
yields ErrNoEndpoints, and every operation after Shutdown yields
ErrShutDown. Connect errors and failure signals never surface to callers;
they drive quarantine internally.

# See Also

  - Package fsm for the state machine driver
  - Package membership, connector, failure for the external collaborators
  - Package strategy for weighting and selection
*/
package balancer
