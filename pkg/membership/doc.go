/*
Package membership provides the endpoint discovery streams that drive a
Picket balancer.

A membership stream is an asynchronous sequence of add/remove events for
opaque endpoints. The balancer consumes exactly one stream; this package
supplies the event types plus the common producers.

# Architecture

	┌──────────────────── MEMBERSHIP SOURCES ──────────────────┐
	│                                                           │
	│  Static(eps...)  ──► buffered channel, ADDs then close    │
	│                                                           │
	│  DNSSource       ──► resolve on interval, diff answers    │
	│    dual-stack A+AAAA (or one family) + port, or SRV       │
	│                                                           │
	│  FileSource      ──► fsnotify watch, diff host list       │
	│    one host:port per line, '#' comments                   │
	│                                                           │
	│          all feed: chan Event[C] {ADD|REMOVE, endpoint}   │
	│                                                           │
	└──────────────────────────────────────────────────────────┘

# Usage

	source := membership.NewDNSSource(membership.DNSConfig{
		Name:     "backend.service.consul",
		Server:   "127.0.0.1:8600",
		Port:     443,
		Interval: 15 * time.Second,
	})
	source.Start()
	defer source.Stop()

	lb := balancer.New(source.Events(), metricsFactory)

Callers with their own discovery system just feed a channel of events
directly; the concrete sources here are conveniences, not requirements.

# Design Patterns

Both polling sources keep a known-set and emit only the diff, so the
balancer never sees a duplicate ADD from steady-state re-resolution. A
failed resolution or read keeps the previous membership: transient
discovery outages must not tear down a healthy pool.

Stream completion is not shutdown. A closed channel simply means no further
membership changes; the balancer keeps serving the endpoints it has.

# See Also

  - Package balancer for the consumer of these streams
*/
package membership
