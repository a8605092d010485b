/*
Package log provides structured logging for Picket using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging
with component-specific loggers, configurable log levels, and helper functions
for common logging patterns. All logs include timestamps and support filtering
by severity level for production debugging.

# Architecture

Picket's logging system provides structured JSON logging with minimal overhead:

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│                                                           │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Global Logger                    │          │
	│  │  - Zerolog instance                         │          │
	│  │  - Initialized via log.Init()               │          │
	│  │  - Thread-safe for concurrent use           │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                     │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │         Component Loggers                   │          │
	│  │  - log.WithComponent("balancer")            │          │
	│  │  - log.WithBalancer("edge-pool")            │          │
	│  │  - log.WithEndpoint("10.0.0.7:443")         │          │
	│  └────────────────────────────────────────────┘          │
	│                                                           │
	└──────────────────────────────────────────────────────────┘

# Usage

Initialize once at process start:

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
	})

Create a child logger for a component:

	logger := log.WithComponent("balancer")
	logger.Info().
		Str("endpoint", "10.0.0.7:443").
		Str("state", "connected").
		Msg("Endpoint activated")

# Integration Points

Every Picket component takes its logger from this package at construction:
the balancer facade, the per-endpoint state machines, the membership sources,
and the failure sources all log through component child loggers. Tests
typically leave the logger uninitialized, which discards output.

# See Also

  - Package balancer for the components that emit these logs
  - https://github.com/rs/zerolog for the underlying library
*/
package log
