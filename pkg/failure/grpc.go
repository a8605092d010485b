package failure

import (
	"context"
	"fmt"
	"time"

	"github.com/burrowlabs/picket/pkg/connector"
	"github.com/burrowlabs/picket/pkg/log"
	"github.com/rs/zerolog"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// GRPCHealth watches the standard gRPC health service on each endpoint and
// reports a failure whenever the service leaves SERVING or the watch
// stream breaks
type GRPCHealth struct {
	conns   *connector.GRPCConnector
	service string
	retry   time.Duration
	logger  zerolog.Logger
}

// NewGRPCHealth creates a gRPC health-watch failure source. The connector
// supplies the per-endpoint connections, so the watch rides the same
// channel the balancer validated. An empty service name watches the
// server's overall health.
func NewGRPCHealth(conns *connector.GRPCConnector, service string) *GRPCHealth {
	return &GRPCHealth{
		conns:   conns,
		service: service,
		retry:   5 * time.Second,
		logger:  log.WithComponent("failure.grpchealth"),
	}
}

// Subscribe is the Source[string] for this watcher
func (g *GRPCHealth) Subscribe(ctx context.Context, endpoint string) <-chan error {
	failures := make(chan error, 8)

	go func() {
		defer close(failures)

		for {
			err := g.watch(ctx, endpoint, failures)
			if ctx.Err() != nil {
				return
			}
			g.logger.Debug().
				Err(err).
				Str("endpoint", endpoint).
				Msg("Health watch ended, retrying")

			select {
			case <-time.After(g.retry):
			case <-ctx.Done():
				return
			}
		}
	}()

	return failures
}

// watch runs one Watch stream until it breaks, emitting a failure per
// not-serving transition
func (g *GRPCHealth) watch(ctx context.Context, endpoint string, failures chan<- error) error {
	conn, err := g.conns.Conn(endpoint)
	if err != nil {
		g.emit(ctx, failures, err)
		return err
	}

	stream, err := healthpb.NewHealthClient(conn).Watch(ctx, &healthpb.HealthCheckRequest{
		Service: g.service,
	})
	if err != nil {
		g.emit(ctx, failures, err)
		return err
	}

	serving := true
	for {
		resp, err := stream.Recv()
		if err != nil {
			if ctx.Err() == nil {
				g.emit(ctx, failures, fmt.Errorf("health watch for %s broke: %w", endpoint, err))
			}
			return err
		}

		if resp.Status == healthpb.HealthCheckResponse_SERVING {
			serving = true
			continue
		}

		// Report each serving-to-not-serving edge once
		if serving {
			serving = false
			g.emit(ctx, failures, fmt.Errorf("endpoint %s reported %s", endpoint, resp.Status))
		}
	}
}

// emit delivers a failure without blocking the watch goroutine. A full
// buffer means the endpoint is already being quarantined.
func (g *GRPCHealth) emit(_ context.Context, failures chan<- error, err error) {
	select {
	case failures <- err:
	default:
	}
}
