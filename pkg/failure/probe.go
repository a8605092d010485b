package failure

import (
	"context"
	"errors"
	"time"

	"github.com/burrowlabs/picket/pkg/health"
	"github.com/burrowlabs/picket/pkg/log"
	"github.com/rs/zerolog"
)

// Probe drives a health.Checker on an interval and reports a failure each
// time an endpoint crosses the consecutive-failure threshold
type Probe struct {
	checker health.Checker
	config  health.Config
	logger  zerolog.Logger
}

// NewProbe creates a probe-driven failure source
func NewProbe(checker health.Checker, config health.Config) *Probe {
	defaults := health.DefaultConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.Threshold <= 0 {
		config.Threshold = defaults.Threshold
	}

	return &Probe{
		checker: checker,
		config:  config,
		logger:  log.WithComponent("failure.probe"),
	}
}

// Subscribe is the Source[string] for this prober. One probing goroutine
// runs per subscribed endpoint until the context is cancelled.
func (p *Probe) Subscribe(ctx context.Context, endpoint string) <-chan error {
	failures := make(chan error, 8)

	go func() {
		defer close(failures)

		status := health.NewStatus()
		ticker := time.NewTicker(p.config.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				p.probe(ctx, endpoint, status, failures)
			case <-ctx.Done():
				return
			}
		}
	}()

	return failures
}

// probe runs one check and emits on the healthy-to-unhealthy edge
func (p *Probe) probe(ctx context.Context, endpoint string, status *health.Status, failures chan<- error) {
	checkCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	result := p.checker.Check(checkCtx, endpoint)
	cancel()

	if !status.Update(result, p.config) {
		return
	}

	p.logger.Warn().
		Str("endpoint", endpoint).
		Int("consecutive_failures", status.ConsecutiveFailures).
		Str("message", result.Message).
		Msg("Endpoint crossed failure threshold")

	select {
	case failures <- errors.New(result.Message):
	default:
		// Subscriber buffer full; the endpoint is already being
		// quarantined
	}
}
