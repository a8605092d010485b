package failure

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/burrowlabs/picket/pkg/health"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestManualFailDelivery tests that Fail reaches the endpoint's
// subscribers and nobody else
func TestManualFailDelivery(t *testing.T) {
	manual := NewManual[string]()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := manual.Subscribe(ctx, "a")
	b := manual.Subscribe(ctx, "b")

	manual.Fail("a", errors.New("boom"))

	select {
	case err := <-a:
		assert.EqualError(t, err, "boom")
	case <-time.After(2 * time.Second):
		t.Fatal("failure not delivered")
	}

	select {
	case err := <-b:
		t.Fatalf("unexpected failure for b: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
}

// TestManualUnsubscribeOnCancel tests that cancelling the subscription
// context detaches the subscriber
func TestManualUnsubscribeOnCancel(t *testing.T) {
	manual := NewManual[string]()
	ctx, cancel := context.WithCancel(context.Background())

	ch := manual.Subscribe(ctx, "a")
	cancel()

	require.Eventually(t, func() bool {
		manual.mu.Lock()
		defer manual.mu.Unlock()
		return len(manual.subs["a"]) == 0
	}, 2*time.Second, 5*time.Millisecond)

	// Late failures go nowhere
	manual.Fail("a", errors.New("late"))
	select {
	case err := <-ch:
		if err != nil {
			t.Fatalf("unexpected delivery after cancel: %v", err)
		}
	default:
	}
}

// TestNever tests that the default source blocks forever
func TestNever(t *testing.T) {
	source := Never[string]()
	ch := source(context.Background(), "a")

	select {
	case err := <-ch:
		t.Fatalf("never source emitted: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
}

// flakyChecker fails exactly the probes its failYes predicate selects
type flakyChecker struct {
	mu      sync.Mutex
	probes  int
	failYes func(probe int) bool
}

func (f *flakyChecker) Check(ctx context.Context, endpoint string) health.Result {
	f.mu.Lock()
	f.probes++
	probe := f.probes
	f.mu.Unlock()

	if f.failYes(probe) {
		return health.Result{Healthy: false, Message: "probe failed", CheckedAt: time.Now()}
	}
	return health.Result{Healthy: true, Message: "ok", CheckedAt: time.Now()}
}

func (f *flakyChecker) Type() health.CheckType { return health.CheckTypeTCP }

// TestProbeEmitsOnThresholdEdge tests that the probe source emits exactly
// one failure when the threshold is crossed
func TestProbeEmitsOnThresholdEdge(t *testing.T) {
	checker := &flakyChecker{failYes: func(int) bool { return true }}
	probe := NewProbe(checker, health.Config{
		Interval:  10 * time.Millisecond,
		Timeout:   time.Second,
		Threshold: 2,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	failures := probe.Subscribe(ctx, "10.0.0.1:80")

	select {
	case err := <-failures:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("probe source never emitted")
	}

	// The endpoint stays broken, but no further edges fire
	select {
	case err := <-failures:
		t.Fatalf("unexpected second emission: %v", err)
	case <-time.After(100 * time.Millisecond):
	}
}

// TestProbeRecoveryRearmsEdge tests that a healthy stretch re-arms the
// failure edge
func TestProbeRecoveryRearmsEdge(t *testing.T) {
	// Fail twice, recover for a stretch, then fail twice again
	checker := &flakyChecker{failYes: func(probe int) bool {
		return probe <= 2 || probe >= 8
	}}
	probe := NewProbe(checker, health.Config{
		Interval:  10 * time.Millisecond,
		Timeout:   time.Second,
		Threshold: 2,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	failures := probe.Subscribe(ctx, "10.0.0.1:80")

	for i := 0; i < 2; i++ {
		select {
		case err := <-failures:
			require.Error(t, err, "edge %d", i)
		case <-time.After(2 * time.Second):
			t.Fatalf("edge %d never fired", i)
		}
	}
}

// TestProbeStopsOnCancel tests that cancelling the subscription stops the
// probing goroutine
func TestProbeStopsOnCancel(t *testing.T) {
	checker := &flakyChecker{failYes: func(int) bool { return false }}
	probe := NewProbe(checker, health.Config{Interval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	failures := probe.Subscribe(ctx, "10.0.0.1:80")
	cancel()

	require.Eventually(t, func() bool {
		select {
		case _, open := <-failures:
			return !open
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond, "failure channel should close after cancel")
}
