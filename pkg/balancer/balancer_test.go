package balancer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/burrowlabs/picket/pkg/backoff"
	"github.com/burrowlabs/picket/pkg/events"
	"github.com/burrowlabs/picket/pkg/failure"
	"github.com/burrowlabs/picket/pkg/membership"
	"github.com/burrowlabs/picket/pkg/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 5 * time.Second
	tick    = 5 * time.Millisecond
)

// activeSet returns the current active endpoints as a set
func activeSet(t *testing.T, b *Balancer[string, int]) map[string]bool {
	t.Helper()
	endpoints, err := b.ListActive()
	require.NoError(t, err)
	set := make(map[string]bool, len(endpoints))
	for _, endpoint := range endpoints {
		set[endpoint] = true
	}
	return set
}

func waitActive(t *testing.T, b *Balancer[string, int], endpoints ...string) {
	t.Helper()
	require.Eventually(t, func() bool {
		set := activeSet(t, b)
		if len(set) != len(endpoints) {
			return false
		}
		for _, endpoint := range endpoints {
			if !set[endpoint] {
				return false
			}
		}
		return true
	}, waitFor, tick)
}

// TestHappyPath feeds two endpoints through the default immediate
// connector and verifies both become active and selectable
func TestHappyPath(t *testing.T) {
	b := New[string, int](membership.Static("a:1", "b:1"), nil)
	defer b.Shutdown()

	waitActive(t, b, "a:1", "b:1")

	all, err := b.ListAll()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a:1", "b:1"}, all)

	// Default round-robin visits both endpoints
	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		endpoint, err := b.Choose()
		require.NoError(t, err)
		seen[endpoint] = true
	}
	assert.Len(t, seen, 2)
}

// TestChooseNoEndpoints tests the structured error with an empty pool
func TestChooseNoEndpoints(t *testing.T) {
	source := make(chan membership.Event[string])
	defer close(source)

	b := New[string, int](source, nil)
	defer b.Shutdown()

	_, err := b.Choose()
	assert.ErrorIs(t, err, ErrNoEndpoints)
}

// TestQuarantineAndRecovery runs an endpoint through a failing first
// connect: idle, connecting, quarantined, idle, connecting, connected
func TestQuarantineAndRecovery(t *testing.T) {
	var mu sync.Mutex
	attempts := make(map[string]int)
	flaky := func(ctx context.Context, endpoint string) error {
		mu.Lock()
		defer mu.Unlock()
		attempts[endpoint]++
		if attempts[endpoint] == 1 {
			return errors.New("connection refused")
		}
		return nil
	}

	broker := events.NewBroker()
	defer broker.Stop()
	sub := broker.Subscribe()

	b := New[string, int](membership.Static("a:1"), nil,
		WithConnector[string, int](flaky),
		WithBackoff[string, int](backoff.Constant(30*time.Millisecond)),
		WithEventBroker[string, int](broker),
	)
	defer b.Shutdown()

	waitActive(t, b, "a:1")

	// The failure count resets on the successful connect
	b.clientsMu.RLock()
	h := b.clients["a:1"]
	b.clientsMu.RUnlock()
	require.NotNil(t, h)
	assert.Equal(t, 0, h.QuarantineCount())
	assert.Equal(t, StateConnected, h.State())

	// The notification stream shows the quarantine before the recovery
	var trajectory []events.EventType
	deadline := time.After(waitFor)
	for {
		var done bool
		select {
		case event := <-sub:
			trajectory = append(trajectory, event.Type)
			done = event.Type == events.EventEndpointConnected
		case <-deadline:
			t.Fatalf("connected event never published, saw %v", trajectory)
		}
		if done {
			break
		}
	}
	assert.Contains(t, trajectory, events.EventEndpointQuarantined)
	assert.Contains(t, trajectory, events.EventEndpointRecovered)
}

// TestFailureWhileActive tests that a failure signal evicts an active
// endpoint and backoff returns it
func TestFailureWhileActive(t *testing.T) {
	manual := failure.NewManual[string]()

	b := New[string, int](membership.Static("a:1"), nil,
		WithFailureSource[string, int](manual.Subscribe),
		WithBackoff[string, int](backoff.Constant(30*time.Millisecond)),
	)
	defer b.Shutdown()

	waitActive(t, b, "a:1")

	manual.Fail("a:1", errors.New("upstream reset"))

	// Evicted promptly
	require.Eventually(t, func() bool {
		return !activeSet(t, b)["a:1"]
	}, waitFor, tick)

	// And back after the backoff plus a reconnect
	waitActive(t, b, "a:1")
}

// TestRemovalDuringConnect tests that a REMOVE mid-connect cancels the
// attempt and drops the endpoint completely
func TestRemovalDuringConnect(t *testing.T) {
	cancelled := make(chan struct{})
	var once sync.Once
	hanging := func(ctx context.Context, endpoint string) error {
		<-ctx.Done()
		once.Do(func() { close(cancelled) })
		return ctx.Err()
	}

	source := make(chan membership.Event[string])
	b := New[string, int](source, nil,
		WithConnector[string, int](hanging),
	)
	defer b.Shutdown()

	source <- membership.Add("a:1")

	// Wait until the endpoint is connecting
	require.Eventually(t, func() bool {
		b.clientsMu.RLock()
		h := b.clients["a:1"]
		b.clientsMu.RUnlock()
		return h != nil && h.State() == StateConnecting
	}, waitFor, tick)

	source <- membership.Remove("a:1")

	select {
	case <-cancelled:
	case <-time.After(waitFor):
		t.Fatal("connect attempt was not cancelled")
	}

	require.Eventually(t, func() bool {
		return b.clientCount() == 0
	}, waitFor, tick)

	active, err := b.ListActive()
	require.NoError(t, err)
	assert.Empty(t, active)
	close(source)
}

// TestDuplicateAddIgnored tests ADD idempotence
func TestDuplicateAddIgnored(t *testing.T) {
	source := make(chan membership.Event[string])
	b := New[string, int](source, nil)
	defer b.Shutdown()

	source <- membership.Add("a:1")
	source <- membership.Add("a:1")
	close(source)

	waitActive(t, b, "a:1")
	assert.Equal(t, 1, b.clientCount())
}

// TestRemoveUnknownIgnored tests that a REMOVE for an unknown endpoint is
// a no-op
func TestRemoveUnknownIgnored(t *testing.T) {
	source := make(chan membership.Event[string])
	b := New[string, int](source, nil)
	defer b.Shutdown()

	source <- membership.Remove("ghost:1")
	source <- membership.Add("a:1")
	close(source)

	waitActive(t, b, "a:1")
	assert.Equal(t, 1, b.clientCount())
}

// TestMembershipStreamCompletion tests that a completed stream does not
// terminate the balancer
func TestMembershipStreamCompletion(t *testing.T) {
	b := New[string, int](membership.Static("a:1"), nil)
	defer b.Shutdown()

	waitActive(t, b, "a:1")

	// The static stream is closed by now; the pool keeps serving
	endpoint, err := b.Choose()
	require.NoError(t, err)
	assert.Equal(t, "a:1", endpoint)
}

// TestActiveCountPolicy tests that the governor acquires no more than the
// policy allows
func TestActiveCountPolicy(t *testing.T) {
	b := New[string, int](membership.Static("a:1", "b:1", "c:1", "d:1"), nil,
		WithActiveCountPolicy[string, int](FixedActiveCount(2)),
	)
	defer b.Shutdown()

	require.Eventually(t, func() bool {
		return len(activeSet(t, b)) == 2
	}, waitFor, tick)

	// The governor never overshoots the policy
	for i := 0; i < 20; i++ {
		assert.LessOrEqual(t, b.acquiredCount(), 2)
		time.Sleep(2 * time.Millisecond)
	}
	assert.Equal(t, 4, b.clientCount(), "unacquired endpoints stay known")
}

// TestQuarantinedVisibleInListAll tests that quarantined endpoints remain
// known but not active
func TestQuarantinedVisibleInListAll(t *testing.T) {
	refusing := func(ctx context.Context, endpoint string) error {
		return errors.New("connection refused")
	}

	b := New[string, int](membership.Static("a:1"), nil,
		WithConnector[string, int](refusing),
		WithBackoff[string, int](backoff.Constant(time.Hour)),
	)
	defer b.Shutdown()

	require.Eventually(t, func() bool {
		b.clientsMu.RLock()
		h := b.clients["a:1"]
		b.clientsMu.RUnlock()
		return h != nil && h.State() == StateQuarantined
	}, waitFor, tick)

	all, err := b.ListAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"a:1"}, all)

	active, err := b.ListActive()
	require.NoError(t, err)
	assert.Empty(t, active)

	_, err = b.Choose()
	assert.ErrorIs(t, err, ErrNoEndpoints)
}

// TestQuarantineThresholdCapsBackoff tests that the backoff never sees a
// failure count above the threshold while the holder keeps counting
func TestQuarantineThresholdCapsBackoff(t *testing.T) {
	refusing := func(ctx context.Context, endpoint string) error {
		return errors.New("connection refused")
	}

	var mu sync.Mutex
	var counts []int
	recording := func(failures int) time.Duration {
		mu.Lock()
		defer mu.Unlock()
		counts = append(counts, failures)
		return 10 * time.Millisecond
	}

	b := New[string, int](membership.Static("a:1"), nil,
		WithConnector[string, int](refusing),
		WithBackoff[string, int](recording),
		WithQuarantineThreshold[string, int](2),
	)
	defer b.Shutdown()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(counts) >= 4
	}, waitFor, tick)

	mu.Lock()
	observed := make([]int, len(counts))
	copy(observed, counts)
	mu.Unlock()

	assert.Equal(t, 1, observed[0])
	assert.Equal(t, 2, observed[1])
	for i, count := range observed {
		assert.LessOrEqual(t, count, 2, "backoff call %d exceeded the threshold", i)
	}

	// The holder's own counter runs past the cap
	b.clientsMu.RLock()
	h := b.clients["a:1"]
	b.clientsMu.RUnlock()
	require.NotNil(t, h)
	assert.Greater(t, h.QuarantineCount(), 2)
}

// TestReleaserInvokedOnRemoval tests that removed endpoints flow through
// the configured release hook exactly once
func TestReleaserInvokedOnRemoval(t *testing.T) {
	var mu sync.Mutex
	released := make(map[string]int)

	source := make(chan membership.Event[string])
	b := New[string, int](source, nil,
		WithReleaser[string, int](func(endpoint string) {
			mu.Lock()
			defer mu.Unlock()
			released[endpoint]++
		}),
	)
	defer b.Shutdown()

	source <- membership.Add("a:1")
	waitActive(t, b, "a:1")

	source <- membership.Remove("a:1")
	close(source)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return released["a:1"] == 1
	}, waitFor, tick)

	assert.Equal(t, 0, b.clientCount())
}

// TestShutdown tests teardown, idempotence, and post-shutdown errors
func TestShutdown(t *testing.T) {
	b := New[string, int](membership.Static("a:1", "b:1"), nil)

	waitActive(t, b, "a:1", "b:1")

	b.Shutdown()
	b.Shutdown()

	assert.Equal(t, 0, b.clientCount())

	_, err := b.Choose()
	assert.ErrorIs(t, err, ErrShutDown)

	_, err = b.ListAll()
	assert.ErrorIs(t, err, ErrShutDown)

	_, err = b.ListActive()
	assert.ErrorIs(t, err, ErrShutDown)
}

// TestWeightingDrivesSelection tests the metrics path end to end: factory
// emissions reach the weighting, which steers the selection
func TestWeightingDrivesSelection(t *testing.T) {
	factory := func(ctx context.Context, endpoint string) <-chan int {
		values := make(chan int, 1)
		// Weight-as-load: a:1 is cheap, b:1 is busy
		if endpoint == "a:1" {
			values <- 1
		} else {
			values <- 10
		}
		return values
	}

	b := New[string, int](membership.Static("a:1", "b:1"), factory,
		WithWeighting(strategy.ByMetric[string](func(m int) float64 {
			return float64(m)
		}, 100)),
		WithSelection[string, int](strategy.LeastWeight[string]()),
	)
	defer b.Shutdown()

	waitActive(t, b, "a:1", "b:1")

	// Once both metrics have landed, the least-loaded endpoint wins
	require.Eventually(t, func() bool {
		endpoint, err := b.Choose()
		return err == nil && endpoint == "a:1"
	}, waitFor, tick)

	for i := 0; i < 10; i++ {
		endpoint, err := b.Choose()
		require.NoError(t, err)
		assert.Equal(t, "a:1", endpoint)
	}
}

// TestStrategyPanicIsolated tests that a panicking strategy surfaces as an
// error without poisoning the balancer
func TestStrategyPanicIsolated(t *testing.T) {
	b := New[string, int](membership.Static("a:1"), nil,
		WithWeighting[string, int](func([]strategy.Active[string, int]) ([]string, []float64) {
			panic("bad strategy")
		}),
	)
	defer b.Shutdown()

	waitActive(t, b, "a:1")

	_, err := b.Choose()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")

	// The pool itself is unharmed
	active, err := b.ListActive()
	require.NoError(t, err)
	assert.Equal(t, []string{"a:1"}, active)
}

// TestConcurrentChooseUnderChurn oscillates membership while hammering
// Choose: every call returns a known endpoint or ErrNoEndpoints, and
// nothing hangs
func TestConcurrentChooseUnderChurn(t *testing.T) {
	const endpoints = 20

	known := make(map[string]bool)
	source := make(chan membership.Event[string], endpoints*16)
	for i := 0; i < endpoints; i++ {
		endpoint := fmt.Sprintf("ep-%d:1", i)
		known[endpoint] = true
		source <- membership.Add(endpoint)
	}

	b := New[string, int](source, nil,
		WithBackoff[string, int](backoff.Constant(10*time.Millisecond)),
	)
	defer b.Shutdown()

	stopChurn := make(chan struct{})
	var churnWG sync.WaitGroup
	churnWG.Add(1)
	go func() {
		defer churnWG.Done()
		i := 0
		for {
			select {
			case <-stopChurn:
				close(source)
				return
			default:
			}
			endpoint := fmt.Sprintf("ep-%d:1", i%endpoints)
			source <- membership.Remove(endpoint)
			source <- membership.Add(endpoint)
			i++
			time.Sleep(time.Millisecond)
		}
	}()

	var chooseWG sync.WaitGroup
	errCh := make(chan error, 200)
	for i := 0; i < 50; i++ {
		chooseWG.Add(1)
		go func() {
			defer chooseWG.Done()
			for j := 0; j < 20; j++ {
				endpoint, err := b.Choose()
				if err != nil {
					if !errors.Is(err, ErrNoEndpoints) {
						errCh <- err
					}
					continue
				}
				if !known[endpoint] {
					errCh <- fmt.Errorf("unknown endpoint chosen: %s", endpoint)
				}
			}
		}()
	}

	chooseWG.Wait()
	close(stopChurn)
	churnWG.Wait()
	close(errCh)

	for err := range errCh {
		t.Error(err)
	}
}
