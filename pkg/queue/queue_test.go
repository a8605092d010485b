package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestOfferAndPoll tests basic offer and poll behavior
func TestOfferAndPoll(t *testing.T) {
	q := NewRandomized[string]()

	_, ok := q.PollRandom()
	assert.False(t, ok, "empty queue should return absent")

	q.Offer("a")
	q.Offer("b")
	q.Offer("c")
	assert.Equal(t, 3, q.Len())

	seen := make(map[string]bool)
	for i := 0; i < 3; i++ {
		item, ok := q.PollRandom()
		require.True(t, ok)
		assert.False(t, seen[item], "each element should be polled once")
		seen[item] = true
	}

	_, ok = q.PollRandom()
	assert.False(t, ok, "drained queue should return absent")
}

// TestRemove tests best-effort removal
func TestRemove(t *testing.T) {
	tests := []struct {
		name        string
		offer       []string
		remove      string
		expectFound bool
		expectLen   int
	}{
		{
			name:        "remove present element",
			offer:       []string{"a", "b"},
			remove:      "a",
			expectFound: true,
			expectLen:   1,
		},
		{
			name:        "remove absent element",
			offer:       []string{"a"},
			remove:      "x",
			expectFound: false,
			expectLen:   1,
		},
		{
			name:        "remove from empty queue",
			offer:       nil,
			remove:      "a",
			expectFound: false,
			expectLen:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewRandomized[string]()
			for _, item := range tt.offer {
				q.Offer(item)
			}

			assert.Equal(t, tt.expectFound, q.Remove(tt.remove))
			assert.Equal(t, tt.expectLen, q.Len())
		})
	}
}

// TestRemoveOneOccurrence tests that duplicates are removed one at a time
func TestRemoveOneOccurrence(t *testing.T) {
	q := NewRandomized[string]()
	q.Offer("a")
	q.Offer("a")

	assert.True(t, q.Remove("a"))
	assert.Equal(t, 1, q.Len())
	assert.True(t, q.Remove("a"))
	assert.Equal(t, 0, q.Len())
	assert.False(t, q.Remove("a"))
}

// TestConcurrentAccess tests that concurrent offer and poll do not race
// or lose elements
func TestConcurrentAccess(t *testing.T) {
	q := NewRandomized[int]()

	var wg sync.WaitGroup
	const n = 100

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			q.Offer(v)
		}(i)
	}
	wg.Wait()
	require.Equal(t, n, q.Len())

	var polled sync.Map
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if v, ok := q.PollRandom(); ok {
				polled.Store(v, true)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, q.Len())
	count := 0
	polled.Range(func(any, any) bool {
		count++
		return true
	})
	assert.Equal(t, n, count, "every offered element should be polled exactly once")
}
