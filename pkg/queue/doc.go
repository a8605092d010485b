/*
Package queue provides the randomized multiset used to track idle endpoints.

The queue package implements an unordered concurrent bag. The balancer keeps
endpoints that are idle (known but not acquired) in a Randomized queue so that
the active-count governor can promote an arbitrary endpoint rather than always
the oldest one, avoiding thundering-herd reconnects against a single backend.

# Core Components

  - Randomized[T]: mutex-guarded slice with swap-delete removal
  - PollRandom: removes and returns a uniformly random element
  - Remove: best-effort removal of a specific element

# Design Patterns

The only ordering contract is "no ordering": callers must not rely on FIFO or
LIFO behavior. Swap-delete keeps removal O(n) in the worst case (linear scan)
but O(1) for the random poll path, which is the hot path during promotion.

# See Also

  - Package balancer for the idle-endpoint tracking that uses this queue
*/
package queue
