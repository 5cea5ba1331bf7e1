// Package dedupe tracks processed event ids for at-most-once crediting.
package dedupe

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
)

// Tracker records event ids that the validation service has already
// processed. A duplicate id must never credit the wallet twice, whether the
// copies arrive in the same batch or across batches.
type Tracker interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id int64) bool

	// Snapshot returns all recorded ids in ascending order, for persistence.
	Snapshot(ctx context.Context) []int64

	// Restore replaces the recorded set with ids, typically loaded from the
	// persistence store at startup.
	Restore(ctx context.Context, ids []int64)

	// Reset clears the recorded set. Called on hard reset.
	Reset(ctx context.Context)

	Size() int64
}

// node is a single entry in the eviction list used by bounded mode.
type node struct {
	id   int64
	next *node
}

func (n *node) reset() {
	n.id = 0
	n.next = nil
}

// inMemoryTracker implements Tracker.
// Bounded mode (maxSize > 0) keeps a linked list with LIFO eviction and a
// sync.Pool for nodes; unbounded mode (maxSize <= 0) is a plain map.
type inMemoryTracker struct {
	mu       sync.Mutex
	seen     map[int64]*node // id -> node in bounded mode, nil values in unbounded
	head     *node
	maxSize  int
	size     atomic.Int64
	nodePool sync.Pool
}

// NewInMemoryTracker creates a tracker with configuration options.
func NewInMemoryTracker(opts ...Option) Tracker {
	t := &inMemoryTracker{
		maxSize: 0, // unbounded by default; the authority persists the full set
	}

	for _, opt := range opts {
		opt(t)
	}

	t.seen = make(map[int64]*node)

	if t.maxSize > 0 {
		t.nodePool = sync.Pool{
			New: func() interface{} {
				return &node{}
			},
		}
	}

	return t
}

// SeenAndRecord atomically checks if id was seen and records it if not.
func (t *inMemoryTracker) SeenAndRecord(ctx context.Context, id int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.seen[id]; exists {
		return true
	}
	t.record(id)
	return false
}

// record adds id to the set. Must be called with t.mu held.
func (t *inMemoryTracker) record(id int64) {
	if t.maxSize > 0 {
		if len(t.seen) >= t.maxSize {
			t.evictOldest()
		}
		n := t.nodePool.Get().(*node)
		n.id = id
		n.next = t.head
		t.head = n
		t.seen[id] = n
	} else {
		t.seen[id] = nil
	}
	t.size.Add(1)
}

// Snapshot returns all recorded ids in ascending order.
func (t *inMemoryTracker) Snapshot(ctx context.Context) []int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	ids := make([]int64, 0, len(t.seen))
	for id := range t.seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Restore replaces the recorded set with ids.
func (t *inMemoryTracker) Restore(ctx context.Context, ids []int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.clear()
	for _, id := range ids {
		if _, exists := t.seen[id]; exists {
			continue
		}
		t.record(id)
	}
}

// Reset clears the recorded set.
func (t *inMemoryTracker) Reset(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clear()
}

// clear drops every entry. Must be called with t.mu held.
func (t *inMemoryTracker) clear() {
	if t.maxSize > 0 {
		for t.head != nil {
			n := t.head
			t.head = n.next
			n.reset()
			t.nodePool.Put(n)
		}
	}
	t.seen = make(map[int64]*node)
	t.size.Store(0)
}

// evictOldest removes the tail of the eviction list from the map.
// Must be called with t.mu held.
func (t *inMemoryTracker) evictOldest() {
	if len(t.seen) == 0 || t.head == nil {
		return
	}

	current := t.head
	if current.next == nil {
		delete(t.seen, current.id)
		current.reset()
		t.nodePool.Put(current)
		t.head = nil
		t.size.Add(-1)
		return
	}

	var prev *node
	for current.next != nil {
		prev = current
		current = current.next
	}

	prev.next = nil
	delete(t.seen, current.id)
	current.reset()
	t.nodePool.Put(current)
	t.size.Add(-1)
}

// Size returns the current number of recorded ids.
func (t *inMemoryTracker) Size() int64 {
	return t.size.Load()
}
