package logs

import (
	"sync"
	"time"
)

// DefaultCapacity is the default ring buffer capacity.
const DefaultCapacity = 2000

// RingBuffer is a thread-safe bounded FIFO of log records. When full,
// the oldest record is evicted. Reads are copy-out snapshots, safe for a
// UI thread to consume without further synchronization.
type RingBuffer struct {
	records  []Record
	capacity int
	head     int // next write position
	size     int
	mu       sync.RWMutex
}

// NewRingBuffer creates a ring buffer with the given capacity.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &RingBuffer{
		records:  make([]Record, capacity),
		capacity: capacity,
	}
}

// Append adds a record, evicting the oldest if at capacity.
func (r *RingBuffer) Append(rec Record) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[r.head] = rec
	r.head = (r.head + 1) % r.capacity
	if r.size < r.capacity {
		r.size++
	}
}

// Snapshot returns all records in sequence order.
func (r *RingBuffer) Snapshot() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastLocked(r.size)
}

// Last returns the newest n records in sequence order.
func (r *RingBuffer) Last(n int) []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n > r.size {
		n = r.size
	}
	return r.lastLocked(n)
}

// lastLocked copies out the newest n records. Caller must hold the lock.
func (r *RingBuffer) lastLocked(n int) []Record {
	if n <= 0 || r.size == 0 {
		return nil
	}

	out := make([]Record, n)
	start := (r.head - n + r.capacity) % r.capacity
	for i := 0; i < n; i++ {
		out[i] = r.records[(start+i)%r.capacity]
	}
	return out
}

// Since returns records with timestamps at or after t.
func (r *RingBuffer) Since(t time.Time) []Record {
	return r.Filter(func(rec Record) bool {
		return !rec.Timestamp.Before(t)
	})
}

// ForLevel returns records with the given level.
func (r *RingBuffer) ForLevel(level Level) []Record {
	return r.Filter(func(rec Record) bool {
		return rec.Level == level
	})
}

// Filter returns records matching the predicate, in sequence order.
func (r *RingBuffer) Filter(predicate func(Record) bool) []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Record
	for _, rec := range r.lastLocked(r.size) {
		if predicate(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// Len returns the current number of records.
func (r *RingBuffer) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

// Capacity returns the fixed capacity.
func (r *RingBuffer) Capacity() int {
	return r.capacity
}

// Clear removes all records.
func (r *RingBuffer) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.head = 0
	r.size = 0
}
