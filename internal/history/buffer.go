// Package history holds the bounded, process-wide record history that is
// replayed to newly connected viewers.
package history

import (
	"sync"

	"github.com/dgnsrekt/wa_relay/internal/types"
)

// DefaultCapacity is the number of records kept when no capacity is configured.
const DefaultCapacity = 200

// Buffer is an append-only FIFO of records capped at a fixed size.
type Buffer struct {
	mu      sync.RWMutex
	records []types.Record
	cap     int
}

// NewBuffer creates a Buffer holding at most capacity records. A capacity
// below 1 falls back to DefaultCapacity.
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		records: make([]types.Record, 0, capacity),
		cap:     capacity,
	}
}

// Append adds rec at the tail and evicts from the head until the buffer is
// back at capacity. It returns the number of evicted records.
func (b *Buffer) Append(rec types.Record) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.records = append(b.records, rec)
	evicted := len(b.records) - b.cap
	if evicted <= 0 {
		return 0
	}
	// Compact in place so the backing array does not grow without bound.
	n := copy(b.records, b.records[evicted:])
	clear(b.records[n:])
	b.records = b.records[:n]
	return evicted
}

// Snapshot returns a copy of the buffered records in arrival order.
func (b *Buffer) Snapshot() []types.Record {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]types.Record, len(b.records))
	copy(out, b.records)
	return out
}

// Len returns the number of buffered records.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.records)
}

// Cap returns the configured capacity.
func (b *Buffer) Cap() int {
	return b.cap
}
