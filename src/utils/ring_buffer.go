package utils

import (
	"gateway-dashboard/src/models"
)

// -----------------------------------------------------------------------------
// RingBuffer is a fixed-size circular buffer of activity entries.
// Appending past capacity overwrites the oldest entry.
// Not safe for concurrent use; the owner locks.
// -----------------------------------------------------------------------------

type RingBuffer struct {
	data     []models.MActivityEntry
	capacity int
	index    int // Next write position
	size     int // Current number of elements
}

// -----------------------------------------------------------------------------

// NewRingBuffer creates a new buffer with fixed capacity
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 500
	}

	return &RingBuffer{
		data:     make([]models.MActivityEntry, capacity),
		capacity: capacity,
	}
}

// -----------------------------------------------------------------------------

// Append adds an entry as the newest element
func (rb *RingBuffer) Append(entry models.MActivityEntry) {
	rb.data[rb.index] = entry
	rb.index = (rb.index + 1) % rb.capacity

	// Update size (never exceeds capacity)
	if rb.size < rb.capacity {
		rb.size++
	}
}

// -----------------------------------------------------------------------------

// GetLatest returns up to n entries, newest first
func (rb *RingBuffer) GetLatest(n int) []models.MActivityEntry {
	if rb.size == 0 || n <= 0 {
		return []models.MActivityEntry{}
	}

	count := n
	if n > rb.size {
		count = rb.size
	}

	result := make([]models.MActivityEntry, count)

	// Latest entry sits just behind the write position
	for i := 0; i < count; i++ {
		idx := (rb.index - 1 - i + 2*rb.capacity) % rb.capacity
		result[i] = rb.data[idx]
	}

	return result
}

// -----------------------------------------------------------------------------

// GetAll returns every entry, newest first
func (rb *RingBuffer) GetAll() []models.MActivityEntry {
	return rb.GetLatest(rb.size)
}

// -----------------------------------------------------------------------------

// Size returns current number of elements
func (rb *RingBuffer) Size() int {
	return rb.size
}
