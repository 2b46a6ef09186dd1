package status

import "log"

// ringBuffer is a fixed-capacity FIFO that stores report lines while the
// sink is failing.
// Not safe for concurrent use; the caller must synchronize.
type ringBuffer struct {
	buf      []string
	capacity int
	head     int // next write position
	count    int
	overflow bool // true if any line was dropped since last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &ringBuffer{
		buf:      make([]string, capacity),
		capacity: capacity,
	}
}

func (r *ringBuffer) push(line string) {
	if r.count == r.capacity {
		if !r.overflow {
			log.Printf("report: backlog full (%d lines), dropping oldest", r.capacity)
			r.overflow = true
		}
		// Overwrite oldest: head is already pointing at it
		r.buf[r.head] = line
		r.head = (r.head + 1) % r.capacity
		// count stays at capacity
		return
	}
	r.buf[r.head] = line
	r.head = (r.head + 1) % r.capacity
	r.count++
}

func (r *ringBuffer) drainAll() []string {
	if r.count == 0 {
		return nil
	}

	result := make([]string, r.count)
	// Oldest item is at (head - count) mod capacity
	start := (r.head - r.count + r.capacity) % r.capacity
	for i := 0; i < r.count; i++ {
		result[i] = r.buf[(start+i)%r.capacity]
	}

	r.count = 0
	r.head = 0
	r.overflow = false
	return result
}

func (r *ringBuffer) len() int {
	return r.count
}
