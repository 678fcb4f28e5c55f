// SPDX-License-Identifier: EPL-2.0

package audio

import "sync"

// RingBuffer is a mutex-guarded growable queue of samples sitting between
// one capture callback and the Mixer. Insertion order is temporal order.
//
// By default it grows without bound. A bounded buffer drops the oldest
// samples, always a whole number of pairs, once capacity is exceeded.
type RingBuffer struct {
	mu      sync.Mutex
	buf     []float32
	head    int
	limit   int // 0 means unbounded
	dropped uint64
}

// NewRingBuffer returns an unbounded buffer.
func NewRingBuffer() *RingBuffer {
	return &RingBuffer{}
}

// NewBoundedRingBuffer returns a buffer holding at most capacity samples.
// capacity is rounded up to an even number; values <= 0 mean unbounded.
func NewBoundedRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		return NewRingBuffer()
	}
	return &RingBuffer{limit: capacity + capacity%2}
}

// Push appends samples to the tail.
func (b *RingBuffer) Push(samples ...float32) {
	if len(samples) == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.pushLocked(samples)
}

// PopPair removes and returns the two oldest samples. ok is false, and
// nothing is removed, when fewer than two are buffered.
func (b *RingBuffer) PopPair() (left, right float32, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.popPairLocked()
}

// Len returns the number of buffered samples.
func (b *RingBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.lenLocked()
}

// Clear discards everything buffered.
func (b *RingBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buf = b.buf[:0]
	b.head = 0
}

// Dropped returns how many samples overflow has discarded.
func (b *RingBuffer) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.dropped
}

func (b *RingBuffer) lenLocked() int { return len(b.buf) - b.head }

func (b *RingBuffer) pushLocked(samples []float32) {
	b.compactLocked()
	b.buf = append(b.buf, samples...)

	if b.limit == 0 {
		return
	}
	if over := b.lenLocked() - b.limit; over > 0 {
		over += over % 2
		b.head += over
		b.dropped += uint64(over)
	}
}

func (b *RingBuffer) popPairLocked() (float32, float32, bool) {
	if b.lenLocked() < 2 {
		return 0, 0, false
	}

	left, right := b.buf[b.head], b.buf[b.head+1]
	b.head += 2
	if b.head == len(b.buf) {
		b.buf = b.buf[:0]
		b.head = 0
	}
	return left, right, true
}

// compactLocked reclaims the consumed prefix once it dominates the slice.
func (b *RingBuffer) compactLocked() {
	if b.head == 0 || b.head < len(b.buf)/2 {
		return
	}
	n := copy(b.buf, b.buf[b.head:])
	b.buf = b.buf[:n]
	b.head = 0
}
