// Package rxbuf implements the bounded first-in first-out queue that holds
// bytes received from the bus until they are consumed.
package rxbuf

import (
	"github.com/oxplot/go-bbi2c"
)

// DefaultCapacity is the capacity of a Buffer created with a non-positive
// capacity.
const DefaultCapacity = 32

// Buffer is a fixed capacity FIFO of bytes. Memory is allocated once by New
// and never grows. Pushing onto a full buffer is rejected rather than
// overwriting older bytes.
type Buffer struct {
	data []byte
	head int // index of the oldest byte
	n    int
}

// New creates a buffer which can hold up to capacity bytes.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{data: make([]byte, capacity)}
}

// Len returns the number of bytes buffered.
func (b *Buffer) Len() int {
	return b.n
}

// Cap returns the capacity of the buffer.
func (b *Buffer) Cap() int {
	return len(b.data)
}

// Free returns how many more bytes can be pushed.
func (b *Buffer) Free() int {
	return len(b.data) - b.n
}

// Push appends v as the newest byte. bbi2c.ErrBufferFull is returned if the
// buffer is at capacity.
func (b *Buffer) Push(v byte) error {
	if b.n == len(b.data) {
		return bbi2c.ErrBufferFull
	}
	b.data[(b.head+b.n)%len(b.data)] = v
	b.n++
	return nil
}

// Pop removes and returns the oldest byte. bbi2c.ErrBufferEmpty is returned
// if nothing is buffered.
func (b *Buffer) Pop() (byte, error) {
	if b.n == 0 {
		return 0, bbi2c.ErrBufferEmpty
	}
	v := b.data[b.head]
	b.head = (b.head + 1) % len(b.data)
	b.n--
	return v, nil
}

// Reset discards all buffered bytes.
func (b *Buffer) Reset() {
	b.head = 0
	b.n = 0
}
