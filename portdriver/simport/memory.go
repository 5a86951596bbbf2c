package simport

import "sync"

// Memory is a target modelled after small I2C EEPROMs and register files: it
// holds 256 bytes addressed by an 8-bit register pointer. The first byte of a
// write transaction sets the pointer and the following bytes are stored from
// there. Reads return bytes from the pointer on. The pointer wraps around and
// survives a repeated start.
type Memory struct {
	mu sync.Mutex

	Data [256]byte

	// NackWhen, if set, is called with every byte written and the byte is not
	// acknowledged (nor stored) if it returns true.
	NackWhen func(b byte) bool

	ptr     uint8
	havePtr bool
	starts  int
	stops   int
	written []byte
}

// Start implements Target.
func (m *Memory) Start(read bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.starts++
	if !read {
		m.havePtr = false
	}
}

// Receive implements Target.
func (m *Memory) Receive(b byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.written = append(m.written, b)
	if m.NackWhen != nil && m.NackWhen(b) {
		return false
	}
	if !m.havePtr {
		m.ptr, m.havePtr = b, true
		return true
	}
	m.Data[m.ptr] = b
	m.ptr++
	return true
}

// Transmit implements Target.
func (m *Memory) Transmit() byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.Data[m.ptr]
	m.ptr++
	return b
}

// Stop implements Target.
func (m *Memory) Stop() {
	m.mu.Lock()
	m.stops++
	m.mu.Unlock()
}

// Written returns every byte the master wrote to the target, including the
// ones that were not acknowledged.
func (m *Memory) Written() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.written...)
}

// Transactions returns how many times the target was addressed and how many
// of those transactions were ended with a stop condition.
func (m *Memory) Transactions() (starts, stops int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts, m.stops
}
