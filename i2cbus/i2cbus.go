// Package i2cbus exposes a bit-banged master as a periph.io i2c.Bus, so the
// device drivers written against periph (and anything else taking a Tx
// function) can talk over two plain port lines.
package i2cbus

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"

	"github.com/oxplot/go-bbi2c"
	"github.com/oxplot/go-bbi2c/linedrv"
	"github.com/oxplot/go-bbi2c/master"
)

// ErrAddress is returned by Tx for addresses that don't fit in 7 bits.
var ErrAddress = errors.New("i2cbus: only 7 bit addresses are supported")

// Bus is a bit-banged I2C bus. Unlike a bare master.Session it is safe for
// concurrent use: every Tx is a complete transaction, ending with a stop
// condition, and transactions are serialised.
type Bus struct {
	name string

	mu sync.Mutex
	s  *master.Session
}

// New creates a bus on the given port and lines. The last byte of every read
// is not acknowledged, as required for the stop condition that ends each
// transaction to reach the target.
func New(name string, port bbi2c.Port, pins linedrv.Pins, cfg master.Config) (*Bus, error) {
	cfg.NackLastByte = true
	s, err := master.New(port, pins, cfg)
	if err != nil {
		return nil, err
	}
	return &Bus{name: name, s: s}, nil
}

func (b *Bus) String() string {
	return b.name
}

// Tx implements i2c.Bus. The write, if any, is done first and the read
// follows after a repeated start. Reads are limited to the receive buffer
// capacity of the session.
//
// An address or data byte that is not acknowledged fails the transaction with
// an error wrapping bbi2c.ErrNACK. A read cut short by clock stretching fails
// with bbi2c.ErrStretchTimeout.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	if addr > 0x7f {
		return fmt.Errorf("%w: %#x", ErrAddress, addr)
	}
	a := uint8(addr)

	b.mu.Lock()
	defer b.mu.Unlock()

	if capacity := b.s.Config().Capacity; len(r) > capacity {
		return fmt.Errorf("%w: read of %d bytes, capacity %d", bbi2c.ErrBufferFull, len(r), capacity)
	}
	b.s.Events() // clear

	if err := b.tx(a, w, r); err != nil {
		b.reset()
		return err
	}
	return b.s.EndTransmission()
}

func (b *Bus) tx(addr uint8, w, r []byte) error {
	if len(w) > 0 || len(r) == 0 {
		if err := b.s.BeginTransmission(addr); err != nil {
			return err
		}
		if b.s.Events().Has(bbi2c.EventAddressNACK) {
			return fmt.Errorf("%w: no device at %#02x", bbi2c.ErrNACK, addr)
		}
		if _, err := b.s.Write(w); err != nil {
			return err
		}
	}
	if len(r) == 0 {
		return nil
	}

	n, err := b.s.RequestFrom(addr, len(r))
	if err != nil {
		return err
	}
	if b.s.Events().Has(bbi2c.EventAddressNACK) {
		return fmt.Errorf("%w: no device at %#02x", bbi2c.ErrNACK, addr)
	}
	if n < len(r) {
		return fmt.Errorf("%w: read %d of %d bytes", bbi2c.ErrStretchTimeout, n, len(r))
	}
	if _, err := io.ReadFull(b.s, r); err != nil {
		return err
	}
	return nil
}

// reset ends a failed transaction and drops whatever it left buffered.
func (b *Bus) reset() {
	_ = b.s.EndTransmission()
	_, _ = io.Copy(io.Discard, b.s)
}

// SetSpeed implements i2c.Bus. It sets the delay after each clock edge to
// half the period of f. The actual bit rate is lower as it also includes the
// time spent in the port.
func (b *Bus) SetSpeed(f physic.Frequency) error {
	if f <= 0 {
		return fmt.Errorf("i2cbus: invalid speed %s", f)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.s.SetClockHalfPeriod(f.Period() / 2)
	return nil
}

// Stats returns the counters of the underlying session.
func (b *Bus) Stats() master.Stats {
	return b.s.Stats()
}

// Halt implements conn.Resource. It sends a stop condition, which releases
// both lines.
func (b *Bus) Halt() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.s.EndTransmission()
}

// Close releases both lines. The bus must not be used afterwards.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.s.Close()
}

var _ i2c.BusCloser = (*Bus)(nil)
