package master

import (
	"errors"
	"fmt"
	"io"

	"github.com/oxplot/go-bbi2c"
)

var errStretch = errors.New("stretch")

// RequestFrom starts a read transaction with the target at the 7-bit address
// addr and reads quantity bytes into the receive buffer. It returns the
// number of bytes received.
//
// Each byte is acknowledged so the target keeps sending. RequestFrom does not
// send a stop condition; the transaction stays open until EndTransmission is
// called.
//
// If the target holds SCL low for longer than the stretch timeout, the read
// is abandoned and the count of complete bytes is returned. The bytes already
// received stay buffered and the error is nil unless ReportTimeout is set.
//
// A request larger than the free buffer space is rejected before anything is
// sent on the bus, with an error wrapping bbi2c.ErrBufferFull.
func (s *Session) RequestFrom(addr uint8, quantity int) (int, error) {
	if quantity < 0 {
		quantity = 0
	}
	if free := s.rx.Free(); quantity > free {
		s.stats.overflows.Add(1)
		s.events.Add(bbi2c.EventBufferFull)
		s.log.Debug("read request exceeds buffer", "addr", addrAttr(addr), "quantity", quantity, "free", free)
		return 0, fmt.Errorf("%w: requested %d bytes, %d free", bbi2c.ErrBufferFull, quantity, free)
	}

	if _, err := s.begin(addr, true); err != nil {
		return 0, err
	}

	for i := 0; i < quantity; i++ {
		nack := s.cfg.NackLastByte && i == quantity-1
		b, err := s.receive(nack)
		if err == errStretch {
			s.stats.stretchTimeouts.Add(1)
			s.events.Add(bbi2c.EventStretchTimeout)
			s.log.Debug("clock stretch timeout", "addr", addrAttr(addr), "received", i, "quantity", quantity)
			if s.cfg.ReportTimeout {
				return i, fmt.Errorf("%w: after %d of %d bytes", bbi2c.ErrStretchTimeout, i, quantity)
			}
			return i, nil
		}
		if err != nil {
			return i, err
		}
		s.rx.Push(b) // fits, checked above
		s.stats.bytesRead.Add(1)
		s.stats.buffered.Store(int64(s.rx.Len()))
	}
	return quantity, nil
}

// receive shifts in one byte, waiting out clock stretching on every bit, and
// then acknowledges it unless nack is set.
func (s *Session) receive(nack bool) (byte, error) {
	if err := s.sda(true); err != nil { // let the target drive SDA
		return 0, err
	}
	var b byte
	for i := 0; i < 8; i++ {
		b <<= 1
		if err := s.scl(true); err != nil {
			return 0, err
		}
		if err := s.waitClock(); err != nil {
			return 0, err
		}
		s.cfg.Clock.Sleep(s.cfg.SettleDelay)
		high, err := s.lines.Read(bbi2c.Data)
		if err != nil {
			return 0, s.portFault("read SDA", err)
		}
		if high {
			b |= 1
		}
		if err := s.scl(false); err != nil {
			return 0, err
		}
	}

	if err := s.sda(nack); err != nil {
		return 0, err
	}
	if err := s.scl(true); err != nil {
		return 0, err
	}
	if err := s.scl(false); err != nil {
		return 0, err
	}
	return b, nil
}

// waitClock polls SCL until the target releases it or the stretch timeout
// expires.
func (s *Session) waitClock() error {
	began := s.cfg.Clock.Now()
	for {
		high, err := s.lines.Read(bbi2c.Clock)
		if err != nil {
			return s.portFault("read SCL", err)
		}
		if high {
			return nil
		}
		if s.cfg.Clock.Now().Sub(began) > s.cfg.StretchTimeout {
			return errStretch
		}
	}
}

// Available returns the number of received bytes not yet read.
func (s *Session) Available() int {
	return s.rx.Len()
}

// ReadByte removes and returns the oldest received byte. It returns
// bbi2c.ErrBufferEmpty if nothing is buffered.
func (s *Session) ReadByte() (byte, error) {
	b, err := s.rx.Pop()
	if err != nil {
		s.stats.underflows.Add(1)
		s.events.Add(bbi2c.EventBufferEmpty)
		return 0, err
	}
	s.stats.buffered.Store(int64(s.rx.Len()))
	return b, nil
}

// Read implements io.Reader over the receive buffer. It never touches the
// bus and returns io.EOF when nothing is buffered.
func (s *Session) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if s.rx.Len() == 0 {
		return 0, io.EOF
	}
	n := 0
	for n < len(p) && s.rx.Len() > 0 {
		p[n], _ = s.rx.Pop()
		n++
	}
	s.stats.buffered.Store(int64(s.rx.Len()))
	return n, nil
}
