// Package master implements a bit-banged I2C master. A Session turns the
// line-level writes and reads of a linedrv.Driver into start and stop
// conditions, addressed transactions and acknowledged byte transfers.
//
// Everything is synchronous: each call blocks the calling goroutine while it
// toggles the lines and the only wait is the clock stretch poll of a read.
// A Session must be used by one goroutine at a time.
package master

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/oxplot/go-bbi2c"
	"github.com/oxplot/go-bbi2c/linedrv"
	"github.com/oxplot/go-bbi2c/rxbuf"
)

// Clock is the monotonic time source used for the settle delay and the
// clock stretch timeout.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// Config holds the timing and behavior settings of a Session. Zero fields
// take the value from DefaultConfig.
type Config struct {

	// Time to wait after SCL is confirmed high before sampling SDA during a
	// read.
	SettleDelay time.Duration

	// Maximum time a target may hold SCL low during a read before the read is
	// abandoned.
	StretchTimeout time.Duration

	// Extra delay after every SCL transition. Zero toggles the lines as fast
	// as the port allows.
	HalfPeriod time.Duration

	// Capacity of the receive buffer in bytes.
	Capacity int

	// By default every byte read by RequestFrom is acknowledged, including the
	// last one. Targets that keep driving SDA after an acknowledged byte can
	// block the following stop condition; set NackLastByte to not acknowledge
	// the last byte of a request instead.
	NackLastByte bool

	// By default a clock stretch timeout is only visible as a short count
	// returned by RequestFrom. If ReportTimeout is set, bbi2c.ErrStretchTimeout
	// is returned along with the count.
	ReportTimeout bool

	Clock  Clock
	Logger *slog.Logger
}

// DefaultConfig holds the default timing: 2ms settle time before sampling
// and 1s clock stretch timeout.
var DefaultConfig = Config{
	SettleDelay:    2 * time.Millisecond,
	StretchTimeout: 1000 * time.Millisecond,
	Capacity:       rxbuf.DefaultCapacity,
}

func (c Config) withDefaults() Config {
	if c.SettleDelay <= 0 {
		c.SettleDelay = DefaultConfig.SettleDelay
	}
	if c.StretchTimeout <= 0 {
		c.StretchTimeout = DefaultConfig.StretchTimeout
	}
	if c.Capacity <= 0 {
		c.Capacity = DefaultConfig.Capacity
	}
	if c.Clock == nil {
		c.Clock = systemClock{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default().With("component", "bbi2c")
	}
	return c
}

// Stats holds counters of bus activity since the session was created.
type Stats struct {
	Transactions    uint64 // start conditions sent
	BytesWritten    uint64 // bytes shifted out, address bytes included
	NACKs           uint64 // bytes shifted out and not acknowledged
	BytesRead       uint64 // bytes shifted in and buffered
	StretchTimeouts uint64
	Overflows       uint64 // read requests rejected for lack of buffer space
	Underflows      uint64 // buffered reads with nothing buffered
	Buffered        int    // bytes currently buffered
}

type counters struct {
	transactions    atomic.Uint64
	bytesWritten    atomic.Uint64
	nacks           atomic.Uint64
	bytesRead       atomic.Uint64
	stretchTimeouts atomic.Uint64
	overflows       atomic.Uint64
	underflows      atomic.Uint64
	buffered        atomic.Int64
}

// Session is a bit-banged I2C master on one bus. It owns the line state and
// the receive buffer of that bus.
type Session struct {
	lines  *linedrv.Driver
	rx     *rxbuf.Buffer
	cfg    Config
	log    *slog.Logger
	events bbi2c.Event
	stats  counters

	// open is set by Begin and cleared by EndTransmission. It is only used for
	// diagnostics.
	open bool
}

// New creates a session on the given port and releases both lines.
func New(port bbi2c.Port, pins linedrv.Pins, cfg Config) (*Session, error) {
	lines, err := linedrv.New(port, pins)
	if err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	s := &Session{
		lines: lines,
		rx:    rxbuf.New(cfg.Capacity),
		cfg:   cfg,
		log:   cfg.Logger,
	}
	if err := s.lines.Release(); err != nil {
		return nil, s.portFault("release lines", err)
	}
	return s, nil
}

// Config returns the effective configuration of the session.
func (s *Session) Config() Config {
	return s.cfg
}

// SetClockHalfPeriod sets the delay inserted after each SCL transition, which
// fixes the bit rate of the bus to at most 1/(2*d).
func (s *Session) SetClockHalfPeriod(d time.Duration) {
	if d < 0 {
		d = 0
	}
	s.cfg.HalfPeriod = d
}

// Close releases both lines. The session must not be used afterwards.
func (s *Session) Close() error {
	s.open = false
	if err := s.lines.Release(); err != nil {
		return s.portFault("release lines", err)
	}
	return nil
}

// Stats returns a snapshot of the session counters. It is safe to call
// concurrently with other methods.
func (s *Session) Stats() Stats {
	return Stats{
		Transactions:    s.stats.transactions.Load(),
		BytesWritten:    s.stats.bytesWritten.Load(),
		NACKs:           s.stats.nacks.Load(),
		BytesRead:       s.stats.bytesRead.Load(),
		StretchTimeouts: s.stats.stretchTimeouts.Load(),
		Overflows:       s.stats.overflows.Load(),
		Underflows:      s.stats.underflows.Load(),
		Buffered:        int(s.stats.buffered.Load()),
	}
}

// Events returns the set of events that occurred since the last call and
// clears it.
func (s *Session) Events() bbi2c.Event {
	e := s.events
	s.events = bbi2c.EventNone
	return e
}

// BeginTransmission starts a write transaction with the target at the 7-bit
// address addr. It must be paired with a call to EndTransmission.
func (s *Session) BeginTransmission(addr uint8) error {
	_, err := s.begin(addr, false)
	return err
}

// Begin sends a start condition followed by the 7-bit address addr and the
// direction bit. Calling Begin while a transaction is open sends a repeated
// start.
func (s *Session) Begin(addr uint8, read bool) error {
	_, err := s.begin(addr, read)
	return err
}

// Probe reports whether a target acknowledges the 7-bit address addr. It
// sends a complete, empty write transaction.
func (s *Session) Probe(addr uint8) (bool, error) {
	ack, err := s.begin(addr, false)
	if err != nil {
		return false, err
	}
	return ack, s.EndTransmission()
}

func (s *Session) begin(addr uint8, read bool) (bool, error) {
	if s.open {
		s.log.Debug("start while transaction open", "addr", addrAttr(addr))
	}

	// SDA falls while SCL is high
	if err := s.sda(true); err != nil {
		return false, err
	}
	if err := s.scl(true); err != nil {
		return false, err
	}
	if err := s.sda(false); err != nil {
		return false, err
	}
	if err := s.scl(false); err != nil {
		return false, err
	}
	s.open = true
	s.stats.transactions.Add(1)

	b := (addr&0x7f)<<1 | boolBit(read)
	ack, err := s.send(b)
	if err != nil {
		return false, err
	}
	if !ack {
		s.events.Add(bbi2c.EventAddressNACK)
		s.log.Debug("address not acknowledged", "addr", addrAttr(addr), "read", read)
	}
	return ack, nil
}

// EndTransmission sends a stop condition, leaving both lines released. It is
// harmless to call it when no transaction is open.
func (s *Session) EndTransmission() error {
	s.open = false

	// SDA rises while SCL is high
	if err := s.sda(false); err != nil {
		return err
	}
	if err := s.scl(true); err != nil {
		return err
	}
	return s.sda(true)
}

// Send shifts out b, most significant bit first, and returns true if the
// target acknowledged it.
func (s *Session) Send(b byte) (bool, error) {
	ack, err := s.send(b)
	if err == nil && !ack {
		s.events.Add(bbi2c.EventNACK)
		s.log.Debug("byte not acknowledged", "value", b)
	}
	return ack, err
}

func (s *Session) send(b byte) (bool, error) {
	for mask := byte(1 << 7); mask != 0; mask >>= 1 {
		if err := s.sda(b&mask != 0); err != nil {
			return false, err
		}
		if err := s.scl(true); err != nil {
			return false, err
		}
		if err := s.scl(false); err != nil {
			return false, err
		}
	}
	s.stats.bytesWritten.Add(1)

	// The target pulls SDA low during the ninth clock to acknowledge.
	if err := s.sda(true); err != nil {
		return false, err
	}
	if err := s.scl(true); err != nil {
		return false, err
	}
	high, err := s.lines.Read(bbi2c.Data)
	if err != nil {
		return false, s.portFault("read SDA", err)
	}
	if err := s.scl(false); err != nil {
		return false, err
	}
	if err := s.sda(false); err != nil {
		return false, err
	}
	if high {
		s.stats.nacks.Add(1)
	}
	return !high, nil
}

// SendBytes sends every byte of p in order and returns how many of them were
// acknowledged. A byte that is not acknowledged does not stop the transfer.
func (s *Session) SendBytes(p []byte) (int, error) {
	acked := 0
	for _, b := range p {
		ack, err := s.Send(b)
		if err != nil {
			return acked, err
		}
		if ack {
			acked++
		}
	}
	return acked, nil
}

// SendString is like SendBytes but sends the bytes of str.
func (s *Session) SendString(str string) (int, error) {
	acked := 0
	for i := 0; i < len(str); i++ {
		ack, err := s.Send(str[i])
		if err != nil {
			return acked, err
		}
		if ack {
			acked++
		}
	}
	return acked, nil
}

// Write implements io.Writer on top of SendBytes. The returned count is the
// number of acknowledged bytes and bbi2c.ErrNACK is returned if it is less
// than len(p). Like SendBytes, Write does not stop at the first unacknowledged
// byte.
func (s *Session) Write(p []byte) (int, error) {
	n, err := s.SendBytes(p)
	if err == nil && n < len(p) {
		err = fmt.Errorf("%w: %d of %d bytes", bbi2c.ErrNACK, len(p)-n, len(p))
	}
	return n, err
}

func (s *Session) sda(released bool) error {
	if err := s.lines.Write(bbi2c.Data, released); err != nil {
		return s.portFault("write SDA", err)
	}
	return nil
}

func (s *Session) scl(released bool) error {
	if err := s.lines.Write(bbi2c.Clock, released); err != nil {
		return s.portFault("write SCL", err)
	}
	if s.cfg.HalfPeriod > 0 {
		s.cfg.Clock.Sleep(s.cfg.HalfPeriod)
	}
	return nil
}

func (s *Session) portFault(op string, err error) error {
	s.events.Add(bbi2c.EventPortFault)
	s.log.Error("port failure", "op", op, "error", err)
	return fmt.Errorf("%s: %w", op, err)
}

func boolBit(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func addrAttr(addr uint8) string {
	return fmt.Sprintf("%#02x", addr)
}
