// Package simport implements a simulated port with I2C targets attached to
// its lines. It is mostly used for testing and for trying out the master
// without hardware.
//
// The bus is modelled as wired-AND: a line is high unless the master or a
// target pulls it low. Targets react to edges of the lines the same way a
// hardware I2C target would: they sample SDA on the rising edge of SCL and
// change SDA only while SCL is low.
package simport

import (
	"sync"

	"github.com/oxplot/go-bbi2c"
	"github.com/oxplot/go-bbi2c/linedrv"
)

// Target is an I2C target attached to the simulated bus.
type Target interface {

	// Start is called when the target is addressed, after a start condition
	// and a matching address byte. read is the direction bit.
	Start(read bool)

	// Receive is called with every byte written by the master. The target
	// acknowledges the byte by returning true.
	Receive(b byte) bool

	// Transmit returns the next byte to send to the master.
	Transmit() byte

	// Stop is called on a stop condition ending a transaction the target took
	// part in.
	Stop()
}

// Levels is a snapshot of the bus lines, true being high.
type Levels struct {
	SCL bool
	SDA bool
}

type state uint8

const (
	stateIdle    state = iota
	stateAddr          // receiving address bits
	stateAddrAck       // driving the address ACK
	stateRecv          // receiving data bits
	stateRecvAck       // driving a data ACK
	stateSend          // driving data bits
	stateAckIn         // master ACK clock after a sent byte
	stateIgnore        // not addressed, waiting for start or stop
)

// Port is a simulated port. It is safe for concurrent use.
type Port struct {
	mu sync.Mutex

	scl, sda uint8 // line masks
	master   uint8 // lines pulled low by the master

	targets map[uint8]Target

	// target side of the bus
	cur      Target
	st       state
	bit      int
	shift    byte
	read     bool
	pullSDA  bool
	masterAk bool

	holdSCL      int // remaining ReadIO polls SCL is held low, <0 forever
	stretchByte  int
	stretchPolls int
	sent         int // bytes sent in the current read transaction

	level Levels
	trace []Levels
	start int
	stop  int
}

// New creates a simulated bus with SCL and SDA on the port lines selected by
// pins. Lines other than those two read back high.
func New(pins linedrv.Pins) (*Port, error) {
	if err := pins.Validate(); err != nil {
		return nil, err
	}
	return &Port{
		scl:         1 << pins.SCL,
		sda:         1 << pins.SDA,
		targets:     map[uint8]Target{},
		level:       Levels{SCL: true, SDA: true},
		stretchByte: -1,
	}, nil
}

// Attach attaches t at the 7-bit address addr, replacing any target
// previously attached at that address.
func (p *Port) Attach(addr uint8, t Target) {
	p.mu.Lock()
	p.targets[addr&0x7f] = t
	p.mu.Unlock()
}

// StretchOnRead makes the addressed target hold SCL low before sending byte
// number n (counted from zero within a read transaction) until the master
// has polled SCL polls times. A negative polls holds SCL low forever.
func (p *Port) StretchOnRead(n, polls int) {
	p.mu.Lock()
	p.stretchByte = n
	p.stretchPolls = polls
	p.mu.Unlock()
}

// SetupIO implements bbi2c.Port.
func (p *Port) SetupIO(mask uint8) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.master = mask
	p.settle()
	return nil
}

// ReadIO implements bbi2c.Port. Every read of SCL while the master releases
// it counts as one poll towards the end of clock stretching.
func (p *Port) ReadIO(mask uint8) (uint8, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if mask&p.scl != 0 && p.master&p.scl == 0 && p.holdSCL > 0 {
		p.holdSCL--
		if p.holdSCL == 0 {
			p.settle()
		}
	}
	v := ^(p.scl | p.sda)
	if p.level.SCL {
		v |= p.scl
	}
	if p.level.SDA {
		v |= p.sda
	}
	return v & mask, nil
}

// Levels returns the current levels of the bus lines.
func (p *Port) Levels() Levels {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

// Trace returns every change of line levels since the last call to
// ResetTrace.
func (p *Port) Trace() []Levels {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Levels(nil), p.trace...)
}

// ResetTrace clears the recorded trace.
func (p *Port) ResetTrace() {
	p.mu.Lock()
	p.trace = p.trace[:0]
	p.mu.Unlock()
}

// Conditions returns the number of start (including repeated start) and stop
// conditions seen on the bus.
func (p *Port) Conditions() (starts, stops int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.start, p.stop
}

func (p *Port) compute() Levels {
	return Levels{
		SCL: p.master&p.scl == 0 && p.holdSCL == 0,
		SDA: p.master&p.sda == 0 && !p.pullSDA,
	}
}

// settle applies the edges caused by the last change of the master or the
// clock hold. Targets only move SDA while SCL is low, so a second pass never
// produces a start or stop.
func (p *Port) settle() {
	prev, now := p.level, p.compute()
	if prev == now {
		return
	}
	p.level = now
	p.trace = append(p.trace, now)

	switch {
	case prev.SCL && now.SCL && prev.SDA && !now.SDA:
		p.onStart()
	case prev.SCL && now.SCL && !prev.SDA && now.SDA:
		p.onStop()
	case !prev.SCL && now.SCL:
		p.onRise(now.SDA)
	case prev.SCL && !now.SCL:
		p.onFall()
	}

	if after := p.compute(); after != p.level {
		p.level = after
		p.trace = append(p.trace, after)
	}
}

func (p *Port) onStart() {
	p.start++
	p.cur = nil
	p.pullSDA = false
	p.st = stateAddr
	p.bit = 0
	p.shift = 0
}

func (p *Port) onStop() {
	p.stop++
	if p.cur != nil {
		p.cur.Stop()
		p.cur = nil
	}
	p.pullSDA = false
	p.holdSCL = 0
	p.st = stateIdle
}

func (p *Port) onRise(sda bool) {
	switch p.st {
	case stateAddr, stateRecv:
		p.shift <<= 1
		if sda {
			p.shift |= 1
		}
		p.bit++
	case stateAckIn:
		p.masterAk = !sda
	}
}

func (p *Port) onFall() {
	switch p.st {
	case stateAddr:
		if p.bit < 8 {
			return
		}
		addr, read := p.shift>>1, p.shift&1 != 0
		t, ok := p.targets[addr]
		if !ok {
			p.st = stateIgnore
			return
		}
		p.cur, p.read = t, read
		t.Start(read)
		p.pullSDA = true
		p.st = stateAddrAck

	case stateAddrAck:
		p.pullSDA = false
		if p.read {
			p.sent = 0
			p.load()
			return
		}
		p.st, p.bit, p.shift = stateRecv, 0, 0

	case stateRecv:
		if p.bit < 8 {
			return
		}
		p.pullSDA = p.cur.Receive(p.shift)
		p.st = stateRecvAck

	case stateRecvAck:
		p.pullSDA = false
		p.st, p.bit, p.shift = stateRecv, 0, 0

	case stateSend:
		p.bit++
		if p.bit == 8 {
			p.pullSDA = false
			p.st = stateAckIn
			return
		}
		p.pullSDA = p.shift&(0x80>>p.bit) == 0

	case stateAckIn:
		if p.masterAk {
			p.load()
			return
		}
		p.pullSDA = false
		p.st = stateIgnore
	}
}

// load fetches the next byte from the target and drives its first bit.
func (p *Port) load() {
	p.shift = p.cur.Transmit()
	p.bit = 0
	p.st = stateSend
	p.pullSDA = p.shift&0x80 == 0
	if p.sent == p.stretchByte && p.stretchPolls != 0 {
		p.holdSCL = p.stretchPolls
	}
	p.sent++
}

var _ bbi2c.Port = (*Port)(nil)
