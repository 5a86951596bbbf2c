// Package bbi2c defines the types shared by the layers of a software
// emulated ("bit-banged") I2C master: the port the lines are wired to, the
// lines themselves and the conditions the protocol engine reports.
package bbi2c

import (
	"errors"
)

// Line identifies one of the two logical I2C lines.
type Line uint8

// The two lines of an I2C bus.
const (
	Clock Line = iota // SCL
	Data              // SDA
)

func (l Line) String() string {
	switch l {
	case Clock:
		return "SCL"
	case Data:
		return "SDA"
	default:
		return "INVALID"
	}
}

// MaxLines is the number of lines a Port addresses. Lines are numbered 0 to
// MaxLines-1 and line n maps to bit n of every mask.
const MaxLines = 8

// Port provides an interface to the hardware the two I2C lines are wired to.
// The port is expected to address all of its lines through one combined
// call, which is why the line driver resends the state of both lines on
// every change.
//
// All lines are open-drain: a line is either pulled low or released, in
// which case an external pull-up brings it high unless another participant
// on the bus holds it low.
//
// Ports must return quickly relative to the bit timing of the protocol
// engine. They are not required to be safe for concurrent use.
type Port interface {

	// SetupIO sets the drive state of every line of the port at once. A set
	// bit in mask pulls the corresponding line low, a clear bit releases it.
	SetupIO(mask uint8) error

	// ReadIO returns the instantaneous levels of the lines selected by mask.
	// A set bit in the result means the line is high.
	ReadIO(mask uint8) (uint8, error)
}

// Event can store multiple events and return them in priority order.
type Event uint16

// Pop returns the next high priority event and clears it.
func (e *Event) Pop() Event {
	if *e == 0 {
		return EventNone
	}
	for r := Event(1); r <= 0x8000; r <<= 1 {
		if *e&r != 0 {
			*e &= ^r
			return r
		}
	}
	return EventNone // will never get here
}

// Add adds the events v to the set.
func (e *Event) Add(v Event) {
	*e |= v
}

// Has returns true if the event v is set without clearing it.
func (e Event) Has(v Event) bool {
	return e&v != 0
}

func (e Event) String() string {
	switch e {
	case EventNone:
		return "None"
	case EventPortFault:
		return "PortFault"
	case EventStretchTimeout:
		return "StretchTimeout"
	case EventBufferFull:
		return "BufferFull"
	case EventBufferEmpty:
		return "BufferEmpty"
	case EventAddressNACK:
		return "AddressNACK"
	case EventNACK:
		return "NACK"
	default:
		return "INVALID"
	}
}

// EventNone represents no event.
const EventNone Event = 0

// The events are listed in order of priority from highest to lowest. This
// means that in presence of multiple pending events, highest priority one is
// returned first by Pop.
const (
	EventPortFault      Event = 1 << iota // Port returned an error
	EventStretchTimeout                   // Target held SCL low for too long during a read
	EventBufferFull                       // Read request rejected, not enough buffer space
	EventBufferEmpty                      // Buffered read with nothing buffered
	EventAddressNACK                      // No target acknowledged an address byte
	EventNACK                             // A data byte was not acknowledged
)

var (
	// ErrInvalidLine is returned when a line index is out of range or both
	// lines are assigned the same index.
	ErrInvalidLine = errors.New("invalid line assignment")

	// ErrNACK is returned by operations that require every byte to be
	// acknowledged when a target did not acknowledge.
	ErrNACK = errors.New("nack received")

	// ErrStretchTimeout is returned when a target holds the clock line low for
	// longer than the configured timeout.
	ErrStretchTimeout = errors.New("clock stretch timeout")

	// ErrBufferFull is returned when a read would overflow the receive buffer.
	ErrBufferFull = errors.New("receive buffer full")

	// ErrBufferEmpty is returned when reading from an empty receive buffer.
	ErrBufferEmpty = errors.New("receive buffer empty")
)
