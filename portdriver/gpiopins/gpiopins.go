// Package gpiopins implements a port over individual GPIO pins of the host or
// of a GPIO expander, through the periph.io gpio interfaces.
//
// An open-drain line is emulated by switching the pin between two modes:
// output low when the line is pulled and input with pull-up when it is
// released. The pin is never driven high, so a target can always pull the
// line low. An external pull-up resistor is still recommended since internal
// pull-ups are weak.
package gpiopins

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"

	"github.com/oxplot/go-bbi2c"
)

// Port is a set of up to bbi2c.MaxLines pins. Line n of the port is the n-th
// pin given to New.
type Port struct {
	pins   []gpio.PinIO
	pulled uint8 // lines currently in output low mode
	known  uint8 // lines whose mode was set at least once
}

// New creates a port over the given pins. Nil pins are allowed for unused
// lines but may not be selected in any mask.
func New(pins ...gpio.PinIO) (*Port, error) {
	if len(pins) == 0 || len(pins) > bbi2c.MaxLines {
		return nil, fmt.Errorf("%w: %d pins, want 1 to %d", bbi2c.ErrInvalidLine, len(pins), bbi2c.MaxLines)
	}
	return &Port{pins: pins}, nil
}

func (p *Port) check(mask uint8) error {
	for i := 0; i < bbi2c.MaxLines; i++ {
		if mask&(1<<i) == 0 {
			continue
		}
		if i >= len(p.pins) || p.pins[i] == nil {
			return fmt.Errorf("%w: line %d has no pin", bbi2c.ErrInvalidLine, i)
		}
	}
	return nil
}

// SetupIO implements bbi2c.Port. Only the pins whose state changed since the
// last call are reconfigured; pins without a known state are configured on
// first use.
func (p *Port) SetupIO(mask uint8) error {
	if err := p.check(mask); err != nil {
		return err
	}
	for i, pin := range p.pins {
		if pin == nil {
			continue
		}
		bit := uint8(1) << i
		pull := mask&bit != 0
		if p.known&bit != 0 && (p.pulled&bit != 0) == pull {
			continue
		}
		var err error
		if pull {
			err = pin.Out(gpio.Low)
		} else {
			err = pin.In(gpio.PullUp, gpio.NoEdge)
		}
		if err != nil {
			p.known &^= bit
			return fmt.Errorf("%s: %w", pin, err)
		}
		p.known |= bit
		if pull {
			p.pulled |= bit
		} else {
			p.pulled &^= bit
		}
	}
	return nil
}

// ReadIO implements bbi2c.Port.
func (p *Port) ReadIO(mask uint8) (uint8, error) {
	if err := p.check(mask); err != nil {
		return 0, err
	}
	var v uint8
	for i, pin := range p.pins {
		bit := uint8(1) << i
		if mask&bit == 0 {
			continue
		}
		if pin.Read() == gpio.High {
			v |= bit
		}
	}
	return v, nil
}

// Halt releases every pin.
func (p *Port) Halt() error {
	p.known = 0 // reconfigure every pin
	return p.SetupIO(0)
}

var _ bbi2c.Port = (*Port)(nil)
