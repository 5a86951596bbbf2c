// Package linedrv maps the two logical open-drain I2C lines onto a port that
// can only configure all of its lines in one call.
package linedrv

import (
	"fmt"

	"github.com/oxplot/go-bbi2c"
)

// Pins selects which port lines act as SDA and SCL. Both must be in the
// range [0, bbi2c.MaxLines) and must differ.
type Pins struct {
	SDA int
	SCL int
}

// Validate returns an error if the pin assignment is unusable.
func (p Pins) Validate() error {
	if p.SDA < 0 || p.SDA >= bbi2c.MaxLines {
		return fmt.Errorf("%w: SDA %d not in [0, %d)", bbi2c.ErrInvalidLine, p.SDA, bbi2c.MaxLines)
	}
	if p.SCL < 0 || p.SCL >= bbi2c.MaxLines {
		return fmt.Errorf("%w: SCL %d not in [0, %d)", bbi2c.ErrInvalidLine, p.SCL, bbi2c.MaxLines)
	}
	if p.SDA == p.SCL {
		return fmt.Errorf("%w: SDA and SCL both on line %d", bbi2c.ErrInvalidLine, p.SDA)
	}
	return nil
}

// Driver drives the clock and data lines of a single bus. It remembers the
// last commanded state of both lines so that changing one line never
// clobbers the other.
type Driver struct {
	port bbi2c.Port
	sda  uint8 // port mask of SDA
	scl  uint8 // port mask of SCL

	sdaReleased bool
	sclReleased bool
}

// New creates a line driver for the given port and pin assignment. Both lines
// start out released but nothing is written to the port until the first call
// to Write or Release.
func New(port bbi2c.Port, pins Pins) (*Driver, error) {
	if err := pins.Validate(); err != nil {
		return nil, err
	}
	return &Driver{
		port:        port,
		sda:         1 << pins.SDA,
		scl:         1 << pins.SCL,
		sdaReleased: true,
		sclReleased: true,
	}, nil
}

// Mask returns the port mask of the given line.
func (d *Driver) Mask(l bbi2c.Line) uint8 {
	if l == bbi2c.Clock {
		return d.scl
	}
	return d.sda
}

// Released returns the last commanded state of the line.
func (d *Driver) Released(l bbi2c.Line) bool {
	if l == bbi2c.Clock {
		return d.sclReleased
	}
	return d.sdaReleased
}

// Write records the requested state of the line and writes the combined
// state of both lines to the port.
func (d *Driver) Write(l bbi2c.Line, released bool) error {
	if l == bbi2c.Clock {
		d.sclReleased = released
	} else {
		d.sdaReleased = released
	}
	return d.port.SetupIO(d.mask())
}

// Release releases both lines with a single port write.
func (d *Driver) Release() error {
	d.sdaReleased = true
	d.sclReleased = true
	return d.port.SetupIO(d.mask())
}

// Read returns true if the line is currently high.
func (d *Driver) Read(l bbi2c.Line) (bool, error) {
	m := d.Mask(l)
	v, err := d.port.ReadIO(m)
	return v&m != 0, err
}

func (d *Driver) mask() uint8 {
	var m uint8
	if !d.sdaReleased {
		m |= d.sda
	}
	if !d.sclReleased {
		m |= d.scl
	}
	return m
}
