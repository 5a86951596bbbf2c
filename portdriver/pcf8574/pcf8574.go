// Package pcf8574 implements a port driver for the PCF8574 and PCF8574A
// 8-bit I/O expanders from NXP and TI.
//
// The expander has quasi-bidirectional lines: a line latched high is only
// weakly pulled up and can be pulled low by anything else on the wire, which
// is exactly the open-drain behavior I2C lines need. Lines latched low are
// actively driven low.
package pcf8574

import (
	"fmt"

	"github.com/oxplot/go-bbi2c"
	"github.com/oxplot/go-bbi2c/portdriver"
)

// Base addresses of the expander variants. The three address pins A0 to A2
// are added to the base.
const (
	AddrPCF8574  uint16 = 0x20
	AddrPCF8574A uint16 = 0x38
)

// Device is a PCF8574 used as a port for the bit-banged master. Every call
// to SetupIO or ReadIO is one transfer on the hardware I2C bus, so the bit
// rate of the emulated bus is a small fraction of the hardware bus speed.
type Device struct {
	bus  portdriver.I2C
	addr uint16

	latch uint8

	// Buffer used for tx and rx, defined once here instead to avoid heap
	// allocations in each method used.
	buf [1]byte
}

// New creates a new device at the given 7-bit address. The device is not
// accessed until the first call to SetupIO or ReadIO.
//
// I2C port must have <=100kHz frequency.
func New(bus portdriver.I2C, addr uint16) *Device {
	return &Device{
		bus:   bus,
		addr:  addr,
		latch: 0xff, // power-on state, all lines released
	}
}

// SetupIO implements bbi2c.Port. Lines whose bit is set in mask are latched
// low, the rest are latched high and so released.
func (d *Device) SetupIO(mask uint8) error {
	d.buf[0] = ^mask
	if err := d.bus.Tx(d.addr, d.buf[:], nil); err != nil {
		return fmt.Errorf("pcf8574 %#02x: write latch: %w", d.addr, err)
	}
	d.latch = ^mask
	return nil
}

// ReadIO implements bbi2c.Port. The expander returns the level of every pin,
// whatever its latch.
func (d *Device) ReadIO(mask uint8) (uint8, error) {
	if err := d.bus.Tx(d.addr, nil, d.buf[:]); err != nil {
		return 0, fmt.Errorf("pcf8574 %#02x: read pins: %w", d.addr, err)
	}
	return d.buf[0] & mask, nil
}

// Latch returns the last latch value written to the expander.
func (d *Device) Latch() uint8 {
	return d.latch
}

var _ bbi2c.Port = (*Device)(nil)
