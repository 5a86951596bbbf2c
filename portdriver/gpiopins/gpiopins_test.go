package gpiopins

import (
	"errors"
	"testing"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"

	"github.com/oxplot/go-bbi2c"
	"github.com/oxplot/go-bbi2c/linedrv"
)

// countingPin counts mode changes of a test pin.
type countingPin struct {
	*gpiotest.Pin
	outs, ins int
}

func (p *countingPin) Out(l gpio.Level) error {
	p.outs++
	return p.Pin.Out(l)
}

func (p *countingPin) In(pull gpio.Pull, edge gpio.Edge) error {
	p.ins++
	return p.Pin.In(pull, edge)
}

func newPins() (*countingPin, *countingPin) {
	return &countingPin{Pin: &gpiotest.Pin{N: "GPIO2", Num: 2}},
		&countingPin{Pin: &gpiotest.Pin{N: "GPIO3", Num: 3}}
}

func TestNew(t *testing.T) {
	if _, err := New(); !errors.Is(err, bbi2c.ErrInvalidLine) {
		t.Errorf("want ErrInvalidLine for no pins; got %v", err)
	}
	pins := make([]gpio.PinIO, 9)
	if _, err := New(pins...); !errors.Is(err, bbi2c.ErrInvalidLine) {
		t.Errorf("want ErrInvalidLine for 9 pins; got %v", err)
	}
}

func TestSetupIO(t *testing.T) {
	sda, scl := newPins()
	p, err := New(sda, scl)
	if err != nil {
		t.Fatal(err)
	}

	if err := p.SetupIO(0); err != nil {
		t.Fatal(err)
	}
	if sda.P != gpio.PullUp || scl.P != gpio.PullUp {
		t.Errorf("want pull-ups on released pins; got %s, %s", sda.P, scl.P)
	}
	if err := p.SetupIO(0b01); err != nil {
		t.Fatal(err)
	}
	if sda.Read() != gpio.Low || scl.Read() != gpio.High {
		t.Errorf("want SDA low, SCL high; got %s, %s", sda.Read(), scl.Read())
	}
	if err := p.SetupIO(0b01); err != nil {
		t.Fatal(err)
	}

	if sda.ins != 1 || sda.outs != 1 {
		t.Errorf("SDA reconfigured too often: %d in, %d out", sda.ins, sda.outs)
	}
	if scl.ins != 1 || scl.outs != 0 {
		t.Errorf("SCL reconfigured too often: %d in, %d out", scl.ins, scl.outs)
	}

	if err := p.Halt(); err != nil {
		t.Fatal(err)
	}
	if sda.Read() != gpio.High || scl.ins != 2 {
		t.Error("Halt did not release every pin")
	}
}

func TestReadIO(t *testing.T) {
	sda, scl := newPins()
	p, err := New(sda, scl)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.SetupIO(0); err != nil {
		t.Fatal(err)
	}
	scl.L = gpio.Low // a target stretching the clock
	v, err := p.ReadIO(0b11)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0b01 {
		t.Errorf("want 0b01; got %02b", v)
	}
	if _, err := p.ReadIO(0b100); !errors.Is(err, bbi2c.ErrInvalidLine) {
		t.Errorf("want ErrInvalidLine for an unwired line; got %v", err)
	}
	if err := p.SetupIO(0b100); !errors.Is(err, bbi2c.ErrInvalidLine) {
		t.Errorf("want ErrInvalidLine for an unwired line; got %v", err)
	}
}

func TestLineDriver(t *testing.T) {
	sda, scl := newPins()
	p, err := New(nil, sda, nil, scl)
	if err != nil {
		t.Fatal(err)
	}
	lines, err := linedrv.New(p, linedrv.Pins{SDA: 1, SCL: 3})
	if err != nil {
		t.Fatal(err)
	}
	if err := lines.Release(); err != nil {
		t.Fatal(err)
	}
	if err := lines.Write(bbi2c.Clock, false); err != nil {
		t.Fatal(err)
	}
	if high, err := lines.Read(bbi2c.Clock); err != nil || high {
		t.Errorf("want SCL low; got %v, %v", high, err)
	}
	if high, err := lines.Read(bbi2c.Data); err != nil || !high {
		t.Errorf("want SDA high; got %v, %v", high, err)
	}
}
