package simport

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/oxplot/go-bbi2c"
	"github.com/oxplot/go-bbi2c/linedrv"
)

var pins = linedrv.Pins{SDA: 4, SCL: 5}

// banger drives the simulated bus one level pair at a time, without any of
// the master logic.
type banger struct {
	t *testing.T
	p *Port
}

func (b banger) set(scl, sda bool) {
	var m uint8
	if !scl {
		m |= 1 << pins.SCL
	}
	if !sda {
		m |= 1 << pins.SDA
	}
	if err := b.p.SetupIO(m); err != nil {
		b.t.Fatal(err)
	}
}

func (b banger) sda() bool {
	v, err := b.p.ReadIO(1 << pins.SDA)
	if err != nil {
		b.t.Fatal(err)
	}
	return v != 0
}

func (b banger) start() {
	b.set(true, true)
	b.set(true, false)
	b.set(false, false)
}

func (b banger) stop() {
	b.set(false, false)
	b.set(true, false)
	b.set(true, true)
}

// write shifts out v and returns true if it was acknowledged.
func (b banger) write(v byte) bool {
	for i := 7; i >= 0; i-- {
		bit := v&(1<<i) != 0
		b.set(false, bit)
		b.set(true, bit)
		b.set(false, bit)
	}
	b.set(false, true)
	b.set(true, true)
	ack := !b.sda()
	b.set(false, true)
	return ack
}

// read shifts in one byte and answers with ack.
func (b banger) read(ack bool) byte {
	var v byte
	b.set(false, true)
	for i := 0; i < 8; i++ {
		b.set(true, true)
		v <<= 1
		if b.sda() {
			v |= 1
		}
		b.set(false, true)
	}
	b.set(false, !ack)
	b.set(true, !ack)
	b.set(false, !ack)
	return v
}

func newPort(t *testing.T) (*Port, *Memory) {
	t.Helper()
	p, err := New(pins)
	if err != nil {
		t.Fatal(err)
	}
	m := &Memory{}
	p.Attach(0x50, m)
	return p, m
}

func TestNewRejectsBadPins(t *testing.T) {
	if _, err := New(linedrv.Pins{SDA: 1, SCL: 1}); !errors.Is(err, bbi2c.ErrInvalidLine) {
		t.Errorf("want ErrInvalidLine; got %v", err)
	}
}

func TestIdleLevels(t *testing.T) {
	p, _ := newPort(t)
	v, err := p.ReadIO(0xff)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0xff {
		t.Errorf("want all lines high; got %08b", v)
	}
	if err := p.SetupIO(1 << pins.SDA); err != nil {
		t.Fatal(err)
	}
	if got := p.Levels(); got != (Levels{SCL: true, SDA: false}) {
		t.Errorf("want SDA low only; got %+v", got)
	}
}

func TestConditions(t *testing.T) {
	p, _ := newPort(t)
	b := banger{t, p}
	b.start()
	b.stop()
	b.start()
	b.set(false, true)
	b.set(true, true)
	b.set(true, false) // repeated start
	b.stop()
	starts, stops := p.Conditions()
	if starts != 3 || stops != 2 {
		t.Errorf("want 3 starts, 2 stops; got %d, %d", starts, stops)
	}
}

func TestAddressAck(t *testing.T) {
	p, m := newPort(t)
	b := banger{t, p}

	b.start()
	if b.write(0x51 << 1) {
		t.Error("unattached address acknowledged")
	}
	b.stop()

	b.start()
	if !b.write(0x50 << 1) {
		t.Error("attached address not acknowledged")
	}
	b.stop()

	if starts, stops := m.Transactions(); starts != 1 || stops != 1 {
		t.Errorf("want 1 transaction; got %d starts, %d stops", starts, stops)
	}
	if got := p.Levels(); got != (Levels{SCL: true, SDA: true}) {
		t.Errorf("bus not idle: %+v", got)
	}
}

func TestMemoryWriteRead(t *testing.T) {
	p, m := newPort(t)
	b := banger{t, p}

	b.start()
	b.write(0x50 << 1)
	for _, v := range []byte{0x10, 0xa5, 0x3c} {
		if !b.write(v) {
			t.Fatalf("%#02x not acknowledged", v)
		}
	}
	b.stop()
	if m.Data[0x10] != 0xa5 || m.Data[0x11] != 0x3c {
		t.Fatalf("memory not written: % x", m.Data[0x10:0x12])
	}

	// set the pointer then read back through a repeated start
	b.start()
	b.write(0x50 << 1)
	b.write(0x10)
	b.set(false, true)
	b.set(true, true)
	b.set(true, false)
	b.set(false, false)
	if !b.write(0x50<<1 | 1) {
		t.Fatal("read address not acknowledged")
	}
	got := []byte{b.read(true), b.read(false)}
	b.stop()

	if diff := cmp.Diff([]byte{0xa5, 0x3c}, got); diff != "" {
		t.Errorf("read mismatch (-want +got):\n%s", diff)
	}
	if got := p.Levels(); got != (Levels{SCL: true, SDA: true}) {
		t.Errorf("bus not idle: %+v", got)
	}
}

func TestMemoryNack(t *testing.T) {
	p, m := newPort(t)
	m.NackWhen = func(b byte) bool { return b == 'B' }
	b := banger{t, p}

	b.start()
	b.write(0x50 << 1)
	var acks []bool
	for _, v := range []byte("\x00ABC") {
		acks = append(acks, b.write(v))
	}
	b.stop()

	if diff := cmp.Diff([]bool{true, true, false, true}, acks); diff != "" {
		t.Errorf("acks mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]byte("\x00ABC"), m.Written()); diff != "" {
		t.Errorf("written mismatch (-want +got):\n%s", diff)
	}
	if m.Data[0] != 'A' || m.Data[1] != 'C' {
		t.Errorf("want A, C stored; got %q", m.Data[:2])
	}
}

func TestStretch(t *testing.T) {
	p, m := newPort(t)
	m.Data[0] = 0x81
	p.StretchOnRead(0, 3)
	b := banger{t, p}

	b.start()
	b.write(0x50<<1 | 1)
	b.set(false, true)
	b.set(true, true)
	for i := 0; i < 3; i++ {
		if p.Levels().SCL {
			t.Fatalf("SCL released after %d polls", i)
		}
		if _, err := p.ReadIO(1 << pins.SCL); err != nil {
			t.Fatal(err)
		}
	}
	if !p.Levels().SCL {
		t.Fatal("SCL still held after 3 polls")
	}
}

func TestTrace(t *testing.T) {
	p, _ := newPort(t)
	b := banger{t, p}
	b.start()
	b.stop()
	want := []Levels{
		{SCL: true, SDA: false},
		{SCL: false, SDA: false},
		{SCL: true, SDA: false},
		{SCL: true, SDA: true},
	}
	if diff := cmp.Diff(want, p.Trace()); diff != "" {
		t.Errorf("trace mismatch (-want +got):\n%s", diff)
	}
	p.ResetTrace()
	if len(p.Trace()) != 0 {
		t.Error("trace not reset")
	}
}
