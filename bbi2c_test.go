package bbi2c

import "testing"

func TestEventPopOrder(t *testing.T) {
	var e Event
	e.Add(EventNACK)
	e.Add(EventStretchTimeout)
	e.Add(EventBufferEmpty)

	want := []Event{EventStretchTimeout, EventBufferEmpty, EventNACK, EventNone}
	for i, w := range want {
		if got := e.Pop(); got != w {
			t.Errorf("pop %d: want %v; got %v", i, w, got)
		}
	}
	if e != EventNone {
		t.Errorf("want empty set after popping everything; got %#x", uint16(e))
	}
}

func TestEventHas(t *testing.T) {
	e := EventAddressNACK | EventPortFault
	if !e.Has(EventPortFault) {
		t.Error("want PortFault set")
	}
	if e.Has(EventNACK) {
		t.Error("want NACK unset")
	}
	if e.Pop() != EventPortFault || !e.Has(EventAddressNACK) {
		t.Error("Pop must only clear the event it returns")
	}
}

func TestLineString(t *testing.T) {
	for l, want := range map[Line]string{Clock: "SCL", Data: "SDA", Line(7): "INVALID"} {
		if got := l.String(); got != want {
			t.Errorf("Line(%d): want %q; got %q", l, want, got)
		}
	}
}
