package rxbuf

import (
	"errors"
	"testing"

	"github.com/oxplot/go-bbi2c"
)

func TestFIFO(t *testing.T) {
	b := New(0)
	if b.Cap() != DefaultCapacity {
		t.Fatalf("want capacity %d; got %d", DefaultCapacity, b.Cap())
	}
	for _, v := range []byte{'a', 'b', 'c'} {
		if err := b.Push(v); err != nil {
			t.Fatal(err)
		}
	}
	for i, want := range []byte{'a', 'b', 'c'} {
		if got := b.Len(); got != 3-i {
			t.Errorf("want Len %d before pop %d; got %d", 3-i, i, got)
		}
		got, err := b.Pop()
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("pop %d: want %q; got %q", i, want, got)
		}
	}
	if b.Len() != 0 {
		t.Errorf("want empty buffer; got Len %d", b.Len())
	}
}

func TestOverflowRejected(t *testing.T) {
	b := New(4)
	for i := 0; i < 4; i++ {
		if err := b.Push(byte(i)); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
	if err := b.Push(0xff); !errors.Is(err, bbi2c.ErrBufferFull) {
		t.Fatalf("want ErrBufferFull; got %v", err)
	}
	if v, _ := b.Pop(); v != 0 {
		t.Errorf("overflow must not clobber the oldest byte; got %d", v)
	}
	if b.Free() != 1 {
		t.Errorf("want 1 free; got %d", b.Free())
	}
}

func TestUnderflow(t *testing.T) {
	b := New(2)
	if _, err := b.Pop(); !errors.Is(err, bbi2c.ErrBufferEmpty) {
		t.Errorf("want ErrBufferEmpty; got %v", err)
	}
}

func TestWrapAround(t *testing.T) {
	b := New(3)
	var got []byte
	for i := byte(0); i < 10; i++ {
		if err := b.Push(i); err != nil {
			t.Fatal(err)
		}
		if b.Len() == 2 {
			v, _ := b.Pop()
			got = append(got, v)
		}
	}
	for b.Len() > 0 {
		v, _ := b.Pop()
		got = append(got, v)
	}
	for i, v := range got {
		if v != byte(i) {
			t.Fatalf("want ordered bytes; got %v", got)
		}
	}
}

func TestReset(t *testing.T) {
	b := New(2)
	b.Push(1)
	b.Push(2)
	b.Reset()
	if b.Len() != 0 || b.Free() != 2 {
		t.Errorf("want empty after Reset; got Len %d Free %d", b.Len(), b.Free())
	}
}
