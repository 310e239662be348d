package chans

import (
	"testing"
	"time"
)

func TestTypedRoundTrip(t *testing.T) {
	type point struct{ x, y int }

	c := MustNewOf[point](2)
	want := point{3, 4}
	if err := c.Send(want); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	got, ok := c.Recv()
	if !ok || got != want {
		t.Fatalf("Recv = (%+v, %v), want (%+v, true)", got, ok, want)
	}
}

func TestTypedZeroValueOnClosed(t *testing.T) {
	ints := MustNewOf[int](1)
	ints.Close()
	if v, ok := ints.Recv(); ok || v != 0 {
		t.Fatalf("Recv from closed int channel = (%d, %v), want (0, false)", v, ok)
	}

	strs := MustNewOf[string](1)
	strs.Close()
	if v, ok := strs.Recv(); ok || v != "" {
		t.Fatalf("Recv from closed string channel = (%q, %v), want (%q, false)", v, ok, "")
	}
}

func TestTypedTryOps(t *testing.T) {
	c := MustNewOf[int](1)
	if ok, err := c.TrySend(1); !ok || err != nil {
		t.Fatalf("TrySend = (%v, %v), want (true, nil)", ok, err)
	}
	if ok, err := c.TrySend(2); ok || err != nil {
		t.Fatalf("TrySend into a full channel = (%v, %v), want (false, nil)", ok, err)
	}
	if v, ok, completed := c.TryRecv(); !completed || !ok || v != 1 {
		t.Fatalf("TryRecv = (%d, %v, %v), want (1, true, true)", v, ok, completed)
	}
	if v, ok, completed := c.TryRecv(); completed || ok || v != 0 {
		t.Fatalf("TryRecv from an empty channel = (%d, %v, %v), want (0, false, false)", v, ok, completed)
	}
}

func TestTypedLenCap(t *testing.T) {
	c := MustNewOf[string](3)
	c.Send("a")
	if c.Len() != 1 || c.Cap() != 3 {
		t.Fatalf("Len/Cap = %d/%d, want 1/3", c.Len(), c.Cap())
	}
}

func TestTypedNewOfError(t *testing.T) {
	if _, err := NewOf[int](-1); err != ErrCapacityOverflow {
		t.Fatalf("NewOf[int](-1) error = %v, want ErrCapacityOverflow", err)
	}
}

// Typed channels compose into Select through their untyped underside.
func TestTypedSelectComposition(t *testing.T) {
	ints := MustNewOf[int](1)
	strs := MustNewOf[string](1)
	strs.Send("picked")

	chosen, v, ok, err := Select([]Case{RecvCase(ints.Chan()), RecvCase(strs.Chan())})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if chosen != 1 || !ok || v.(string) != "picked" {
		t.Fatalf("Select = (%d, %v, %v), want (1, %q, true)", chosen, v, ok, "picked")
	}
}

func TestAfterDelivers(t *testing.T) {
	start := time.Now()
	c := After(20 * time.Millisecond)

	v, ok := c.Recv()
	if !ok {
		t.Fatal("After channel reported closed")
	}
	if _, isTime := v.(time.Time); !isTime {
		t.Fatalf("After delivered %T, want time.Time", v)
	}
	if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
		t.Fatalf("After fired after %v, want at least ~20ms", elapsed)
	}
}

// The timeout idiom: a deadline is just one more receive arm.
func TestAfterInSelect(t *testing.T) {
	never := MustNew(0)

	chosen, v, ok, err := Select([]Case{RecvCase(After(30 * time.Millisecond)), RecvCase(never)})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if chosen != 0 || !ok {
		t.Fatalf("Select = (%d, ok=%v), want the timer arm (0, true)", chosen, ok)
	}
	if _, isTime := v.(time.Time); !isTime {
		t.Fatalf("timer arm delivered %T, want time.Time", v)
	}
}
