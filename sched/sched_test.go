package sched

import (
	"sync"
	"testing"
	"time"
)

func TestParkThenWake(t *testing.T) {
	p := NewParker()
	done := make(chan struct{})
	go func() {
		p.Park(nil)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond) // let the goroutine reach its suspend point
	p.Wake()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("parked task was not resumed by Wake")
	}
}

func TestWakeBeforePark(t *testing.T) {
	p := NewParker()
	p.Wake()

	done := make(chan struct{})
	go func() {
		p.Park(nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Park slept through a wake that arrived first")
	}
}

func TestParkRunsCommit(t *testing.T) {
	p := NewParker()
	committed := make(chan struct{})
	done := make(chan struct{})
	go func() {
		p.Park(func() { close(committed) })
		close(done)
	}()

	// The waker is gated on the commit callback, the way a channel
	// operation's unlock gates the discoverability of its descriptor.
	select {
	case <-committed:
	case <-time.After(2 * time.Second):
		t.Fatal("commit callback did not run")
	}
	p.Wake()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("parked task was not resumed after commit")
	}
}

func TestParkWakeVisibility(t *testing.T) {
	p := NewParker()
	var payload int
	done := make(chan int)
	go func() {
		p.Park(nil)
		done <- payload
	}()

	time.Sleep(10 * time.Millisecond)
	payload = 42
	p.Wake()

	if got := <-done; got != 42 {
		t.Fatalf("write before Wake not visible after Park: got %d, want 42", got)
	}
}

func TestParkerReuse(t *testing.T) {
	p := NewParker()
	var wg sync.WaitGroup
	for cycle := 0; cycle < 10; cycle++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Park(nil)
		}()
		time.Sleep(time.Millisecond)
		p.Wake()
		wg.Wait()
	}
}

func TestDoubleWakePanics(t *testing.T) {
	p := NewParker()
	p.Wake()

	defer func() {
		if recover() == nil {
			t.Fatal("second Wake in the same park cycle did not panic")
		}
	}()
	p.Wake()
}
