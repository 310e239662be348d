package chans

import "testing"

func TestWaitqFIFO(t *testing.T) {
	var q waitq
	a, b, c := acquireWaiter(), acquireWaiter(), acquireWaiter()
	q.enqueue(a)
	q.enqueue(b)
	q.enqueue(c)

	for i, want := range []*waiter{a, b, c} {
		got := q.dequeue()
		if got != want {
			t.Fatalf("dequeue #%d = %p, want %p", i, got, want)
		}
	}
	if q.dequeue() != nil {
		t.Fatal("dequeue from an empty queue returned a waiter")
	}

	for _, w := range []*waiter{a, b, c} {
		releaseWaiter(w)
	}
}

func TestWaitqDequeueWaiter(t *testing.T) {
	tests := []struct {
		name   string
		remove int
		want   []int
	}{
		{"head", 0, []int{1, 2}},
		{"middle", 1, []int{0, 2}},
		{"tail", 2, []int{0, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var q waitq
			ws := []*waiter{acquireWaiter(), acquireWaiter(), acquireWaiter()}
			for _, w := range ws {
				q.enqueue(w)
			}

			q.dequeueWaiter(ws[tt.remove])
			// A second unlink of the same waiter must be a no-op.
			q.dequeueWaiter(ws[tt.remove])

			for i, wi := range tt.want {
				got := q.dequeue()
				if got != ws[wi] {
					t.Fatalf("dequeue #%d = %p, want waiter %d", i, got, wi)
				}
			}
			if q.dequeue() != nil {
				t.Fatal("queue not empty after removing all waiters")
			}

			for _, w := range ws {
				releaseWaiter(w)
			}
		})
	}
}

func TestWaitqDequeueSkipsClaimedSelect(t *testing.T) {
	var q waitq
	claimed, plain := acquireWaiter(), acquireWaiter()

	ct := acquireTask()
	claimed.t = ct
	claimed.isSelect = true
	ct.selectDone.Store(1) // some competitor already won this task's wake
	q.enqueue(claimed)
	q.enqueue(plain)

	if got := q.dequeue(); got != plain {
		t.Fatalf("dequeue = %p, want the unclaimed waiter %p", got, plain)
	}
	if q.first.Load() != nil {
		t.Fatal("claimed waiter left linked in the queue")
	}

	ct.selectDone.Store(0)
	claimed.t = nil
	claimed.isSelect = false
	releaseTask(ct)
	releaseWaiter(claimed)
	releaseWaiter(plain)
}

func TestWaiterCacheReuse(t *testing.T) {
	// Drain enough acquires to be sure at least one released waiter comes
	// back from a shard rather than the allocator.
	released := make(map[*waiter]bool)
	for i := 0; i < waiterCacheShards; i++ {
		w := acquireWaiter()
		released[w] = true
		releaseWaiter(w)
	}

	// Acquire in one burst so the round-robin ticks sweep every shard.
	reused := false
	var held []*waiter
	for i := 0; i < 2*waiterCacheShards; i++ {
		w := acquireWaiter()
		if released[w] {
			reused = true
		}
		held = append(held, w)
	}
	for _, w := range held {
		releaseWaiter(w)
	}
	if !reused {
		t.Fatal("no released waiter was handed back by the cache")
	}
}

func TestReleaseWaiterPoisoning(t *testing.T) {
	tests := []struct {
		name  string
		dirty func(w *waiter)
	}{
		{"live transfer slot", func(w *waiter) { w.val = 1 }},
		{"channel owned", func(w *waiter) { w.c = &Chan{} }},
		{"still linked", func(w *waiter) { w.next = &waiter{} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := acquireWaiter()
			tt.dirty(w)
			defer func() {
				if recover() == nil {
					t.Fatal("releaseWaiter accepted a dirty waiter")
				}
			}()
			releaseWaiter(w)
		})
	}
}
