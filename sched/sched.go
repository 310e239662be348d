// Package sched provides the parking primitives that channel operations
// block on.
//
// A Parker is a single-owner binary semaphore. The owning task parks on it,
// some other task wakes it. Wake may arrive before Park reaches its suspend
// point; the park then returns immediately instead of sleeping, so the
// enqueue-unlock-park sequence of a channel operation has no window in
// which a wake can be lost.
package sched

import "sync"

// A Parker suspends and resumes one task.
//
// At most one task parks on a Parker at a time, and each completed Park
// pairs with exactly one Wake. A second Wake during the same park cycle is
// a protocol violation and panics. Everything written by the waking task
// before Wake is visible to the owner once Park returns.
type Parker interface {
	// Park suspends the calling task until Wake is called. If commit is
	// non-nil it runs once the wake channel is armed, before the task
	// sleeps; parking callers use it to release the locks that make their
	// wait descriptors discoverable.
	Park(commit func())

	// Wake resumes the task parked on this Parker, or makes the next Park
	// return immediately if it has not reached its suspend point yet.
	Wake()
}

// NewParker returns a Parker backed by a condition-variable semaphore. A
// Parker is reusable: once Park returns, the next park cycle may begin.
func NewParker() Parker {
	p := &parker{}
	p.cond.L = &p.mu
	return p
}

type parker struct {
	mu    sync.Mutex
	cond  sync.Cond
	woken bool
}

func (p *parker) Park(commit func()) {
	p.mu.Lock()
	if commit != nil {
		commit()
	}
	for !p.woken {
		p.cond.Wait()
	}
	p.woken = false
	p.mu.Unlock()
}

func (p *parker) Wake() {
	p.mu.Lock()
	if p.woken {
		p.mu.Unlock()
		panic("sched: wake of an already-woken parker")
	}
	p.woken = true
	p.mu.Unlock()
	p.cond.Signal()
}

// BlockForever parks the calling task with no way to wake it. Operations
// that are defined to never return (blocking sends and receives on a nil
// channel, a select with no runnable arm and no default) end up here.
func BlockForever() {
	select {}
}
