// Package chans implements buffered and rendezvous channels over a small
// park/wake scheduler interface, together with a multiplexed select.
//
// A Chan carries interface values through a fixed circular buffer guarded
// by one mutex; capacity 0 turns every transfer into a rendezvous. Blocked
// operations enqueue a pooled transfer descriptor and park through
// package sched; peers complete the transfer descriptor-to-descriptor and
// wake the owner only after all locks are released. Select commits to
// exactly one ready arm, picking uniformly at random among the ready ones,
// and parks on all of its arms at once when none is ready.
package chans

import (
	"sync"
	"sync/atomic"

	"fortio.org/safecast"

	"github.com/pianoyeg94/go-chans/sched"
)

// A Chan is a FIFO communication channel with a fixed capacity. Capacity 0
// leaves it unbuffered: every send pairs with exactly one receive. A Chan
// must not be copied after first use.
//
// A nil *Chan behaves like a language-level nil channel: blocking
// operations block forever, non-blocking operations fail, Close errors.
type Chan struct {
	qcount   atomic.Uint32 // elements buffered; read without the lock by the fast paths
	dataqsiz uint32        // capacity of the circular buffer, immutable
	buf      []any         // circular buffer, nil when dataqsiz == 0
	closed   atomic.Bool   // monotonic; read without the lock by the fast paths

	// cid is this channel's creation sequence number. Select acquires the
	// locks of its arm channels in increasing cid order, so overlapping
	// selects never deadlock on each other.
	cid uint64

	// recvx is the head of the circular buffer (next receive), sendx the
	// tail (next send). Head and tail overlap is disambiguated by qcount
	// against dataqsiz, never by the indices alone.
	sendx uint32
	recvx uint32

	recvq waitq // parked receivers; non-empty only while qcount == 0
	sendq waitq // parked senders; non-empty only while qcount == dataqsiz

	// lock protects every field above as well as the val, success and
	// linkage fields of waiters queued on this channel.
	lock sync.Mutex
}

// chanID hands out creation sequence numbers.
var chanID atomic.Uint64

// New creates a channel with the given capacity. Capacities that are
// negative or do not fit the buffer index type fail with
// ErrCapacityOverflow.
func New(capacity int) (*Chan, error) {
	size, err := safecast.Convert[uint32](capacity)
	if err != nil {
		return nil, ErrCapacityOverflow
	}

	c := &Chan{
		dataqsiz: size,
		cid:      chanID.Add(1),
	}
	if size > 0 {
		c.buf = make([]any, size)
	}

	if debugEnabled.Load() {
		debugf("makechan: chan=%p dataqsiz=%d", c, size)
	}

	return c, nil
}

// MustNew is New for capacities known to be valid; it panics on error.
func MustNew(capacity int) *Chan {
	c, err := New(capacity)
	if err != nil {
		panic(err)
	}
	return c
}

// full reports whether a send on c would block. It uses a single
// word-sized read of mutable state, so although the answer is
// instantaneously true, the correct answer may have changed by the time
// the caller acts on it.
func (c *Chan) full() bool {
	// dataqsiz is immutable, safe to read at any point.
	if c.dataqsiz == 0 {
		return c.recvq.first.Load() == nil
	}
	return c.qcount.Load() == c.dataqsiz
}

// empty reports whether a receive from c would block, with the same
// staleness caveat as full.
func (c *Chan) empty() bool {
	if c.dataqsiz == 0 {
		return c.sendq.first.Load() == nil
	}
	return c.qcount.Load() == 0
}

// Send delivers v, blocking while the buffer is full or, at capacity 0,
// until a receiver arrives. It fails with ErrClosed if c is closed before
// or while the send is parked. A send on a nil channel blocks forever.
func (c *Chan) Send(v any) error {
	_, err := c.send(v, true)
	return err
}

// TrySend delivers v only if that needs no blocking. It reports whether
// the value was sent; false with a nil error means the channel was full
// (or, at capacity 0, had no waiting receiver).
func (c *Chan) TrySend(v any) (bool, error) {
	return c.send(v, false)
}

func (c *Chan) send(v any, block bool) (bool, error) {
	if c == nil {
		if !block {
			return false, nil
		}
		// A send on a nil channel is defined to block forever.
		sched.BlockForever()
		panic("chans: unreachable")
	}

	// Fast path: check for a failed non-blocking send without acquiring
	// the lock.
	//
	// After observing that the channel is not closed, we observe that it
	// is not ready for sending. Each observation is a single word-sized
	// read. A closed channel cannot transition from "ready for sending"
	// to "not ready for sending", so even if the channel closes between
	// the two reads they imply a moment between them when it was both
	// open and full, and we report as if we ran at that moment. The reads
	// reordering is just as harmless: not-full followed by not-closed
	// implies the channel was open during the first read.
	if !block && !c.closed.Load() && c.full() {
		return false, nil
	}

	c.lock.Lock()

	if c.closed.Load() {
		c.lock.Unlock()
		return false, ErrClosed
	}

	if w := c.recvq.dequeue(); w != nil {
		// Found a parked receiver. The value goes straight into its
		// descriptor, bypassing the buffer.
		c.sendToWaiter(w, v, func() { c.lock.Unlock() })
		return true, nil
	}

	if c.qcount.Load() < c.dataqsiz {
		// Room in the buffer. Enqueue at the tail.
		c.buf[c.sendx] = v
		c.sendx++
		if c.sendx == c.dataqsiz {
			c.sendx = 0
		}
		c.qcount.Add(1)
		c.lock.Unlock()
		return true, nil
	}

	if !block {
		c.lock.Unlock()
		return false, nil
	}

	// Block on the channel. Some receiver will complete the transfer.
	t := acquireTask()
	w := acquireWaiter()
	w.t = t
	w.val = v
	w.c = c
	w.isSelect = false
	w.success = false
	t.waiting = w
	t.param = nil
	c.sendq.enqueue(w)

	if debugEnabled.Load() {
		debugf("chansend: park chan=%p", c)
	}

	// The unlock runs once the wake channel is armed, so the descriptor
	// is discoverable only while its wake is deliverable.
	t.parker.Park(func() { c.lock.Unlock() })

	// Woken by a receiver or by close.
	if w != t.waiting {
		panic("chans: task waiting list corrupted")
	}
	t.waiting = nil
	t.param = nil
	success := w.success
	w.c = nil
	releaseWaiter(w)
	releaseTask(t)

	if !success {
		if !c.closed.Load() {
			panic("chans: spurious wakeup during send")
		}
		return false, ErrClosed
	}
	return true, nil
}

// sendToWaiter completes the parked receive w with the value v. The value
// lands in the receiver's transfer slot under the channel lock, the locks
// drop through unlockf, and only then is the receiver's task resumed.
func (c *Chan) sendToWaiter(w *waiter, v any, unlockf func()) {
	w.val = v
	w.success = true
	t := w.t
	t.param = w
	unlockf()
	t.parker.Wake()
}

// Recv takes the next value, blocking while the channel is empty and
// open. ok is false only once the channel is closed and drained; the
// value is then nil. A receive on a nil channel blocks forever.
func (c *Chan) Recv() (v any, ok bool) {
	_, v, ok = c.recv(true)
	return v, ok
}

// TryRecv takes a value only if that needs no blocking. completed reports
// whether the operation ran at all: false means the receive would have
// blocked, true with ok=false means the channel is closed and drained.
func (c *Chan) TryRecv() (v any, ok, completed bool) {
	completed, v, ok = c.recv(false)
	return v, ok, completed
}

func (c *Chan) recv(block bool) (completed bool, v any, ok bool) {
	if c == nil {
		if !block {
			return false, nil, false
		}
		// A receive from a nil channel is defined to block forever.
		sched.BlockForever()
		panic("chans: unreachable")
	}

	// Fast path: check for a failed non-blocking receive without
	// acquiring the lock.
	//
	// Unlike on the send side the order of the observations matters here,
	// closed second: a channel cannot be reopened, so observing it still
	// open after observing it empty proves a moment when the receive
	// would have blocked.
	if !block && c.empty() {
		if !c.closed.Load() {
			return false, nil, false
		}
		// The channel is irreversibly closed. Re-check for data that
		// could have arrived between the empty and closed checks above.
		if c.empty() {
			// Irreversibly closed and drained.
			return true, nil, false
		}
	}

	c.lock.Lock()

	if c.closed.Load() {
		if c.qcount.Load() == 0 {
			c.lock.Unlock()
			return true, nil, false
		}
		// Closed, but the buffer still drains in order.
	} else {
		// The channel is open: a parked sender means the transfer can
		// complete right now (and, at capacity > 0, that the buffer is
		// full and must rotate).
		if w := c.sendq.dequeue(); w != nil {
			var val any
			c.recvFromSender(w, &val, func() { c.lock.Unlock() })
			return true, val, true
		}
	}

	if c.qcount.Load() > 0 {
		// Receive directly from the buffer head.
		v := c.buf[c.recvx]
		c.buf[c.recvx] = nil
		c.recvx++
		if c.recvx == c.dataqsiz {
			c.recvx = 0
		}
		c.qcount.Add(^uint32(0))
		c.lock.Unlock()
		return true, v, true
	}

	if !block {
		c.lock.Unlock()
		return false, nil, false
	}

	// No value available: park until a sender or a close completes the
	// receive.
	t := acquireTask()
	w := acquireWaiter()
	w.t = t
	w.val = nil
	w.c = c
	w.isSelect = false
	w.success = false
	t.waiting = w
	t.param = nil
	c.recvq.enqueue(w)

	if debugEnabled.Load() {
		debugf("chanrecv: park chan=%p", c)
	}

	t.parker.Park(func() { c.lock.Unlock() })

	// Woken by a sender or by close.
	if w != t.waiting {
		panic("chans: task waiting list corrupted")
	}
	t.waiting = nil
	t.param = nil
	success := w.success
	v = w.val
	w.val = nil
	w.c = nil
	releaseWaiter(w)
	releaseTask(t)

	if !success {
		if !c.closed.Load() {
			panic("chans: spurious wakeup during receive")
		}
		return true, nil, false
	}
	return true, v, true
}

// recvFromSender completes a receive against the parked sender w. At
// capacity 0 the sender's value moves straight to the receiver's slot.
// At capacity > 0 the buffer is necessarily full: the receiver takes the
// buffer head and the sender's value fills the freed cell, so FIFO order
// across buffered values and parked senders is preserved exactly. Locks
// drop through unlockf before the sender's task is resumed.
func (c *Chan) recvFromSender(w *waiter, ep *any, unlockf func()) {
	if c.dataqsiz == 0 {
		*ep = w.val
	} else {
		// The queue is full. Take the item at the head; the sender's
		// value goes to the tail, which is the same cell the head just
		// vacated.
		*ep = c.buf[c.recvx]
		c.buf[c.recvx] = w.val
		c.recvx++
		if c.recvx == c.dataqsiz {
			c.recvx = 0
		}
		c.sendx = c.recvx
	}
	w.val = nil
	w.success = true
	t := w.t
	t.param = w
	unlockf()
	t.parker.Wake()
}

// Close closes the channel. Parked receivers resume reporting (nil,
// ok=false); parked senders resume failing with ErrClosed; values already
// buffered stay receivable in order. Closing a nil channel fails with
// ErrNilChannel, closing twice with ErrAlreadyClosed.
func (c *Chan) Close() error {
	if c == nil {
		return ErrNilChannel
	}

	c.lock.Lock()
	if c.closed.Load() {
		c.lock.Unlock()
		return ErrAlreadyClosed
	}

	if debugEnabled.Load() {
		debugf("closechan: chan=%p", c)
	}

	c.closed.Store(true)

	// Collect every parked task under the lock; wake them only after the
	// lock drops. Close never sets task.param: a plain operation reads
	// the failure from its own descriptor, a select woken here finds no
	// completed descriptor and re-polls against the now-closed channel.
	var tlist *task

	// Release all readers. They report the zero value of a drained
	// closed channel.
	for {
		w := c.recvq.dequeue()
		if w == nil {
			break
		}
		w.val = nil
		w.success = false
		t := w.t
		t.schedlink = tlist
		tlist = t
	}

	// Release all writers. Their pending values are discarded and they
	// fail with ErrClosed.
	for {
		w := c.sendq.dequeue()
		if w == nil {
			break
		}
		w.val = nil
		w.success = false
		t := w.t
		t.schedlink = tlist
		tlist = t
	}
	c.lock.Unlock()

	// Wake the collected tasks now that the lock is gone.
	for tlist != nil {
		t := tlist
		tlist = t.schedlink
		t.schedlink = nil
		t.parker.Wake()
	}
	return nil
}

// Len reports the number of buffered elements, a snapshot taken without
// the lock. Len of a nil channel is 0.
func (c *Chan) Len() int {
	if c == nil {
		return 0
	}
	return int(c.qcount.Load())
}

// Cap reports the channel's capacity. Cap of a nil channel is 0.
func (c *Chan) Cap() int {
	if c == nil {
		return 0
	}
	return int(c.dataqsiz)
}
