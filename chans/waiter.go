package chans

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sys/cpu"

	"github.com/pianoyeg94/go-chans/sched"
)

// A task is one logical thread of control blocked in a channel operation.
// It exists only from shortly before its owner parks until shortly after
// the owner resumes, and is recycled through taskPool in between.
type task struct {
	parker sched.Parker

	// param is the descriptor whose transfer completed, set by the waking
	// side before Wake. Close wakes tasks without setting param; a select
	// that finds param nil after a wake re-runs its poll loop.
	param *waiter

	// selectDone is the wake claim of a task parked in select. A task
	// registered on several wait queues is woken by whichever competitor
	// first swaps 0 -> 1; every later dequeue of one of its descriptors
	// skips the descriptor instead of waking the task again.
	selectDone atomic.Uint32

	// waiting heads the descriptors registered by the current select,
	// linked through waiter.waitlink in lock order.
	waiting *waiter

	// schedlink chains tasks collected by close under the channel lock so
	// they can be woken after the lock is released.
	schedlink *task
}

var taskPool = sync.Pool{
	New: func() any {
		return &task{parker: sched.NewParker()}
	},
}

func acquireTask() *task {
	return taskPool.Get().(*task)
}

func releaseTask(t *task) {
	if t.param != nil {
		panic("chans: task released with non-nil param")
	}
	if t.waiting != nil {
		panic("chans: task released with registered descriptors")
	}
	if t.schedlink != nil {
		panic("chans: task released while on a resume list")
	}
	if t.selectDone.Load() != 0 {
		panic("chans: task released with its wake claim set")
	}
	taskPool.Put(t)
}

// A waiter is the descriptor of one parked operation: one node in a
// channel's wait queue. For a parked sender val holds the value being
// sent; for a parked receiver val is the slot the completing sender stores
// into. val is written, read and cleared only under the lock of the
// channel the waiter is queued on, before the owning task resumes.
type waiter struct {
	t *task

	val any

	// c is the channel this waiter is queued on. The owner clears it
	// after the waiter leaves the queue, before release.
	c *Chan

	prev *waiter
	next *waiter

	// waitlink chains the descriptors one select registered, in lock
	// order; the list head is t.waiting.
	waitlink *waiter

	// isSelect marks descriptors registered by select; dequeuing one
	// requires winning t.selectDone first.
	isSelect bool

	// success records how the operation ended: true if the transfer
	// completed, false if the channel closed while parked.
	success bool
}

// Released waiters are kept on sharded free lists picked round-robin. The
// shards are padded apart so a release on one does not false-share with an
// acquire on another.
const (
	waiterCacheShards   = 8  // power of two
	waiterCacheShardCap = 64 // free waiters kept per shard; excess is left to the GC
)

var (
	waiterCache [waiterCacheShards]waiterShard
	waiterTick  atomic.Uint32
)

type waiterShard struct {
	mu   sync.Mutex
	free *waiter // linked through next
	n    int
	_    cpu.CacheLinePad
}

func acquireWaiter() *waiter {
	shard := &waiterCache[waiterTick.Add(1)&(waiterCacheShards-1)]
	shard.mu.Lock()
	w := shard.free
	if w != nil {
		shard.free = w.next
		shard.n--
		w.next = nil
	}
	shard.mu.Unlock()
	if w == nil {
		w = new(waiter)
	}
	return w
}

// releaseWaiter returns w to the cache. The caller must already have
// cleared the transfer slot, the channel reference and the linkage; a
// dirty waiter here means a transfer was lost or duplicated.
func releaseWaiter(w *waiter) {
	if w.val != nil {
		panic("chans: waiter released with a live transfer slot")
	}
	if w.c != nil {
		panic("chans: waiter released while owned by a channel")
	}
	if w.prev != nil || w.next != nil || w.waitlink != nil {
		panic("chans: waiter released while linked")
	}
	w.t = nil
	w.isSelect = false
	w.success = false

	shard := &waiterCache[waiterTick.Add(1)&(waiterCacheShards-1)]
	shard.mu.Lock()
	if shard.n < waiterCacheShardCap {
		w.next = shard.free
		shard.free = w
		shard.n++
	}
	shard.mu.Unlock()
}

// A waitq is a channel's FIFO of parked operations. first is read without
// the channel lock by the full and empty fast paths, so it is atomic; all
// mutation happens under the channel lock.
type waitq struct {
	first atomic.Pointer[waiter]
	last  *waiter
}

func (q *waitq) enqueue(w *waiter) {
	w.next = nil
	x := q.last
	if x == nil {
		w.prev = nil
		q.first.Store(w)
		q.last = w
		return
	}
	w.prev = x
	x.next = w
	q.last = w
}

// dequeue pops the longest-waiting waiter. Waiters registered by a select
// whose task claim has already been taken are unlinked and skipped: their
// select is committing elsewhere and collects them on its way out.
func (q *waitq) dequeue() *waiter {
	for {
		w := q.first.Load()
		if w == nil {
			return nil
		}
		y := w.next
		if y == nil {
			q.first.Store(nil)
			q.last = nil
		} else {
			y.prev = nil
			q.first.Store(y)
			w.next = nil // mark as removed (see dequeueWaiter)
		}

		if w.isSelect && !w.t.selectDone.CompareAndSwap(0, 1) {
			continue
		}

		return w
	}
}

// dequeueWaiter unlinks w from wherever it sits in the queue. It is a
// no-op if w is no longer queued.
func (q *waitq) dequeueWaiter(w *waiter) {
	x := w.prev
	y := w.next
	if x != nil {
		if y != nil {
			// middle of queue
			x.next = y
			y.prev = x
			w.next = nil
			w.prev = nil
			return
		}
		// end of queue
		x.next = nil
		q.last = x
		w.prev = nil
		return
	}
	if y != nil {
		// start of queue
		y.prev = nil
		q.first.Store(y)
		w.next = nil
		return
	}

	// x == y == nil, so either w is the only element in the queue or it
	// has already been removed; only the queue head can tell which.
	if q.first.Load() == w {
		q.first.Store(nil)
		q.last = nil
	}
}
