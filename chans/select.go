package chans

import (
	"math/rand"

	"github.com/pianoyeg94/go-chans/sched"
)

// A CaseDir is the direction of one select arm.
type CaseDir int

const (
	// CaseRecv receives from Chan; Select returns the value and its ok
	// flag.
	CaseRecv CaseDir = iota
	// CaseSend sends the arm's Send value to Chan.
	CaseSend
	// CaseDefault fires when no other arm is ready.
	CaseDefault
)

// A Case is one arm of a Select. The zero Case is a receive on a nil
// channel: never ready.
type Case struct {
	Dir  CaseDir
	Chan *Chan
	Send any // value delivered by a CaseSend arm
}

// RecvCase returns a receive arm for c.
func RecvCase(c *Chan) Case { return Case{Dir: CaseRecv, Chan: c} }

// SendCase returns a send arm delivering v to c.
func SendCase(c *Chan, v any) Case { return Case{Dir: CaseSend, Chan: c, Send: v} }

// DefaultCase returns the arm taken when no other arm is ready.
func DefaultCase() Case { return Case{Dir: CaseDefault} }

// Select blocks until one of the cases can run, executes it, and returns
// its index. For a receive arm recv and recvOK carry the result, with
// recvOK false only for a closed and drained channel. A send arm hitting
// a closed channel fails with ErrClosed. When several arms are ready at
// once the winner is picked uniformly at random; when none is ready and a
// default arm exists, its index returns immediately.
//
// Arms with a nil channel can never proceed. A Select with no runnable
// arm and no default parks forever, like a language-level select over nil
// channels.
func Select(cases []Case) (chosen int, recv any, recvOK bool, err error) {
	if len(cases) >= 1<<16 {
		panic("chans: select with too many cases")
	}

	// Find the default arm; nil-channel arms keep their index but can
	// never fire.
	dflt := -1
	nactive := 0
	for i := range cases {
		cas := &cases[i]
		switch cas.Dir {
		case CaseDefault:
			if dflt >= 0 {
				panic("chans: multiple default cases in select")
			}
			dflt = i
		case CaseRecv, CaseSend:
			if cas.Chan != nil {
				nactive++
			}
		default:
			panic("chans: bad select case direction")
		}
	}

	block := dflt < 0

	if nactive == 0 {
		if !block {
			return dflt, nil, false, nil
		}
		// No arm can ever fire.
		sched.BlockForever()
		panic("chans: unreachable")
	}

	pollorder := make([]uint16, 0, nactive)
	for i := range cases {
		cas := &cases[i]
		if cas.Dir == CaseDefault || cas.Chan == nil {
			continue
		}
		pollorder = append(pollorder, uint16(i))
	}

	// Sort the arms by channel creation id into lockorder: a simple heap
	// sort, to guarantee n log n time and no extra allocation.
	lockorder := make([]uint16, nactive)
	for i := 0; i < nactive; i++ {
		j := i
		o := pollorder[i]
		c := cases[o].Chan
		for j > 0 && cases[lockorder[(j-1)/2]].Chan.cid < c.cid {
			k := (j - 1) / 2
			lockorder[j] = lockorder[k]
			j = k
		}
		lockorder[j] = o
	}
	for i := nactive - 1; i >= 0; i-- {
		o := lockorder[i]
		c := cases[o].Chan
		lockorder[i] = lockorder[0]
		j := 0
		for {
			k := j*2 + 1
			if k >= i {
				break
			}
			if k+1 < i && cases[lockorder[k]].Chan.cid < cases[lockorder[k+1]].Chan.cid {
				k++
			}
			if c.cid < cases[lockorder[k]].Chan.cid {
				lockorder[j] = lockorder[k]
				j = k
				continue
			}
			break
		}
		lockorder[j] = o
	}

	t := acquireTask()
	defer releaseTask(t)

	for {
		// One fresh permutation per attempt keeps the choice among ready
		// arms uniform.
		rand.Shuffle(len(pollorder), func(i, j int) {
			pollorder[i], pollorder[j] = pollorder[j], pollorder[i]
		})

		sellock(cases, lockorder)

		// Pass 1: in poll order, commit to the first ready arm.
		for _, o := range pollorder {
			cas := &cases[o]
			c := cas.Chan
			if cas.Dir == CaseRecv {
				if w := c.sendq.dequeue(); w != nil {
					var val any
					c.recvFromSender(w, &val, func() { selunlock(cases, lockorder) })
					return int(o), val, true, nil
				}
				if c.qcount.Load() > 0 {
					v := c.buf[c.recvx]
					c.buf[c.recvx] = nil
					c.recvx++
					if c.recvx == c.dataqsiz {
						c.recvx = 0
					}
					c.qcount.Add(^uint32(0))
					selunlock(cases, lockorder)
					return int(o), v, true, nil
				}
				if c.closed.Load() {
					// Closed and drained.
					selunlock(cases, lockorder)
					return int(o), nil, false, nil
				}
			} else { // CaseSend
				if c.closed.Load() {
					selunlock(cases, lockorder)
					return int(o), nil, false, ErrClosed
				}
				if w := c.recvq.dequeue(); w != nil {
					c.sendToWaiter(w, cas.Send, func() { selunlock(cases, lockorder) })
					return int(o), nil, false, nil
				}
				if c.qcount.Load() < c.dataqsiz {
					c.buf[c.sendx] = cas.Send
					c.sendx++
					if c.sendx == c.dataqsiz {
						c.sendx = 0
					}
					c.qcount.Add(1)
					selunlock(cases, lockorder)
					return int(o), nil, false, nil
				}
			}
		}

		if !block {
			selunlock(cases, lockorder)
			return dflt, nil, false, nil
		}

		// Pass 2: nothing ready. Register one descriptor per arm, all
		// owned by this task, enqueued in lock order.
		t.param = nil
		nextp := &t.waiting
		for _, o := range lockorder {
			cas := &cases[o]
			c := cas.Chan
			w := acquireWaiter()
			w.t = t
			w.isSelect = true
			w.c = c
			if cas.Dir == CaseSend {
				w.val = cas.Send
			}
			*nextp = w
			nextp = &w.waitlink
			if cas.Dir == CaseSend {
				c.sendq.enqueue(w)
			} else {
				c.recvq.enqueue(w)
			}
		}

		if debugEnabled.Load() {
			debugf("select: park arms=%d", nactive)
		}

		// Park; the commit callback drops every lock at once, making all
		// the descriptors discoverable only while the wake is deliverable.
		t.parker.Park(func() { selunlock(cases, lockorder) })

		// Woken. Re-take the locks before touching any descriptor.
		sellock(cases, lockorder)
		t.selectDone.Store(0)
		winner := t.param
		t.param = nil

		// Pass 3: in lock order, unlink every registered descriptor that
		// is still queued and single out the one that completed. The
		// winner was already dequeued by whoever woke us.
		chosen = -1
		wlist := t.waiting
		t.waiting = nil
		for _, o := range lockorder {
			cas := &cases[o]
			wl := wlist
			wlist = wl.waitlink
			wl.waitlink = nil
			if wl == winner {
				chosen = int(o)
				recv = wl.val
				recvOK = wl.success
			} else {
				c := cas.Chan
				if cas.Dir == CaseSend {
					c.sendq.dequeueWaiter(wl)
				} else {
					c.recvq.dequeueWaiter(wl)
				}
			}
			wl.val = nil
			wl.c = nil
			releaseWaiter(wl)
		}

		selunlock(cases, lockorder)

		if chosen >= 0 {
			if cases[chosen].Dir == CaseSend {
				return chosen, nil, false, nil
			}
			return chosen, recv, recvOK, nil
		}

		// A close woke us without completing any descriptor. Closed is
		// monotonic, so the next poll pass terminates through one of the
		// ready paths of the now-closed channel.
	}
}

// sellock acquires the locks of all distinct arm channels in lock order.
func sellock(cases []Case, lockorder []uint16) {
	var c *Chan
	for _, o := range lockorder {
		c0 := cases[o].Chan
		if c0 != c {
			c = c0
			c.lock.Lock()
		}
	}
}

// selunlock releases the locks in reverse lock order; a channel appearing
// in several arms is unlocked once.
func selunlock(cases []Case, lockorder []uint16) {
	for i := len(lockorder) - 1; i >= 0; i-- {
		c := cases[lockorder[i]].Chan
		if i > 0 && c == cases[lockorder[i-1]].Chan {
			continue
		}
		c.lock.Unlock()
	}
}
