package chans

import "time"

// After returns a capacity-1 channel that receives the fire time once d
// elapses. Combined with Select this gives channel operations a deadline
// with no engine support: a timeout is just one more receive arm.
func After(d time.Duration) *Chan {
	c := MustNew(1)
	time.AfterFunc(d, func() {
		// The only send into a capacity-1 buffer, so it cannot fail.
		c.TrySend(time.Now())
	})
	return c
}
