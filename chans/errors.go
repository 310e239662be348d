package chans

import "errors"

// Sentinel failures reported by channel operations. Callers compare with
// errors.Is or plain equality; none of them wraps further detail.
var (
	// ErrClosed reports a send on a closed channel, whether from Send,
	// TrySend or a select send arm.
	ErrClosed = errors.New("chans: send on closed channel")

	// ErrAlreadyClosed reports a Close of an already-closed channel.
	ErrAlreadyClosed = errors.New("chans: close of closed channel")

	// ErrNilChannel reports a Close of a nil channel.
	ErrNilChannel = errors.New("chans: close of nil channel")

	// ErrCapacityOverflow reports a New capacity that is negative or does
	// not fit the buffer index type.
	ErrCapacityOverflow = errors.New("chans: capacity out of range")
)
