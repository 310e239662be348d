package chans

// A ChanOf is a statically typed facade over a Chan: same runtime, same
// semantics, with T in the signatures and a real zero value of T for the
// closed-drained case.
type ChanOf[T any] struct {
	c *Chan
}

// NewOf creates a typed channel with the given capacity.
func NewOf[T any](capacity int) (*ChanOf[T], error) {
	c, err := New(capacity)
	if err != nil {
		return nil, err
	}
	return &ChanOf[T]{c: c}, nil
}

// MustNewOf is NewOf for capacities known to be valid; it panics on
// error.
func MustNewOf[T any](capacity int) *ChanOf[T] {
	return &ChanOf[T]{c: MustNew(capacity)}
}

// Chan exposes the untyped channel underneath, for composing typed
// channels into Select arms.
func (tc *ChanOf[T]) Chan() *Chan { return tc.c }

func (tc *ChanOf[T]) Send(v T) error { return tc.c.Send(v) }

func (tc *ChanOf[T]) TrySend(v T) (bool, error) { return tc.c.TrySend(v) }

// Recv blocks for the next value; ok is false only once the channel is
// closed and drained, and the zero value of T comes back with it.
func (tc *ChanOf[T]) Recv() (T, bool) {
	v, ok := tc.c.Recv()
	return typedValue[T](v, ok), ok
}

// TryRecv mirrors Chan.TryRecv with static types.
func (tc *ChanOf[T]) TryRecv() (T, bool, bool) {
	v, ok, completed := tc.c.TryRecv()
	return typedValue[T](v, ok), ok, completed
}

func (tc *ChanOf[T]) Close() error { return tc.c.Close() }

func (tc *ChanOf[T]) Len() int { return tc.c.Len() }

func (tc *ChanOf[T]) Cap() int { return tc.c.Cap() }

func typedValue[T any](v any, ok bool) T {
	if !ok || v == nil {
		var zero T
		return zero
	}
	return v.(T)
}
