package channel_utils

type Settled[T any] struct {
	Value T
	Err   error
}

// SettleAll waits for every future and returns their outcomes in input order.
// It never short-circuits on failure.
func SettleAll[T any](futures ...*Future[T]) []Settled[T] {
	results := make([]Settled[T], len(futures))
	for i, f := range futures {
		value, err := f.Wait()
		results[i] = Settled[T]{Value: value, Err: err}
	}
	return results
}

// Go runs fn on its own goroutine. It is meant for waiting on work that
// already runs elsewhere, never for the work itself.
func Go[T any](fn func() (T, error)) *Future[T] {
	out := newFuture[T]()
	go func() {
		defer func() {
			if p := recover(); p != nil {
				var zero T
				out.settle(zero, panicError(p))
			}
		}()
		value, err := fn()
		out.settle(value, err)
	}()
	return out
}

// Then settles a new future with fn applied to f's outcome once f settles. The
// continuation runs on its own goroutine so no pool worker is held while waiting.
func Then[T, R any](f *Future[T], fn func(T, error) (R, error)) *Future[R] {
	out := newFuture[R]()
	go func() {
		value, err := f.Wait()
		defer func() {
			if p := recover(); p != nil {
				var zero R
				out.settle(zero, panicError(p))
			}
		}()
		r, rerr := fn(value, err)
		out.settle(r, rerr)
	}()
	return out
}
