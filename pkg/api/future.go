package api

import (
	"context"
	"errors"
	"sync"
)

// Future holds a value that is produced exactly once. It is the result
// capability of a Workflow: it resolves with a value, fails with an
// error, or is cancelled, and never changes afterwards.
type Future[O any] struct {
	done chan struct{}

	mu       sync.Mutex
	settled  bool
	value    O
	err      error
	onDone   []func(O, error)
}

// NewFuture returns an unresolved future.
func NewFuture[O any]() *Future[O] {
	return &Future[O]{done: make(chan struct{})}
}

// Resolve completes the future with a value. It returns false if the
// future was already settled.
func (f *Future[O]) Resolve(v O) bool {
	return f.settle(v, nil)
}

// Fail completes the future with an error. It returns false if the
// future was already settled.
func (f *Future[O]) Fail(err error) bool {
	if err == nil {
		err = errors.New("weft: future failed with nil error")
	}
	var zero O
	return f.settle(zero, err)
}

// Cancel completes the future with a *CanceledError carrying the given
// cause. It returns false if the future was already settled.
func (f *Future[O]) Cancel(cause error) bool {
	var zero O
	return f.settle(zero, NewCanceledError(cause))
}

// Done returns a channel that is closed once the future settles.
func (f *Future[O]) Done() <-chan struct{} { return f.done }

// Err returns the failure the future settled with, or nil if it is
// still pending or resolved normally.
func (f *Future[O]) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Wait blocks until the future settles or ctx ends. A settled future
// returns its value or failure; a context-ended wait returns ctx.Err
// without settling the future.
func (f *Future[O]) Wait(ctx context.Context) (O, error) {
	select {
	case <-f.done:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.value, f.err
	case <-ctx.Done():
		var zero O
		return zero, ctx.Err()
	}
}

// OnComplete registers fn to run when the future settles, with the
// final value and error. If the future is already settled, fn runs
// synchronously. Callbacks run in the goroutine that settles the
// future and must not block.
//
// This explicit hook is what lets a derived result cancel its source
// workflow: supervision by parent/child ownership is not an option
// there, since the deriving task awaits the thing that would own it.
func (f *Future[O]) OnComplete(fn func(O, error)) {
	f.mu.Lock()
	if f.settled {
		v, err := f.value, f.err
		f.mu.Unlock()
		fn(v, err)
		return
	}
	f.onDone = append(f.onDone, fn)
	f.mu.Unlock()
}

func (f *Future[O]) settle(v O, err error) bool {
	f.mu.Lock()
	if f.settled {
		f.mu.Unlock()
		return false
	}
	f.settled = true
	f.value = v
	f.err = err
	hooks := f.onDone
	f.onDone = nil
	close(f.done)
	f.mu.Unlock()

	for _, fn := range hooks {
		fn(v, err)
	}
	return true
}
