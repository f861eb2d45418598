package api

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Subscription is the consumer side of a state pipe. Values are read
// from States; the channel closes when the stream terminates, after
// which Err reports the cause.
//
// A consumer that stops reading before the channel closes must call
// Cancel, otherwise the publishing side may block forever waiting for
// the value to be consumed.
type Subscription[T any] struct {
	id  string
	out chan T

	cancelOnce sync.Once
	cancelled  chan struct{}

	mu  sync.Mutex
	err error
}

// ID returns a unique identifier for this subscription, used by
// observers and tracing to correlate lifecycle callbacks.
func (s *Subscription[T]) ID() string { return s.id }

// States returns the channel of stream values. The channel closes when
// the stream completes, fails, or is cancelled; call Err afterwards to
// distinguish the three.
func (s *Subscription[T]) States() <-chan T { return s.out }

// Cancel terminates the subscription from the consumer side. It is
// idempotent and safe to call from any goroutine. After Cancel the
// States channel closes promptly and Err reports a *CanceledError.
func (s *Subscription[T]) Cancel() {
	s.cancelOnce.Do(func() {
		s.setErr(NewCanceledError(nil))
		close(s.cancelled)
	})
}

// Err returns the stream's termination cause. It is meaningful only
// after the States channel has closed: nil means normal completion,
// a *CanceledError means the subscription was cancelled, anything else
// is the failure the stream terminated with.
func (s *Subscription[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Subscription[T]) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil && err != nil {
		s.err = err
	}
}

// Publisher is the producing side of a state pipe.
//
// Publish and Close are safe to call from multiple goroutines, but a
// pipe has a single logical writer: once Close has been called,
// subsequent Publish calls fail with ErrPipeClosed and the value is
// dropped.
type Publisher[T any] struct {
	sub       *Subscription[T]
	in        chan T
	closed    chan struct{}
	closeOnce sync.Once
}

// Publish delivers one value into the pipe.
//
// On a conflated pipe it returns quickly regardless of consumer speed,
// overwriting any unread value. On a plain pipe it blocks until the
// value is accepted, applying backpressure from the consumer.
//
// It fails with ErrPipeClosed after Close, with a *CanceledError after
// the consumer cancelled, or with ctx.Err if ctx ends first.
func (p *Publisher[T]) Publish(ctx context.Context, v T) error {
	select {
	case p.in <- v:
		return nil
	case <-p.closed:
		return ErrPipeClosed
	case <-p.sub.cancelled:
		return p.sub.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close terminates the pipe with the given cause; nil means normal
// completion. Values already accepted by Publish are still delivered
// (a conflated pipe flushes its pending value) before the consumer's
// channel closes. Close is idempotent; the first cause wins.
func (p *Publisher[T]) Close(err error) {
	p.closeOnce.Do(func() {
		p.sub.setErr(err)
		close(p.closed)
	})
}

// Cancelled returns a channel that is closed once the consumer cancels
// the subscription. Relay loops select on it so a departed consumer
// tears the pipeline down promptly.
func (p *Publisher[T]) Cancelled() <-chan struct{} {
	return p.sub.cancelled
}

// NewPipe creates a FIFO pipe with the given delivery buffer capacity.
// Every published value is delivered exactly once, in order; when the
// buffer is full, Publish blocks until the consumer catches up.
func NewPipe[T any](capacity int) (*Publisher[T], *Subscription[T]) {
	if capacity < 0 {
		capacity = 0
	}
	p, s := newPipe[T](capacity)
	go fifoLoop(p, s)
	return p, s
}

// NewConflatedPipe creates a pipe with a single-slot overwritable
// mailbox: the writer never blocks and an unread value is silently
// superseded by a newer one. The reader always observes the most
// recent value, which models latest-state-wins observation.
func NewConflatedPipe[T any]() (*Publisher[T], *Subscription[T]) {
	p, s := newPipe[T](0)
	go conflateLoop(p, s)
	return p, s
}

func newPipe[T any](capacity int) (*Publisher[T], *Subscription[T]) {
	s := &Subscription[T]{
		id:        uuid.New().String(),
		out:       make(chan T, capacity),
		cancelled: make(chan struct{}),
	}
	p := &Publisher[T]{
		sub:    s,
		in:     make(chan T),
		closed: make(chan struct{}),
	}
	return p, s
}

// fifoLoop forwards values one at a time, blocking on the consumer.
// A value handed over by Publish is always delivered, even if Close
// races with the delivery; only consumer cancellation discards it.
func fifoLoop[T any](p *Publisher[T], s *Subscription[T]) {
	for {
		select {
		case v := <-p.in:
			select {
			case s.out <- v:
			case <-s.cancelled:
				close(s.out)
				return
			}
		case <-p.closed:
			close(s.out)
			return
		case <-s.cancelled:
			close(s.out)
			return
		}
	}
}

// conflateLoop keeps at most one pending value. The send case uses the
// nil-channel idiom: with nothing pending, outC is nil and the case is
// never ready.
func conflateLoop[T any](p *Publisher[T], s *Subscription[T]) {
	var (
		cur  T
		have bool
	)
	for {
		var outC chan T
		if have {
			outC = s.out
		}
		select {
		case v := <-p.in:
			cur, have = v, true
		case outC <- cur:
			have = false
		case <-p.closed:
			if have {
				select {
				case s.out <- cur:
				case <-s.cancelled:
				}
			}
			close(s.out)
			return
		case <-s.cancelled:
			close(s.out)
			return
		}
	}
}

// StreamOf returns a subscription that delivers the given values in
// order and then completes. It is the common way to build sub-streams
// for SwitchMapState transforms and test fixtures.
func StreamOf[T any](values ...T) *Subscription[T] {
	pub, sub := NewPipe[T](len(values))
	go func() {
		for _, v := range values {
			if err := pub.Publish(context.Background(), v); err != nil {
				return
			}
		}
		pub.Close(nil)
	}()
	return sub
}

// EmptyStream returns a subscription that completes immediately
// without delivering any value.
func EmptyStream[T any]() *Subscription[T] {
	pub, sub := NewPipe[T](0)
	pub.Close(nil)
	return sub
}

// FailedStream returns a subscription that terminates immediately with
// the given error.
func FailedStream[T any](err error) *Subscription[T] {
	pub, sub := NewPipe[T](0)
	pub.Close(err)
	return sub
}

// CollectStates drains a subscription into a slice. It returns the
// values read so far together with the stream's termination cause, or
// ctx.Err if the context ends first (in which case the subscription is
// cancelled on the way out).
func CollectStates[T any](ctx context.Context, sub *Subscription[T]) ([]T, error) {
	var out []T
	for {
		select {
		case v, ok := <-sub.States():
			if !ok {
				return out, sub.Err()
			}
			out = append(out, v)
		case <-ctx.Done():
			sub.Cancel()
			return out, ctx.Err()
		}
	}
}
