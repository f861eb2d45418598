package weft

import (
	"context"
	"sync"
	"time"

	"github.com/weftflow/weft/pkg/api"
)

const opLocal = "local"

// defaultEventBuffer is the capacity of a LocalWorkflow's event sink.
// SendEvent blocks once the buffer is full and the run function is not
// consuming, so the buffer only smooths bursts.
const defaultEventBuffer = 64

// RunFunc is the body of a LocalWorkflow. It emits states through the
// handle, reads events from handle.Events, and its return value
// settles the workflow's result. When ctx is cancelled the function
// should return promptly, typically with ctx.Err().
type RunFunc[S, E, O any] func(ctx context.Context, h *Handle[S, E]) (O, error)

// Handle is the private side of a LocalWorkflow, passed to its
// RunFunc.
type Handle[S, E any] struct {
	setState func(S)
	events   <-chan E
}

// SetState publishes a new current state to every subscriber. The
// newest state always wins: subscribers observe the latest value, not
// necessarily every value.
func (h *Handle[S, E]) SetState(state S) { h.setState(state) }

// Events returns the channel of events delivered via SendEvent.
func (h *Handle[S, E]) Events() <-chan E { return h.events }

// LocalWorkflow runs a RunFunc as a Workflow in the current process.
//
// It bundles the state publisher, event sink, and result future into
// one lifecycle: the run function returning settles the result, and
// settling the result from outside (Result().Cancel) cancels the run
// function's context. Either way every state subscription terminates
// with the same cause.
//
// LocalWorkflow is intentionally not crash-durable. It is meant for
// development, tests, and single-process use.
type LocalWorkflow[S, E, O any] struct {
	result *api.Future[O]
	events chan E
	cancel context.CancelFunc
	obs    Observer

	done chan struct{}

	mu       sync.Mutex
	finished bool
	cause    error
	subs     map[string]*api.Publisher[S]
	latest   S
	hasState bool
}

// StartLocal starts run in its own goroutine and returns the workflow
// wrapping it.
func StartLocal[S, E, O any](ctx context.Context, run RunFunc[S, E, O], opts ...Option) *LocalWorkflow[S, E, O] {
	o := api.BuildOptions(opts...)
	ctx, cancel := context.WithCancel(ctx)

	w := &LocalWorkflow[S, E, O]{
		result: api.NewFuture[O](),
		events: make(chan E, defaultEventBuffer),
		cancel: cancel,
		obs:    o.Observer,
		done:   make(chan struct{}),
		subs:   make(map[string]*api.Publisher[S]),
	}

	// External settlement of the result (Result().Cancel) must stop
	// the run function; the shared-lifecycle teardown then happens in
	// the run goroutine below.
	w.result.OnComplete(func(_ O, _ error) { cancel() })

	h := &Handle[S, E]{setState: w.setState, events: w.events}

	go func() {
		out, err := run(ctx, h)
		if err != nil {
			w.result.Fail(err)
		} else {
			w.result.Resolve(out)
		}
		w.finish(ctx)
	}()

	return w
}

// OpenStateSubscription implements Workflow. Each subscriber gets its
// own conflated pipe; a subscriber that joins late first observes the
// latest state, then follows updates. Subscribing after completion
// yields the final state (if any) and immediate termination with the
// workflow's cause.
func (w *LocalWorkflow[S, E, O]) OpenStateSubscription(ctx context.Context) *api.Subscription[S] {
	pub, sub := api.NewConflatedPipe[S]()

	w.mu.Lock()
	if w.finished {
		hasState, latest, cause := w.hasState, w.latest, w.cause
		w.mu.Unlock()
		if hasState {
			_ = pub.Publish(ctx, latest)
		}
		pub.Close(cause)
		w.obs.OnSubscriptionOpened(ctx, opLocal, sub.ID())
		w.obs.OnSubscriptionClosed(ctx, opLocal, sub.ID(), cause, 0)
		return sub
	}
	w.subs[sub.ID()] = pub
	// The replay must happen under w.mu: a setState racing with this
	// registration would otherwise deliver the newer state first and
	// have the stale replay overwrite it in the conflated slot.
	if w.hasState {
		_ = pub.Publish(ctx, w.latest)
	}
	w.mu.Unlock()

	w.obs.OnSubscriptionOpened(ctx, opLocal, sub.ID())

	start := time.Now()
	go func() {
		select {
		case <-pub.Cancelled():
			w.mu.Lock()
			delete(w.subs, sub.ID())
			w.mu.Unlock()
		case <-ctx.Done():
			sub.Cancel()
			w.mu.Lock()
			delete(w.subs, sub.ID())
			w.mu.Unlock()
		case <-w.done:
		}
		w.obs.OnSubscriptionClosed(ctx, opLocal, sub.ID(), sub.Err(), time.Since(start))
	}()

	return sub
}

// SendEvent implements Workflow. It blocks only while the event buffer
// is full; events sent after completion are discarded.
func (w *LocalWorkflow[S, E, O]) SendEvent(event E) {
	select {
	case w.events <- event:
	case <-w.done:
	}
}

// Result implements Workflow.
func (w *LocalWorkflow[S, E, O]) Result() *api.Future[O] { return w.result }

func (w *LocalWorkflow[S, E, O]) setState(state S) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.finished {
		return
	}
	w.latest = state
	w.hasState = true
	// Publishing under w.mu keeps every pipe's publish order identical
	// to the state order. Conflated pipes accept without blocking, so
	// the lock is never held across a waiting send.
	for _, p := range w.subs {
		_ = p.Publish(context.Background(), state)
	}
}

// finish tears the workflow down once the run function has returned:
// all subscriptions close with the result's cause and late events are
// discarded.
func (w *LocalWorkflow[S, E, O]) finish(ctx context.Context) {
	cause := w.result.Err()

	w.mu.Lock()
	if w.finished {
		w.mu.Unlock()
		return
	}
	w.finished = true
	w.cause = cause
	pubs := w.subs
	w.subs = nil
	w.mu.Unlock()

	for _, p := range pubs {
		p.Close(cause)
	}
	close(w.done)
	w.cancel()
	w.obs.OnResultResolved(ctx, opLocal, cause)
}
