package api

import "context"

// Workflow is the capability set exposed by a running workflow: an
// ongoing stream of state values, a sink for external events, and a
// single terminal result.
//
// The three capabilities share one lifecycle. When the workflow
// completes (normally, with an error, or through cancellation) its
// state subscriptions terminate with the same cause and its result
// future resolves exactly once.
//
// Implementations must allow any number of concurrent subscribers and
// must accept events from any goroutine.
type Workflow[S, E, O any] interface {
	// OpenStateSubscription opens a new, independent subscription to
	// the workflow's state stream. Each call returns a fresh
	// Subscription; cancelling one subscription never affects another.
	//
	// The returned stream is finite: it completes when the workflow
	// itself completes. After the channel closes, Subscription.Err
	// reports the termination cause (nil for normal completion).
	OpenStateSubscription(ctx context.Context) *Subscription[S]

	// SendEvent delivers an event to the workflow's event sink.
	// It is fire-and-forget: there is no acknowledgement and no
	// backpressure contract beyond "accepted". Events sent after the
	// workflow has completed are discarded.
	SendEvent(event E)

	// Result returns the future holding the workflow's terminal value.
	// The same future is returned on every call.
	Result() *Future[O]
}
