package weft

import (
	"context"

	"github.com/weftflow/weft/internal/relay"
	"github.com/weftflow/weft/pkg/api"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Workflow[S, E, O any] = api.Workflow[S, E, O]
	Subscription[T any]   = api.Subscription[T]
	Publisher[T any]      = api.Publisher[T]
	Future[O any]         = api.Future[O]

	Observer             = api.Observer
	NoopObserver         = api.NoopObserver
	CompositeObserver    = api.CompositeObserver
	LoggingObserver      = api.LoggingObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot

	Option        = api.Option
	CanceledError = api.CanceledError
)

// Re-export common helpers.

var (
	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
	WithObserver         = api.WithObserver
	NewCanceledError     = api.NewCanceledError
	IsCanceled           = api.IsCanceled
	ErrPipeClosed        = api.ErrPipeClosed
)

// Pipe and future constructors.

// NewPipe creates a FIFO pipe; see api.NewPipe.
func NewPipe[T any](capacity int) (*Publisher[T], *Subscription[T]) {
	return api.NewPipe[T](capacity)
}

// NewConflatedPipe creates a latest-wins pipe; see api.NewConflatedPipe.
func NewConflatedPipe[T any]() (*Publisher[T], *Subscription[T]) {
	return api.NewConflatedPipe[T]()
}

// NewFuture returns an unresolved future.
func NewFuture[O any]() *Future[O] {
	return api.NewFuture[O]()
}

// StreamOf returns a finite stream of the given values, commonly used
// to build SwitchMapState sub-streams.
func StreamOf[T any](values ...T) *Subscription[T] {
	return api.StreamOf(values...)
}

// EmptyStream returns a stream that completes immediately.
func EmptyStream[T any]() *Subscription[T] {
	return api.EmptyStream[T]()
}

// CollectStates drains a subscription into a slice; see
// api.CollectStates.
func CollectStates[T any](ctx context.Context, sub *Subscription[T]) ([]T, error) {
	return api.CollectStates(ctx, sub)
}

// Operators.

// AdaptEvents returns a workflow that accepts events of type E2,
// converting each with adapt before forwarding to w. The conversion is
// synchronous and pure; state stream and result pass through with the
// original subscription-identity semantics.
func AdaptEvents[S, E2, E1, O any](w Workflow[S, E1, O], adapt func(E2) E1) Workflow[S, E2, O] {
	return relay.AdaptEvents(w, adapt)
}

// MapState returns a workflow whose states are transform applied to
// w's states.
//
// Semantics:
//   - Each downstream subscription opens a fresh upstream subscription
//     and runs its own relay, so subscribers are fully independent.
//   - Delivery is 1:1 and FIFO; nothing is dropped or reordered.
//   - The downstream completes when the upstream completes, with the
//     same cause.
//   - A transform error terminates the downstream stream with that
//     error and unsubscribes upstream.
func MapState[S1, S2, E, O any](
	w Workflow[S1, E, O],
	transform func(ctx context.Context, state S1) (S2, error),
	opts ...Option,
) Workflow[S2, E, O] {
	return relay.MapState(w, transform, api.BuildOptions(opts...))
}

// SwitchMapState returns a workflow whose state stream follows the
// sub-stream built from w's most recent state.
//
// Semantics:
//   - Each upstream state invokes transform exactly once; the
//     resulting sub-stream becomes current and the previous one is
//     cancelled immediately, discarding its unread values.
//   - The downstream is conflated: if the consumer is slower than the
//     sub-stream, only the latest value is retained.
//   - If the upstream completes, the final sub-stream is drained to
//     its natural end before the downstream completes. This is the
//     one case where a sub-stream finishes instead of being
//     pre-empted.
//   - Cancelling the downstream subscription cancels the active
//     sub-stream and unsubscribes upstream.
func SwitchMapState[S1, S2, E, O any](
	w Workflow[S1, E, O],
	transform func(ctx context.Context, state S1) (*Subscription[S2], error),
	opts ...Option,
) Workflow[S2, E, O] {
	return relay.SwitchMapState(w, transform, api.BuildOptions(opts...))
}

// MapResult returns a workflow whose result is transform applied to
// w's result, leaving states and events untouched.
//
// The transform runs as an independent task rather than a structural
// child of w, and cancellation is wired both ways: w failing or being
// cancelled settles the derived result with the same cause, and
// cancelling or failing the derived result cancels w's result with the
// same cause. The upward direction is a deliberate exception to
// "downstream never affects upstream" — a result transform has no
// meaning once its source is gone.
func MapResult[S, E, O1, O2 any](
	w Workflow[S, E, O1],
	transform func(ctx context.Context, result O1) (O2, error),
	opts ...Option,
) Workflow[S, E, O2] {
	return relay.MapResult(w, transform, api.BuildOptions(opts...))
}
