// Package weft provides combinator operators over a Workflow
// abstraction for Go.
//
// A Workflow is a unit of running state with three capabilities: a
// continuously updated stream of state values, a sink for external
// events, and a single terminal result. Weft lets you reshape any of
// the three without touching the underlying workflow, so UI layers and
// orchestrating code can work against the state, event, and result
// types they actually want.
//
// # Core Concepts
//
// The programming model is intentionally small:
//
//  1. Workflow
//  2. Subscription / Publisher
//  3. Future
//  4. Operators
//  5. LocalWorkflow
//
// # Workflow
//
// Workflow[S, E, O] is an interface, not a base type. Anything that
// can expose a state stream, accept events, and settle a result can be
// composed with the operators. Every operator returns a new Workflow
// value wrapping the original; the original stays independently usable
// and both views share one lifecycle.
//
// # Subscription and Publisher
//
// State streams are delivered through pipes. Each call to
// OpenStateSubscription returns a fresh, independently cancellable
// Subscription whose channel closes when the workflow completes, with
// the termination cause available from Err. Pipes come in two
// flavours:
//
//   - FIFO (NewPipe): every value delivered exactly once, in order,
//     with backpressure on the writer.
//   - Conflated (NewConflatedPipe): a single-slot mailbox where the
//     writer never blocks and an unread value is overwritten by a
//     newer one. This is the latest-state-wins buffering used for
//     UI-style observation.
//
// # Future
//
// Future[O] settles exactly once, with a value, a failure, or a
// cancellation. OnComplete hooks make cross-workflow cancellation
// wiring explicit.
//
// # Operators
//
//   - AdaptEvents changes the event type with a pure conversion.
//   - MapState transforms every state value, one output per input.
//   - SwitchMapState maps each state to a sub-stream and multiplexes
//     the most recent sub-stream downstream, cancelling stale ones.
//   - MapResult transforms the terminal result, with bidirectional
//     cancellation between the derived and the source result.
//
// Example:
//
//	display := weft.MapState(wf, func(ctx context.Context, s OrderState) (string, error) {
//	    return s.Summary(), nil
//	})
//
//	sub := display.OpenStateSubscription(ctx)
//	for text := range sub.States() {
//	    render(text)
//	}
//
// # LocalWorkflow
//
// StartLocal runs a plain function as a Workflow in the current
// process: the function emits states through a handle, reads events
// from a channel, and its return value settles the result. It is the
// quickest way to get a real Workflow for development and tests, and
// is intentionally not durable.
//
// # Observability
//
// Operators accept WithObserver to receive lifecycle callbacks.
// LoggingObserver logs them via log/slog, BasicMetrics counts them,
// and the tracing subpackage bridges them to OpenTelemetry spans.
//
// For examples, see the package examples and the project README.
package weft
