// Package relay implements the workflow combinator operators: the
// event contramap, the state relay, the switch-multiplexer, and the
// result transform. Each operator returns a wrapper that explicitly
// implements the full Workflow capability set, calling through to the
// wrapped workflow except where it transforms.
package relay

import (
	"context"
	"time"

	"github.com/weftflow/weft/pkg/api"
)

// Operator names reported to observers.
const (
	opAdaptEvents    = "adaptEvents"
	opMapState       = "mapState"
	opSwitchMapState = "switchMapState"
	opMapResult      = "mapResult"
)

type stateRelay[S1, S2, E, O any] struct {
	src       api.Workflow[S1, E, O]
	transform func(context.Context, S1) (S2, error)
	opts      api.Options
}

// MapState returns a workflow whose state stream carries
// transform(state) for every state of src, one output per input, in
// order. Each downstream subscription opens its own fresh upstream
// subscription, so concurrent subscribers run independent pipelines.
func MapState[S1, S2, E, O any](
	src api.Workflow[S1, E, O],
	transform func(context.Context, S1) (S2, error),
	opts api.Options,
) api.Workflow[S2, E, O] {
	return &stateRelay[S1, S2, E, O]{src: src, transform: transform, opts: opts}
}

func (r *stateRelay[S1, S2, E, O]) OpenStateSubscription(ctx context.Context) *api.Subscription[S2] {
	up := r.src.OpenStateSubscription(ctx)
	pub, sub := api.NewPipe[S2](0)
	r.opts.Observer.OnSubscriptionOpened(ctx, opMapState, sub.ID())
	go r.run(ctx, up, pub, sub.ID())
	return sub
}

func (r *stateRelay[S1, S2, E, O]) SendEvent(event E) { r.src.SendEvent(event) }

func (r *stateRelay[S1, S2, E, O]) Result() *api.Future[O] { return r.src.Result() }

// run is the per-subscription relay loop: one upstream value in, one
// transformed value out, FIFO, until the upstream completes or either
// side fails or cancels.
func (r *stateRelay[S1, S2, E, O]) run(ctx context.Context, up *api.Subscription[S1], pub *api.Publisher[S2], subID string) {
	obs := r.opts.Observer
	start := time.Now()

	finish := func(err error) {
		up.Cancel()
		pub.Close(err)
		obs.OnSubscriptionClosed(ctx, opMapState, subID, err, time.Since(start))
	}

	for {
		select {
		case v, ok := <-up.States():
			if !ok {
				err := up.Err()
				pub.Close(err)
				obs.OnSubscriptionClosed(ctx, opMapState, subID, err, time.Since(start))
				return
			}
			out, err := r.transform(ctx, v)
			if err != nil {
				finish(err)
				return
			}
			if err := pub.Publish(ctx, out); err != nil {
				finish(err)
				return
			}
			obs.OnStateRelayed(ctx, opMapState, subID)
		case <-pub.Cancelled():
			finish(api.NewCanceledError(nil))
			return
		case <-ctx.Done():
			finish(api.NewCanceledError(ctx.Err()))
			return
		}
	}
}

type eventAdapter[S, E2, E1, O any] struct {
	src   api.Workflow[S, E1, O]
	adapt func(E2) E1
}

// AdaptEvents returns a workflow identical to src except that it
// accepts events of type E2, converting each one with adapt before
// forwarding. The conversion runs synchronously in SendEvent, so a
// panicking adapt surfaces to the SendEvent caller. State stream and
// result pass through untouched.
func AdaptEvents[S, E2, E1, O any](
	src api.Workflow[S, E1, O],
	adapt func(E2) E1,
) api.Workflow[S, E2, O] {
	return &eventAdapter[S, E2, E1, O]{src: src, adapt: adapt}
}

func (a *eventAdapter[S, E2, E1, O]) OpenStateSubscription(ctx context.Context) *api.Subscription[S] {
	return a.src.OpenStateSubscription(ctx)
}

func (a *eventAdapter[S, E2, E1, O]) SendEvent(event E2) {
	a.src.SendEvent(a.adapt(event))
}

func (a *eventAdapter[S, E2, E1, O]) Result() *api.Future[O] { return a.src.Result() }
