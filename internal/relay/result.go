package relay

import (
	"context"

	"github.com/weftflow/weft/pkg/api"
)

type resultMapper[S, E, O1, O2 any] struct {
	src     api.Workflow[S, E, O1]
	derived *api.Future[O2]
}

// MapResult returns a workflow whose result is transform applied to
// src's result. State stream and event sink pass through unchanged.
//
// The transform runs in its own goroutine, deliberately not parented
// to the source workflow's lifecycle: a structural child would
// deadlock, since the source would then wait on a task that itself
// waits on the source's result. Cancellation is wired explicitly
// instead: settling the derived future with a failure or cancellation
// cancels the source's result with the same cause. The reverse
// direction needs no wiring, because the transform task awaits the
// source.
func MapResult[S, E, O1, O2 any](
	src api.Workflow[S, E, O1],
	transform func(context.Context, O1) (O2, error),
	opts api.Options,
) api.Workflow[S, E, O2] {
	obs := opts.Observer
	m := &resultMapper[S, E, O1, O2]{src: src, derived: api.NewFuture[O2]()}

	ctx, cancel := context.WithCancel(context.Background())
	m.derived.OnComplete(func(_ O2, err error) {
		cancel()
		if err != nil {
			src.Result().Cancel(err)
		}
		obs.OnResultResolved(context.Background(), opMapResult, err)
	})

	go func() {
		v, err := src.Result().Wait(ctx)
		if err != nil {
			// Either the source failed, or the derived future settled
			// first and aborted the wait; settling is a no-op then.
			m.derived.Fail(err)
			return
		}
		out, err := transform(ctx, v)
		if err != nil {
			m.derived.Fail(err)
			return
		}
		m.derived.Resolve(out)
	}()

	return m
}

func (m *resultMapper[S, E, O1, O2]) OpenStateSubscription(ctx context.Context) *api.Subscription[S] {
	return m.src.OpenStateSubscription(ctx)
}

func (m *resultMapper[S, E, O1, O2]) SendEvent(event E) { m.src.SendEvent(event) }

func (m *resultMapper[S, E, O1, O2]) Result() *api.Future[O2] { return m.derived }
