package relay

import (
	"context"
	"time"

	"github.com/weftflow/weft/pkg/api"
)

type stateSwitcher[S1, S2, E, O any] struct {
	src       api.Workflow[S1, E, O]
	transform func(context.Context, S1) (*api.Subscription[S2], error)
	opts      api.Options
}

// SwitchMapState returns a workflow whose state stream multiplexes the
// sub-streams produced by transform: at any moment the downstream
// reflects the sub-stream built from the most recent upstream state,
// and an older sub-stream is cancelled the instant a newer state
// arrives, discarding its unread values.
//
// The downstream is conflated: a slow consumer observes the latest
// value, not every value. When the upstream completes, the final
// sub-stream is drained to its natural end before the downstream
// completes.
func SwitchMapState[S1, S2, E, O any](
	src api.Workflow[S1, E, O],
	transform func(context.Context, S1) (*api.Subscription[S2], error),
	opts api.Options,
) api.Workflow[S2, E, O] {
	return &stateSwitcher[S1, S2, E, O]{src: src, transform: transform, opts: opts}
}

func (s *stateSwitcher[S1, S2, E, O]) OpenStateSubscription(ctx context.Context) *api.Subscription[S2] {
	up := s.src.OpenStateSubscription(ctx)
	pub, sub := api.NewConflatedPipe[S2]()
	s.opts.Observer.OnSubscriptionOpened(ctx, opSwitchMapState, sub.ID())
	go s.run(ctx, up, pub, sub.ID())
	return sub
}

func (s *stateSwitcher[S1, S2, E, O]) SendEvent(event E) { s.src.SendEvent(event) }

func (s *stateSwitcher[S1, S2, E, O]) Result() *api.Future[O] { return s.src.Result() }

// run is the per-subscription multiplexing loop. It races the upstream
// against the current sub-stream; absent sources are represented by
// nil channels, which never become ready in the select.
//
// The loop ends when the upstream has completed and no live sub-stream
// remains, or when any side fails or cancels.
func (s *stateSwitcher[S1, S2, E, O]) run(ctx context.Context, up *api.Subscription[S1], pub *api.Publisher[S2], subID string) {
	obs := s.opts.Observer
	start := time.Now()

	var cur *api.Subscription[S2]
	upC := up.States()

	finish := func(err error) {
		if cur != nil {
			cur.Cancel()
		}
		up.Cancel()
		pub.Close(err)
		obs.OnSubscriptionClosed(ctx, opSwitchMapState, subID, err, time.Since(start))
	}

	for {
		if upC == nil && cur == nil {
			// Upstream completed and the last sub-stream is drained.
			pub.Close(nil)
			obs.OnSubscriptionClosed(ctx, opSwitchMapState, subID, nil, time.Since(start))
			return
		}

		var curC <-chan S2
		if cur != nil {
			curC = cur.States()
		}

		select {
		case v, ok := <-upC:
			if !ok {
				if err := up.Err(); err != nil {
					finish(err)
					return
				}
				// Normal upstream completion: keep draining the
				// current sub-stream, do not pre-empt it.
				upC = nil
				continue
			}
			// A newer state supersedes the active sub-stream
			// immediately; its buffered values are discarded.
			if cur != nil {
				cur.Cancel()
				cur = nil
			}
			next, err := s.transform(ctx, v)
			if err != nil {
				finish(err)
				return
			}
			cur = next
			obs.OnSubStreamSwitched(ctx, opSwitchMapState, subID)

		case v, ok := <-curC:
			if !ok {
				if err := cur.Err(); err != nil {
					finish(err)
					return
				}
				// Sub-stream finished on its own; wait for the next
				// upstream state without emitting anything.
				cur = nil
				continue
			}
			if err := pub.Publish(ctx, v); err != nil {
				finish(err)
				return
			}
			obs.OnStateRelayed(ctx, opSwitchMapState, subID)

		case <-pub.Cancelled():
			finish(api.NewCanceledError(nil))
			return

		case <-ctx.Done():
			finish(api.NewCanceledError(ctx.Err()))
			return
		}
	}
}
