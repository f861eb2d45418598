package weft

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestComposedPipelineEndToEnd drives a LocalWorkflow through
// AdaptEvents and MapState at once: the familiar "view model" shape
// where the UI has its own event and state types.
func TestComposedPipelineEndToEnd(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	metrics := &BasicMetrics{}

	wf := StartLocal(ctx, counter)

	type click struct{ Times int }
	display := MapState(
		AdaptEvents(wf, func(c click) string {
			if c.Times == 0 {
				return "stop"
			}
			return "inc"
		}),
		func(ctx context.Context, n int) (string, error) {
			return "count=" + strconv.Itoa(n), nil
		},
		WithObserver(metrics),
	)

	sub := display.OpenStateSubscription(ctx)
	require.Equal(t, "count=0", recvState(t, sub.States()))

	display.SendEvent(click{Times: 1})
	require.Equal(t, "count=1", recvState(t, sub.States()))

	display.SendEvent(click{Times: 0})
	out, err := display.Result().Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, "stopped", out)

	rest, err := CollectStates(ctx, sub)
	require.NoError(t, err)
	require.Empty(t, rest)

	snap := metrics.Snapshot()
	require.Equal(t, int64(1), snap.SubscriptionsOpened)
	require.Equal(t, int64(2), snap.StatesRelayed)
	require.Eventually(t, func() bool {
		return metrics.Snapshot().SubscriptionsClosed == 1
	}, testTimeout, 5*time.Millisecond)
}

// TestSwitchMapStateEndToEnd exercises the switch-multiplexer over a
// real LocalWorkflow, including the drain-then-complete path when the
// workflow finishes.
func TestSwitchMapStateEndToEnd(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	wf := StartLocal(ctx, func(ctx context.Context, h *Handle[string, string]) (string, error) {
		h.SetState("a")
		<-h.Events()
		return "done", nil
	})

	sw := SwitchMapState(wf, func(ctx context.Context, s string) (*Subscription[string], error) {
		return StreamOf(s + "!"), nil
	})

	sub := sw.OpenStateSubscription(ctx)
	require.Equal(t, "a!", recvState(t, sub.States()))

	sw.SendEvent("finish")
	out, err := sw.Result().Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, "done", out)

	rest, err := CollectStates(ctx, sub)
	require.NoError(t, err)
	require.Empty(t, rest)
}

// TestMapResultCancellationReachesRunFunction verifies cancellation
// all the way through: cancelling the derived result cancels the
// source result, which stops the LocalWorkflow's run function.
func TestMapResultCancellationReachesRunFunction(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cause := errors.New("view dismissed")
	stopped := make(chan struct{})

	wf := StartLocal(ctx, func(ctx context.Context, h *Handle[int, string]) (string, error) {
		h.SetState(0)
		<-ctx.Done()
		close(stopped)
		return "", ctx.Err()
	})

	derived := MapResult(wf, func(ctx context.Context, s string) (int, error) {
		return len(s), nil
	})

	derived.Result().Cancel(cause)

	select {
	case <-stopped:
	case <-time.After(testTimeout):
		t.Fatal("run function was not stopped by derived-result cancellation")
	}

	_, err := wf.Result().Wait(ctx)
	require.True(t, IsCanceled(err))
	require.ErrorIs(t, err, cause)
}

// TestMapResultEndToEnd checks the value path over a LocalWorkflow.
func TestMapResultEndToEnd(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	wf := StartLocal(ctx, func(ctx context.Context, h *Handle[int, string]) (string, error) {
		return "weft", nil
	})

	derived := MapResult(wf, func(ctx context.Context, s string) (int, error) {
		return len(s), nil
	})

	n, err := derived.Result().Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, 4, n)
}
