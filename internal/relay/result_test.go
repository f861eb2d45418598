package relay

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/weftflow/weft/pkg/api"
)

// TestMapResultTransformsValue verifies the happy path: the derived
// result is transform applied to the source result.
func TestMapResultTransformsValue(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	src := newFakeWorkflow[int, string, int](1)

	wf := MapResult(src, func(ctx context.Context, n int) (string, error) {
		return strconv.Itoa(n * 2), nil
	}, api.BuildOptions())

	src.Result().Resolve(21)

	got, err := wf.Result().Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, "42", got)
}

// TestMapResultSourceFailurePropagates verifies that a failed source
// result fails the derived result with the same error, without calling
// the transform.
func TestMapResultSourceFailurePropagates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	boom := errors.New("boom")
	src := newFakeWorkflow[int, string, int](1)

	transformCalled := false
	wf := MapResult(src, func(ctx context.Context, n int) (string, error) {
		transformCalled = true
		return "", nil
	}, api.BuildOptions())

	src.Result().Fail(boom)

	_, err := wf.Result().Wait(ctx)
	require.ErrorIs(t, err, boom)
	require.False(t, transformCalled)
}

// TestMapResultTransformError verifies that a failing transform fails
// the derived result with the transform's error.
func TestMapResultTransformError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	boom := errors.New("transform boom")
	src := newFakeWorkflow[int, string, int](1)

	wf := MapResult(src, func(ctx context.Context, n int) (string, error) {
		return "", boom
	}, api.BuildOptions())

	src.Result().Resolve(7)

	_, err := wf.Result().Wait(ctx)
	require.ErrorIs(t, err, boom)
}

// TestMapResultDerivedCancelCancelsSource verifies that cancelling the
// derived result cancels the source workflow's result with the same
// cause. This is the deliberate exception to "downstream never affects
// upstream".
func TestMapResultDerivedCancelCancelsSource(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cause := errors.New("user navigated away")
	src := newFakeWorkflow[int, string, int](1)

	wf := MapResult(src, func(ctx context.Context, n int) (string, error) {
		return "", nil
	}, api.BuildOptions())

	wf.Result().Cancel(cause)

	waitClosed(t, src.Result().Done())
	_, err := src.Result().Wait(ctx)
	require.True(t, api.IsCanceled(err))
	require.ErrorIs(t, err, cause)
}

// TestMapResultPassThrough verifies that the state stream and event
// sink are untouched by the result transform.
func TestMapResultPassThrough(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	src := newFakeWorkflow[int, string, int](1, 2)

	wf := MapResult(src, func(ctx context.Context, n int) (string, error) {
		return "", nil
	}, api.BuildOptions())

	wf.SendEvent("ping")
	require.Equal(t, []string{"ping"}, src.sentEvents())

	got, err := api.CollectStates(ctx, wf.OpenStateSubscription(ctx))
	require.NoError(t, err)
	require.Equal(t, []int{1, 2}, got)
}
