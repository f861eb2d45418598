package api

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCompositeObserverFiltersNil(t *testing.T) {
	t.Parallel()

	require.IsType(t, NoopObserver{}, NewCompositeObserver())
	require.IsType(t, NoopObserver{}, NewCompositeObserver(nil, nil))

	m := &BasicMetrics{}
	require.Equal(t, m, NewCompositeObserver(nil, m), "a single observer is returned unwrapped")
}

func TestCompositeObserverFansOut(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	a := &BasicMetrics{}
	b := &BasicMetrics{}
	obs := NewCompositeObserver(a, b)

	obs.OnSubscriptionOpened(ctx, "mapState", "sub-1")
	obs.OnStateRelayed(ctx, "mapState", "sub-1")
	obs.OnSubscriptionClosed(ctx, "mapState", "sub-1", nil, time.Millisecond)

	for _, m := range []*BasicMetrics{a, b} {
		snap := m.Snapshot()
		require.Equal(t, int64(1), snap.SubscriptionsOpened)
		require.Equal(t, int64(1), snap.StatesRelayed)
		require.Equal(t, int64(1), snap.SubscriptionsClosed)
	}
}

func TestBasicMetricsSnapshot(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := &BasicMetrics{}

	m.OnSubscriptionOpened(ctx, "switchMapState", "s1")
	m.OnSubscriptionOpened(ctx, "switchMapState", "s2")
	m.OnSubStreamSwitched(ctx, "switchMapState", "s1")
	m.OnStateRelayed(ctx, "switchMapState", "s1")
	m.OnStateRelayed(ctx, "switchMapState", "s1")
	m.OnSubscriptionClosed(ctx, "switchMapState", "s1", nil, 10*time.Millisecond)
	m.OnResultResolved(ctx, "mapResult", nil)
	m.OnResultResolved(ctx, "mapResult", errors.New("boom"))

	snap := m.Snapshot()
	require.Equal(t, int64(2), snap.SubscriptionsOpened)
	require.Equal(t, int64(1), snap.SubscriptionsClosed)
	require.Equal(t, int64(1), snap.ActiveSubscriptions)
	require.Equal(t, int64(2), snap.StatesRelayed)
	require.Equal(t, int64(1), snap.SubStreamSwitches)
	require.Equal(t, int64(1), snap.ResultsResolved)
	require.Equal(t, int64(1), snap.ResultsFailed)
	require.Equal(t, 10*time.Millisecond, snap.AvgSubscriptionAge)
}

func TestLoggingObserverWritesStructuredRecords(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	obs := NewLoggingObserver(logger)

	obs.OnSubscriptionOpened(ctx, "mapState", "sub-1")
	obs.OnSubscriptionClosed(ctx, "mapState", "sub-1", errors.New("boom"), time.Millisecond)
	obs.OnResultResolved(ctx, "mapResult", nil)

	out := buf.String()
	for _, want := range []string{"subscription_opened", "subscription_closed", "result_resolved", "sub-1", "boom"} {
		if !strings.Contains(out, want) {
			t.Fatalf("log output missing %q:\n%s", want, out)
		}
	}
}

// TestLoggingObserverCancelIsNotAnError pins the log level choice:
// a cancelled subscription is routine and must not log at error level.
func TestLoggingObserverCancelIsNotAnError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	obs := NewLoggingObserver(logger)

	obs.OnSubscriptionClosed(ctx, "mapState", "sub-1", NewCanceledError(nil), time.Millisecond)

	require.Contains(t, buf.String(), "level=DEBUG")
}
