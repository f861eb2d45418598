package api

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Observer receives callbacks from the workflow operators for logging
// and metrics.
//
// Implementations should be fast and non-blocking; they run inline in
// the relay loops, so heavy work should be done asynchronously.
type Observer interface {
	// OnSubscriptionOpened is called when an operator opens a new
	// downstream subscription. op names the operator ("mapState",
	// "switchMapState", ...); subID identifies the subscription.
	OnSubscriptionOpened(ctx context.Context, op, subID string)

	// OnStateRelayed is called each time a value is forwarded
	// downstream on the given subscription.
	OnStateRelayed(ctx context.Context, op, subID string)

	// OnSubStreamSwitched is called by the switch-multiplexer when a
	// new upstream state replaces the active sub-stream.
	OnSubStreamSwitched(ctx context.Context, op, subID string)

	// OnSubscriptionClosed is called once when a downstream
	// subscription terminates, for normal completion, failure, and
	// cancellation alike (err != nil for the latter two).
	OnSubscriptionClosed(ctx context.Context, op, subID string, err error, duration time.Duration)

	// OnResultResolved is called when an operator's result future
	// settles (err != nil on failure or cancellation).
	OnResultResolved(ctx context.Context, op string, err error)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnSubscriptionOpened(ctx context.Context, op, subID string) {}
func (NoopObserver) OnStateRelayed(ctx context.Context, op, subID string)       {}
func (NoopObserver) OnSubStreamSwitched(ctx context.Context, op, subID string)  {}
func (NoopObserver) OnSubscriptionClosed(ctx context.Context, op, subID string, err error, d time.Duration) {
}
func (NoopObserver) OnResultResolved(ctx context.Context, op string, err error) {}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to
// each non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnSubscriptionOpened(ctx context.Context, op, subID string) {
	for _, o := range c.observers {
		o.OnSubscriptionOpened(ctx, op, subID)
	}
}

func (c *CompositeObserver) OnStateRelayed(ctx context.Context, op, subID string) {
	for _, o := range c.observers {
		o.OnStateRelayed(ctx, op, subID)
	}
}

func (c *CompositeObserver) OnSubStreamSwitched(ctx context.Context, op, subID string) {
	for _, o := range c.observers {
		o.OnSubStreamSwitched(ctx, op, subID)
	}
}

func (c *CompositeObserver) OnSubscriptionClosed(ctx context.Context, op, subID string, err error, d time.Duration) {
	for _, o := range c.observers {
		o.OnSubscriptionClosed(ctx, op, subID, err, d)
	}
}

func (c *CompositeObserver) OnResultResolved(ctx context.Context, op string, err error) {
	for _, o := range c.observers {
		o.OnResultResolved(ctx, op, err)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs subscription and
// result lifecycle events using the provided slog.Logger. If logger is
// nil, slog.Default() is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnSubscriptionOpened(ctx context.Context, op, subID string) {
	o.Logger.DebugContext(ctx, "subscription_opened",
		slog.String("operator", op),
		slog.String("subscription_id", subID),
	)
}

func (o *LoggingObserver) OnStateRelayed(ctx context.Context, op, subID string) {
	o.Logger.DebugContext(ctx, "state_relayed",
		slog.String("operator", op),
		slog.String("subscription_id", subID),
	)
}

func (o *LoggingObserver) OnSubStreamSwitched(ctx context.Context, op, subID string) {
	o.Logger.DebugContext(ctx, "substream_switched",
		slog.String("operator", op),
		slog.String("subscription_id", subID),
	)
}

func (o *LoggingObserver) OnSubscriptionClosed(ctx context.Context, op, subID string, err error, d time.Duration) {
	level := slog.LevelDebug
	if err != nil && !IsCanceled(err) {
		level = slog.LevelError
	}
	o.Logger.Log(ctx, level, "subscription_closed",
		slog.String("operator", op),
		slog.String("subscription_id", subID),
		slog.Duration("duration", d),
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnResultResolved(ctx context.Context, op string, err error) {
	if err != nil {
		o.Logger.ErrorContext(ctx, "result_failed",
			slog.String("operator", op),
			slog.Any("error", err),
		)
		return
	}
	o.Logger.InfoContext(ctx, "result_resolved",
		slog.String("operator", op),
	)
}

// BasicMetrics collects simple counters and aggregate subscription
// durations. It implements Observer, and can be combined with
// LoggingObserver via NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	subscriptionsOpened atomic.Int64
	subscriptionsClosed atomic.Int64
	statesRelayed       atomic.Int64
	subStreamSwitches   atomic.Int64
	resultsResolved     atomic.Int64
	resultsFailed       atomic.Int64
	totalSubDuration    atomic.Int64 // nanoseconds
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	SubscriptionsOpened int64
	SubscriptionsClosed int64
	ActiveSubscriptions int64
	StatesRelayed       int64
	SubStreamSwitches   int64
	ResultsResolved     int64
	ResultsFailed       int64
	AvgSubscriptionAge  time.Duration
}

func (m *BasicMetrics) OnSubscriptionOpened(ctx context.Context, op, subID string) {
	m.subscriptionsOpened.Add(1)
}

func (m *BasicMetrics) OnStateRelayed(ctx context.Context, op, subID string) {
	m.statesRelayed.Add(1)
}

func (m *BasicMetrics) OnSubStreamSwitched(ctx context.Context, op, subID string) {
	m.subStreamSwitches.Add(1)
}

func (m *BasicMetrics) OnSubscriptionClosed(ctx context.Context, op, subID string, err error, d time.Duration) {
	m.subscriptionsClosed.Add(1)
	m.totalSubDuration.Add(d.Nanoseconds())
}

func (m *BasicMetrics) OnResultResolved(ctx context.Context, op string, err error) {
	if err != nil {
		m.resultsFailed.Add(1)
		return
	}
	m.resultsResolved.Add(1)
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	opened := m.subscriptionsOpened.Load()
	closed := m.subscriptionsClosed.Load()
	totalNs := m.totalSubDuration.Load()

	var avg time.Duration
	if closed > 0 {
		avg = time.Duration(totalNs / closed)
	}

	return BasicMetricsSnapshot{
		SubscriptionsOpened: opened,
		SubscriptionsClosed: closed,
		ActiveSubscriptions: opened - closed,
		StatesRelayed:       m.statesRelayed.Load(),
		SubStreamSwitches:   m.subStreamSwitches.Load(),
		ResultsResolved:     m.resultsResolved.Load(),
		ResultsFailed:       m.resultsFailed.Load(),
		AvgSubscriptionAge:  avg,
	}
}
