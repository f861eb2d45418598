package tracing

import (
	"context"
	"sync"
	"time"

	"github.com/weftflow/weft/pkg/api"
)

// Observer bridges operator lifecycle callbacks to OpenTelemetry
// spans: one span per downstream subscription, open from
// OnSubscriptionOpened to OnSubscriptionClosed, with sub-stream
// switches recorded as span events.
//
// Attach it with weft.WithObserver:
//
//	wf := weft.SwitchMapState(src, transform,
//	    weft.WithObserver(tracing.NewObserver()))
type Observer struct {
	mu    sync.Mutex
	spans map[string]*Span
}

var _ api.Observer = (*Observer)(nil)

// NewObserver returns an Observer using the global tracer provider.
// Call Init or InitWithExporter first, otherwise spans are no-ops.
func NewObserver() *Observer {
	return &Observer{spans: make(map[string]*Span)}
}

func (o *Observer) OnSubscriptionOpened(ctx context.Context, op, subID string) {
	_, span := StartSpan(ctx, op+".subscription")
	span.WithAttributes(map[string]string{
		"weft.operator":        op,
		"weft.subscription_id": subID,
	})
	o.mu.Lock()
	o.spans[subID] = span
	o.mu.Unlock()
}

func (o *Observer) OnStateRelayed(ctx context.Context, op, subID string) {
	if span := o.lookup(subID); span != nil {
		span.AddEvent("state_relayed")
	}
}

func (o *Observer) OnSubStreamSwitched(ctx context.Context, op, subID string) {
	if span := o.lookup(subID); span != nil {
		span.AddEvent("substream_switched")
	}
}

func (o *Observer) OnSubscriptionClosed(ctx context.Context, op, subID string, err error, d time.Duration) {
	o.mu.Lock()
	span := o.spans[subID]
	delete(o.spans, subID)
	o.mu.Unlock()
	if span == nil {
		return
	}
	// Cancellation is a normal way for a subscription to end, not a
	// failure worth an error status.
	if api.IsCanceled(err) {
		err = nil
	}
	EndSpan(span, err)
}

func (o *Observer) OnResultResolved(ctx context.Context, op string, err error) {
	_, span := StartSpan(ctx, op+".result")
	span.WithAttributes(map[string]string{"weft.operator": op})
	EndSpan(span, err)
}

func (o *Observer) lookup(subID string) *Span {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.spans[subID]
}
