package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	r := New()
	r.PollTick(ResultUnmet)
	r.PollTick(ResultUnmet)
	r.PollTick(ResultMet)
	r.Trade(ResultConfirmed)
	r.Observe(4.5, 720_000)
	r.SubscriberAdded()
	r.SubscriberAdded()
	r.SubscriberRemoved()

	if got := testutil.ToFloat64(r.pollTicks.WithLabelValues(ResultUnmet)); got != 2 {
		t.Fatalf("unmet ticks = %v", got)
	}
	if got := testutil.ToFloat64(r.trades.WithLabelValues(ResultConfirmed)); got != 1 {
		t.Fatalf("confirmed trades = %v", got)
	}
	if got := testutil.ToFloat64(r.price); got != 4.5 {
		t.Fatalf("price = %v", got)
	}
	if got := testutil.ToFloat64(r.subscribers); got != 1 {
		t.Fatalf("subscribers = %v", got)
	}
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	r.PollTick(ResultError)
	r.Observe(1, 2)
	r.Trade(ResultFailed)
	r.SubscriberAdded()
	r.SubscriberRemoved()
	if r.Handler() == nil {
		t.Fatalf("nil handler")
	}
}
