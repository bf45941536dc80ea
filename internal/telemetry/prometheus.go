// Package telemetry exposes Prometheus metrics for the monitor:
//   - monitor_poll_ticks_total{result}      poll results (met, unmet, error)
//   - monitor_pool_price                    last computed price
//   - monitor_pool_liquidity_usd            last computed liquidity
//   - monitor_trades_total{result}          sale attempts (confirmed, failed)
//   - monitor_stream_subscribers            open push connections
//
// All methods are safe on a nil *Recorder.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Poll and trade result labels.
const (
	ResultMet       = "met"
	ResultUnmet     = "unmet"
	ResultError     = "error"
	ResultConfirmed = "confirmed"
	ResultFailed    = "failed"
)

// Recorder owns the monitor's collectors.
type Recorder struct {
	registry    *prometheus.Registry
	pollTicks   *prometheus.CounterVec
	price       prometheus.Gauge
	liquidity   prometheus.Gauge
	trades      *prometheus.CounterVec
	subscribers prometheus.Gauge
}

// New builds a Recorder on a fresh registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		pollTicks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "monitor_poll_ticks_total",
				Help: "Condition checks by result",
			},
			[]string{"result"},
		),
		price: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "monitor_pool_price",
			Help: "Last computed pool price in the reference currency",
		}),
		liquidity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "monitor_pool_liquidity_usd",
			Help: "Last computed pool liquidity in the reference currency",
		}),
		trades: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "monitor_trades_total",
				Help: "Sale attempts by result",
			},
			[]string{"result"},
		),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "monitor_stream_subscribers",
			Help: "Open push channel connections",
		}),
	}
	r.registry.MustRegister(
		r.pollTicks,
		r.price,
		r.liquidity,
		r.trades,
		r.subscribers,
		collectors.NewGoCollector(),
	)
	return r
}

func (r *Recorder) PollTick(result string) {
	if r == nil {
		return
	}
	r.pollTicks.WithLabelValues(result).Inc()
}

func (r *Recorder) Observe(price, liquidity float64) {
	if r == nil {
		return
	}
	r.price.Set(price)
	r.liquidity.Set(liquidity)
}

func (r *Recorder) Trade(result string) {
	if r == nil {
		return
	}
	r.trades.WithLabelValues(result).Inc()
}

func (r *Recorder) SubscriberAdded() {
	if r == nil {
		return
	}
	r.subscribers.Inc()
}

func (r *Recorder) SubscriberRemoved() {
	if r == nil {
		return
	}
	r.subscribers.Dec()
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
