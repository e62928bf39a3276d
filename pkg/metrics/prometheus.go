package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	signalsTotal   *prometheus.CounterVec
	tradesTotal    *prometheus.CounterVec
	gateRejections *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	lastPrice      *prometheus.GaugeVec
	dailyPnL       *prometheus.GaugeVec
	roundTrips     *prometheus.GaugeVec
	latency        *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		signalsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "t0pilot_signals_total",
				Help: "Total signals generated, by type and regime",
			},
			[]string{"type", "regime"},
		),
		tradesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "t0pilot_trades_total",
				Help: "Total simulated fills recorded",
			},
			[]string{"symbol", "direction"},
		),
		gateRejections: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "t0pilot_gate_rejections_total",
				Help: "Risk gate rejections by reason",
			},
			[]string{"reason"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "t0pilot_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "t0pilot_last_price",
				Help: "Last polled price for a symbol",
			},
			[]string{"symbol"},
		),
		dailyPnL: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "t0pilot_daily_pnl",
				Help: "Realized round-trip PnL for the session",
			},
			[]string{"symbol"},
		),
		roundTrips: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "t0pilot_round_trips",
				Help: "Completed round trips this session",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "t0pilot_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordSignal(signalType, regime string) {
	r.signalsTotal.WithLabelValues(signalType, regime).Inc()
}

func (r *Recorder) RecordTrade(symbol, direction string) {
	r.tradesTotal.WithLabelValues(symbol, direction).Inc()
}

func (r *Recorder) RecordGateRejection(reason string) {
	r.gateRejections.WithLabelValues(reason).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

func (r *Recorder) RecordDailyPnL(symbol string, pnl float64) {
	r.dailyPnL.WithLabelValues(symbol).Set(pnl)
}

func (r *Recorder) RecordRoundTrips(symbol string, n int) {
	r.roundTrips.WithLabelValues(symbol).Set(float64(n))
}

func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
