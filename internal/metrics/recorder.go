package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "gapscan"

// Recorder exports scanner metrics to Prometheus.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	ticks        *prometheus.CounterVec
	tickErrors   *prometheus.CounterVec
	tickDuration prometheus.Histogram
	stageSize    *prometheus.GaugeVec
	dropped      *prometheus.CounterVec
	heartbeat    *prometheus.CounterVec
	finalPicks   *prometheus.CounterVec
}

// New creates a recorder registered on reg (default registerer when nil)
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Recorder{
		ticks: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ticks_total",
				Help:      "Scan ticks run, by phase",
			},
			[]string{"phase"},
		),
		tickErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tick_errors_total",
				Help:      "Tick failures by error kind",
			},
			[]string{"kind"},
		),
		tickDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tick_duration_seconds",
				Help:      "Duration of one scan tick",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
			},
		),
		stageSize: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "stage_tickers",
				Help:      "Tickers remaining after each stage of the last tick",
			},
			[]string{"stage"},
		),
		dropped: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dropped_total",
				Help:      "Tickers dropped, by stage and reason",
			},
			[]string{"stage", "reason"},
		),
		heartbeat: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "heartbeat_results_total",
				Help:      "Heartbeat classifications",
			},
			[]string{"active"},
		),
		finalPicks: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "final_picks_total",
				Help:      "Final picks made, by mode",
			},
			[]string{"mode"},
		),
	}
}

// RecordTick records one completed tick
func (r *Recorder) RecordTick(phase string, d time.Duration) {
	if r == nil {
		return
	}
	r.ticks.WithLabelValues(phase).Inc()
	r.tickDuration.Observe(d.Seconds())
}

// RecordTickError records a failed tick by error kind
func (r *Recorder) RecordTickError(kind string) {
	if r == nil {
		return
	}
	r.tickErrors.WithLabelValues(kind).Inc()
}

// RecordStage sets the survivor count of a stage
func (r *Recorder) RecordStage(stage string, n int) {
	if r == nil {
		return
	}
	r.stageSize.WithLabelValues(stage).Set(float64(n))
}

// RecordDrops adds per-reason drop counts for a stage
func (r *Recorder) RecordDrops(stage string, reasons map[string]int) {
	if r == nil {
		return
	}
	for reason, n := range reasons {
		r.dropped.WithLabelValues(stage, reason).Add(float64(n))
	}
}

// RecordHeartbeat counts one classification
func (r *Recorder) RecordHeartbeat(active bool) {
	if r == nil {
		return
	}
	label := "false"
	if active {
		label = "true"
	}
	r.heartbeat.WithLabelValues(label).Inc()
}

// RecordFinalPick counts a final pick by mode
func (r *Recorder) RecordFinalPick(mode string) {
	if r == nil {
		return
	}
	r.finalPicks.WithLabelValues(mode).Inc()
}
