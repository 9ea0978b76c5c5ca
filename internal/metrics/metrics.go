// Package metrics exposes run and item counters for the update pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/trogers1052/stock-signal-service/internal/models"
)

var runStatuses = []models.RunStatus{
	models.RunIdle, models.RunRunning, models.RunWaitingRetry, models.RunCompleted, models.RunError,
}

// Recorder records pipeline metrics on a Prometheus registerer.
type Recorder struct {
	items         *prometheus.CounterVec
	retryCycles   prometheus.Counter
	runDuration   prometheus.Histogram
	runStatus     *prometheus.GaugeVec
	lastCompleted prometheus.Gauge
	chunkCommits  *prometheus.CounterVec
}

// New registers the pipeline metrics on reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	r := &Recorder{
		items: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stock_signal_items_total",
				Help: "Instruments processed by result",
			},
			[]string{"result"},
		),
		retryCycles: factory.NewCounter(prometheus.CounterOpts{
			Name: "stock_signal_retry_cycles_total",
			Help: "Retry cycles entered after failed items",
		}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "stock_signal_run_duration_seconds",
			Help:    "Wall time of finished update runs",
			Buckets: prometheus.ExponentialBuckets(30, 2, 10),
		}),
		runStatus: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stock_signal_run_status",
				Help: "Current run status, one-hot",
			},
			[]string{"status"},
		),
		lastCompleted: factory.NewGauge(prometheus.GaugeOpts{
			Name: "stock_signal_last_completed_timestamp_seconds",
			Help: "Unix time of the last completed run",
		}),
		chunkCommits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stock_signal_chunk_commits_total",
				Help: "Chunk commits by result",
			},
			[]string{"result"},
		),
	}
	r.SetStatus(models.RunIdle)
	return r
}

// RecordItem counts one processed instrument.
func (r *Recorder) RecordItem(ok bool) {
	r.items.WithLabelValues(result(ok)).Inc()
}

// RecordRetryCycle counts one entry into the retry wait.
func (r *Recorder) RecordRetryCycle() {
	r.retryCycles.Inc()
}

// RecordChunkCommit counts one chunk commit attempt.
func (r *Recorder) RecordChunkCommit(ok bool) {
	r.chunkCommits.WithLabelValues(result(ok)).Inc()
}

// SetStatus makes status the only active status series.
func (r *Recorder) SetStatus(status models.RunStatus) {
	for _, s := range runStatuses {
		v := 0.0
		if s == status {
			v = 1
		}
		r.runStatus.WithLabelValues(string(s)).Set(v)
	}
}

// RecordRunFinished observes the duration of a run and, for completed runs,
// the completion time.
func (r *Recorder) RecordRunFinished(status models.RunStatus, started, finished time.Time) {
	r.runDuration.Observe(finished.Sub(started).Seconds())
	if status == models.RunCompleted {
		r.lastCompleted.Set(float64(finished.Unix()))
	}
}

// SetLastCompleted seeds the completion gauge, e.g. from run history.
func (r *Recorder) SetLastCompleted(t time.Time) {
	r.lastCompleted.Set(float64(t.Unix()))
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
