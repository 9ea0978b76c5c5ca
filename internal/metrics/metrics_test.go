package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/trogers1052/stock-signal-service/internal/models"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	t.Run("items by result", func(t *testing.T) {
		r.RecordItem(true)
		r.RecordItem(true)
		r.RecordItem(false)
		assert.Equal(t, 2.0, testutil.ToFloat64(r.items.WithLabelValues("success")))
		assert.Equal(t, 1.0, testutil.ToFloat64(r.items.WithLabelValues("failure")))
	})

	t.Run("status is one-hot", func(t *testing.T) {
		assert.Equal(t, 1.0, testutil.ToFloat64(r.runStatus.WithLabelValues("idle")))

		r.SetStatus(models.RunWaitingRetry)
		assert.Equal(t, 1.0, testutil.ToFloat64(r.runStatus.WithLabelValues("waiting_retry")))
		assert.Equal(t, 0.0, testutil.ToFloat64(r.runStatus.WithLabelValues("idle")))
		assert.Equal(t, 0.0, testutil.ToFloat64(r.runStatus.WithLabelValues("running")))
	})

	t.Run("last completed only moves on completion", func(t *testing.T) {
		started := time.Date(2026, 10, 14, 0, 30, 0, 0, time.UTC)
		r.RecordRunFinished(models.RunError, started, started.Add(time.Minute))
		assert.Equal(t, 0.0, testutil.ToFloat64(r.lastCompleted))

		finished := started.Add(20 * time.Minute)
		r.RecordRunFinished(models.RunCompleted, started, finished)
		assert.Equal(t, float64(finished.Unix()), testutil.ToFloat64(r.lastCompleted))
	})

	t.Run("retry and chunk counters", func(t *testing.T) {
		r.RecordRetryCycle()
		r.RecordChunkCommit(true)
		r.RecordChunkCommit(false)
		assert.Equal(t, 1.0, testutil.ToFloat64(r.retryCycles))
		assert.Equal(t, 1.0, testutil.ToFloat64(r.chunkCommits.WithLabelValues("success")))
		assert.Equal(t, 1.0, testutil.ToFloat64(r.chunkCommits.WithLabelValues("failure")))
	})

	t.Run("registered on the given registry", func(t *testing.T) {
		n, err := testutil.GatherAndCount(reg, "stock_signal_run_duration_seconds")
		assert.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}
