package trigger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trogers1052/stock-signal-service/internal/models"
	"github.com/trogers1052/stock-signal-service/internal/orchestrator"
)

// MockRunner counts starts
type MockRunner struct {
	mu            sync.Mutex
	starts        int
	accept        bool
	lastCompleted *time.Time
	stoppedAt     *time.Time
}

func (m *MockRunner) Start() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.starts++
	return m.accept
}

func (m *MockRunner) Status() orchestrator.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return orchestrator.Status{Status: models.RunIdle, LastCompleted: m.lastCompleted, StoppedAt: m.stoppedAt}
}

func (m *MockRunner) Starts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts
}

func tokyo(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	return loc
}

func newTrigger(t *testing.T, runner Runner) *DailyTrigger {
	t.Helper()
	trig, err := New(runner, Config{Cutoff: "09:30", Location: tokyo(t)}, zerolog.Nop())
	require.NoError(t, err)
	return trig
}

func TestCheck(t *testing.T) {
	loc := tokyo(t)
	at := func(day, hour, minute int) time.Time {
		return time.Date(2026, 10, day, hour, minute, 0, 0, loc)
	}

	t.Run("before cutoff does nothing", func(t *testing.T) {
		r := &MockRunner{accept: true}
		assert.False(t, newTrigger(t, r).Check(at(14, 9, 29)))
		assert.Zero(t, r.Starts())
	})

	t.Run("at cutoff starts", func(t *testing.T) {
		r := &MockRunner{accept: true}
		assert.True(t, newTrigger(t, r).Check(at(14, 9, 30)))
		assert.Equal(t, 1, r.Starts())
	})

	t.Run("completed today does nothing", func(t *testing.T) {
		done := at(14, 9, 50)
		r := &MockRunner{accept: true, lastCompleted: &done}
		assert.False(t, newTrigger(t, r).Check(at(14, 15, 0)))
		assert.Zero(t, r.Starts())
	})

	t.Run("completed yesterday starts", func(t *testing.T) {
		done := at(13, 10, 0)
		r := &MockRunner{accept: true, lastCompleted: &done}
		assert.True(t, newTrigger(t, r).Check(at(14, 9, 31)))
	})

	t.Run("today is the market date not UTC", func(t *testing.T) {
		// 2026-10-14 00:10 UTC is 09:10 JST, still before the cutoff.
		r := &MockRunner{accept: true}
		trig := newTrigger(t, r)
		assert.False(t, trig.Check(time.Date(2026, 10, 14, 0, 10, 0, 0, time.UTC)))

		// Completed at 2026-10-13 23:00 UTC, which is already 10-14 in Tokyo.
		done := time.Date(2026, 10, 13, 23, 0, 0, 0, time.UTC)
		r.lastCompleted = &done
		assert.False(t, trig.Check(time.Date(2026, 10, 14, 3, 0, 0, 0, time.UTC)))
		assert.Zero(t, r.Starts())
	})

	t.Run("stopped after cutoff today does nothing", func(t *testing.T) {
		stopped := at(14, 9, 31)
		r := &MockRunner{accept: true, stoppedAt: &stopped}
		trig := newTrigger(t, r)
		assert.False(t, trig.Check(at(14, 9, 32)))
		assert.False(t, trig.Check(at(14, 23, 59)))
		assert.Zero(t, r.Starts())

		assert.True(t, trig.Check(at(15, 9, 30)), "the next day runs again")
	})

	t.Run("stopped before cutoff still starts", func(t *testing.T) {
		stopped := at(14, 8, 0)
		r := &MockRunner{accept: true, stoppedAt: &stopped}
		assert.True(t, newTrigger(t, r).Check(at(14, 9, 30)))
	})

	t.Run("rejected start reports false", func(t *testing.T) {
		r := &MockRunner{accept: false}
		assert.False(t, newTrigger(t, r).Check(at(14, 10, 0)))
		assert.Equal(t, 1, r.Starts())
	})
}

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		trig, err := New(&MockRunner{}, Config{}, zerolog.Nop())
		require.NoError(t, err)
		assert.Equal(t, 9, trig.hour)
		assert.Equal(t, 30, trig.minute)
		assert.Equal(t, "Asia/Tokyo", trig.loc.String())
	})

	t.Run("invalid cutoff", func(t *testing.T) {
		_, err := New(&MockRunner{}, Config{Cutoff: "25:99"}, zerolog.Nop())
		assert.Error(t, err)
	})
}

func TestStartRunsImmediately(t *testing.T) {
	r := &MockRunner{accept: true}
	trig, err := New(r, Config{Cutoff: "00:00", Location: time.UTC}, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, trig.Start())
	require.NoError(t, trig.Start(), "starting twice is a no-op")
	defer trig.Stop()

	assert.Eventually(t, func() bool { return r.Starts() == 1 }, 2*time.Second, 10*time.Millisecond)
}

type idleStore struct{}

func (idleStore) ListAll(context.Context) ([]*models.Instrument, error) {
	return []*models.Instrument{{Symbol: "AAPL"}, {Symbol: "MSFT"}}, nil
}

func (idleStore) Get(_ context.Context, symbol string) (*models.Instrument, error) {
	return &models.Instrument{Symbol: symbol}, nil
}

func (idleStore) SaveBatch(context.Context, []*models.Instrument) error { return nil }

type flatSeries struct{}

func (flatSeries) Get(context.Context, string, models.Interval, bool) (models.Series, error) {
	return models.Series{{Time: time.Date(2026, 10, 13, 0, 0, 0, 0, time.UTC), Open: 1, High: 1, Low: 1, Close: 1}}, nil
}

func TestCheckDoesNotUndoOperatorStop(t *testing.T) {
	orch := orchestrator.New(
		orchestrator.Deps{Store: idleStore{}, Series: flatSeries{}},
		orchestrator.Config{ItemDelay: time.Hour},
		zerolog.Nop(),
	)
	trig, err := New(orch, Config{Cutoff: "00:00", Location: time.UTC}, zerolog.Nop())
	require.NoError(t, err)

	require.True(t, trig.Check(time.Now()))
	orch.Stop()
	orch.Wait()

	status := orch.Status()
	require.Equal(t, models.RunIdle, status.Status)
	assert.Equal(t, "Update stopped (0/2).", status.Message)
	require.NotNil(t, status.StoppedAt)

	assert.False(t, trig.Check(time.Now()), "a stop holds until the next day")
	assert.Equal(t, models.RunIdle, orch.Status().Status)
}
