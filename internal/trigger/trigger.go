// Package trigger starts the daily update once the market cutoff has passed.
package trigger

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"

	"github.com/trogers1052/stock-signal-service/internal/orchestrator"
)

// Runner is the part of the orchestrator the trigger drives.
type Runner interface {
	Start() bool
	Status() orchestrator.Status
}

// Config holds the cutoff as HH:MM in Location.
type Config struct {
	Cutoff   string
	Location *time.Location
}

// DailyTrigger fires at most one completed run per local day.
type DailyTrigger struct {
	runner Runner
	loc    *time.Location
	hour   int
	minute int
	logger zerolog.Logger

	mu    sync.Mutex
	sched *gocron.Scheduler
}

// New parses the cutoff. An empty cutoff means 09:30 and a nil location
// means Asia/Tokyo.
func New(runner Runner, cfg Config, logger zerolog.Logger) (*DailyTrigger, error) {
	if cfg.Cutoff == "" {
		cfg.Cutoff = "09:30"
	}
	loc := cfg.Location
	if loc == nil {
		var err error
		loc, err = time.LoadLocation("Asia/Tokyo")
		if err != nil {
			return nil, fmt.Errorf("failed to load default location: %w", err)
		}
	}
	cutoff, err := time.Parse("15:04", cfg.Cutoff)
	if err != nil {
		return nil, fmt.Errorf("invalid cutoff %q: %w", cfg.Cutoff, err)
	}
	return &DailyTrigger{
		runner: runner,
		loc:    loc,
		hour:   cutoff.Hour(),
		minute: cutoff.Minute(),
		logger: logger.With().Str("component", "daily_trigger").Logger(),
	}, nil
}

// Check starts a run if now is past today's cutoff, no run completed today
// and no run was stopped since the cutoff. It returns whether a run was
// started.
func (t *DailyTrigger) Check(now time.Time) bool {
	local := now.In(t.loc)
	y, m, d := local.Date()
	cutoff := time.Date(y, m, d, t.hour, t.minute, 0, 0, t.loc)
	if local.Before(cutoff) {
		return false
	}

	status := t.runner.Status()
	if last := status.LastCompleted; last != nil && t.sameDay(*last, local) {
		return false
	}
	if stopped := status.StoppedAt; stopped != nil && !stopped.Before(cutoff) {
		t.logger.Debug().Time("stopped_at", *stopped).Msg("update stopped by operator today, not retriggering")
		return false
	}

	started := t.runner.Start()
	if started {
		t.logger.Info().Time("now", local).Msg("daily update triggered")
	}
	return started
}

func (t *DailyTrigger) sameDay(a, b time.Time) bool {
	ay, am, ad := a.In(t.loc).Date()
	by, bm, bd := b.In(t.loc).Date()
	return ay == by && am == bm && ad == bd
}

// Start checks once immediately and then every minute.
func (t *DailyTrigger) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sched != nil {
		return nil
	}

	sched := gocron.NewScheduler(t.loc)
	sched.SingletonModeAll()
	if _, err := sched.Every(1).Minute().StartImmediately().Do(func() {
		t.Check(time.Now())
	}); err != nil {
		return fmt.Errorf("failed to schedule daily trigger: %w", err)
	}
	sched.StartAsync()
	t.sched = sched

	t.logger.Info().
		Str("cutoff", fmt.Sprintf("%02d:%02d", t.hour, t.minute)).
		Str("location", t.loc.String()).
		Msg("daily trigger started")
	return nil
}

// Stop halts the schedule. A running update is not affected.
func (t *DailyTrigger) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sched == nil {
		return
	}
	t.sched.Stop()
	t.sched = nil
	t.logger.Info().Msg("daily trigger stopped")
}
