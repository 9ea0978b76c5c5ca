// Package orchestrator runs the bulk refresh of every tracked instrument:
// chunked commits, per-item failure isolation, delayed retry of the failed
// subset and a single-flight guarantee per Orchestrator.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/trogers1052/stock-signal-service/internal/models"
	"github.com/trogers1052/stock-signal-service/internal/performance"
)

// InstrumentStore is the persistent universe. SaveBatch must be atomic.
type InstrumentStore interface {
	ListAll(ctx context.Context) ([]*models.Instrument, error)
	Get(ctx context.Context, symbol string) (*models.Instrument, error)
	SaveBatch(ctx context.Context, instruments []*models.Instrument) error
}

// SeriesSource serves price series, usually a cache.SeriesCache.
type SeriesSource interface {
	Get(ctx context.Context, symbol string, interval models.Interval, forceRefresh bool) (models.Series, error)
}

// MetadataLookup backfills descriptive fields.
type MetadataLookup interface {
	FetchDescriptiveInfo(ctx context.Context, symbol string) (models.Descriptive, error)
}

// EventPublisher announces committed snapshots and finished runs.
type EventPublisher interface {
	PublishSnapshotUpdated(ctx context.Context, inst *models.Instrument) error
	PublishRunCompleted(ctx context.Context, run *models.RunRecord) error
}

// RunRecorder keeps run history.
type RunRecorder interface {
	RecordRun(ctx context.Context, run *models.RunRecord) error
	LastCompletedRun(ctx context.Context) (*time.Time, error)
}

// Metrics receives run and item observations.
type Metrics interface {
	RecordItem(ok bool)
	RecordRetryCycle()
	RecordChunkCommit(ok bool)
	SetStatus(status models.RunStatus)
	RecordRunFinished(status models.RunStatus, started, finished time.Time)
}

// Deps are the collaborators of an Orchestrator. Events, Runs and Metrics
// are optional.
type Deps struct {
	Store   InstrumentStore
	Series  SeriesSource
	Lookup  MetadataLookup
	Events  EventPublisher
	Runs    RunRecorder
	Metrics Metrics
}

// Config tunes a run.
type Config struct {
	ChunkSize       int
	RetryDelay      time.Duration
	ItemDelay       time.Duration
	BenchmarkSymbol string
	Interval        models.Interval
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{
		ChunkSize:       50,
		RetryDelay:      10 * time.Minute,
		ItemDelay:       500 * time.Millisecond,
		BenchmarkSymbol: "^GSPC",
		Interval:        models.IntervalDaily,
	}
}

// Status is a point-in-time view of the run state. StoppedAt is when an
// operator last stopped a run.
type Status struct {
	Status        models.RunStatus `json:"status"`
	Message       string           `json:"message"`
	Progress      int              `json:"progress"`
	Total         int              `json:"total"`
	Failed        int              `json:"failed"`
	LastCompleted *time.Time       `json:"last_completed"`
	StoppedAt     *time.Time       `json:"stopped_at,omitempty"`
}

// Orchestrator owns one run state. At most one worker is live at a time.
type Orchestrator struct {
	deps   Deps
	cfg    Config
	logger zerolog.Logger
	now    func() time.Time

	mu     sync.RWMutex
	state  Status
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an idle Orchestrator. Zero config fields take the defaults.
func New(deps Deps, cfg Config, logger zerolog.Logger) *Orchestrator {
	def := DefaultConfig()
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = def.ChunkSize
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = def.RetryDelay
	}
	if cfg.ItemDelay < 0 {
		cfg.ItemDelay = 0
	}
	if cfg.BenchmarkSymbol == "" {
		cfg.BenchmarkSymbol = def.BenchmarkSymbol
	}
	if !cfg.Interval.Valid() {
		cfg.Interval = def.Interval
	}
	if deps.Metrics == nil {
		deps.Metrics = nopMetrics{}
	}
	return &Orchestrator{
		deps:   deps,
		cfg:    cfg,
		logger: logger.With().Str("component", "orchestrator").Logger(),
		now:    time.Now,
		state:  Status{Status: models.RunIdle},
	}
}

// Restore loads the last completion time from run history.
func (o *Orchestrator) Restore(ctx context.Context) error {
	if o.deps.Runs == nil {
		return nil
	}
	last, err := o.deps.Runs.LastCompletedRun(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore last completed run: %w", err)
	}
	o.mu.Lock()
	o.state.LastCompleted = last
	o.mu.Unlock()
	if last != nil {
		o.logger.Info().Time("last_completed", *last).Msg("restored last completed run")
	}
	return nil
}

// Start launches a run and returns false if one is already active.
func (o *Orchestrator) Start() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state.Status.Active() || o.done != nil {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	o.cancel = cancel
	o.done = done
	o.state = Status{
		Status:        models.RunRunning,
		Message:       "Initializing update...",
		LastCompleted: o.state.LastCompleted,
		StoppedAt:     o.state.StoppedAt,
	}
	o.deps.Metrics.SetStatus(models.RunRunning)

	go o.run(ctx, done)
	return true
}

// Stop requests cancellation of the live run. The current item and the
// pending chunk commit still finish.
func (o *Orchestrator) Stop() {
	o.mu.RLock()
	cancel := o.cancel
	o.mu.RUnlock()
	if cancel != nil {
		o.logger.Info().Msg("stop requested")
		cancel()
	}
}

// Status returns a copy of the run state.
func (o *Orchestrator) Status() Status {
	o.mu.RLock()
	defer o.mu.RUnlock()
	s := o.state
	s.LastCompleted = copyTime(s.LastCompleted)
	s.StoppedAt = copyTime(s.StoppedAt)
	return s
}

// Wait blocks until the live worker, if any, has exited.
func (o *Orchestrator) Wait() {
	o.mu.RLock()
	done := o.done
	o.mu.RUnlock()
	if done != nil {
		<-done
	}
}

func (o *Orchestrator) run(ctx context.Context, done chan struct{}) {
	started := o.now()
	defer func() {
		o.mu.Lock()
		o.cancel()
		o.cancel = nil
		o.done = nil
		o.mu.Unlock()
		close(done)
	}()

	err := o.execute(ctx)
	o.finish(ctx, started, err)
}

func (o *Orchestrator) execute(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	// Store and provider I/O is never interrupted mid-call.
	ioCtx := context.WithoutCancel(ctx)

	instruments, err := o.deps.Store.ListAll(ioCtx)
	if err != nil {
		return fmt.Errorf("failed to list instruments: %w", err)
	}
	symbols := make([]string, 0, len(instruments))
	for _, inst := range instruments {
		symbols = append(symbols, inst.Symbol)
	}
	o.update(func(s *Status) { s.Total = len(symbols) })
	o.logger.Info().Int("total", len(symbols)).Msg("update run started")

	bench := o.loadBenchmark(ioCtx)

	failed, err := o.processAll(ctx, symbols, bench)
	if err != nil {
		return err
	}

	for len(failed) > 0 && ctx.Err() == nil {
		n := len(failed)
		o.update(func(s *Status) {
			s.Status = models.RunWaitingRetry
			s.Message = fmt.Sprintf("Errors in %d stocks. Retrying in %s...", n, humanDelay(o.cfg.RetryDelay))
			s.Failed = n
		})
		o.deps.Metrics.SetStatus(models.RunWaitingRetry)
		o.deps.Metrics.RecordRetryCycle()
		o.logger.Warn().Int("failed", n).Dur("delay", o.cfg.RetryDelay).Msg("waiting to retry failed instruments")

		if !sleep(ctx, o.cfg.RetryDelay) {
			break
		}

		o.update(func(s *Status) {
			s.Status = models.RunRunning
			s.Message = fmt.Sprintf("Retrying %d stocks...", n)
		})
		o.deps.Metrics.SetStatus(models.RunRunning)

		retry := failed
		failed, err = o.processAll(ctx, retry, bench)
		if err != nil {
			return err
		}
	}
	return nil
}

// processAll runs symbols in chunks and returns the ones that failed. Only
// a failed chunk commit is returned as an error.
func (o *Orchestrator) processAll(ctx context.Context, symbols []string, bench *performance.Benchmark) ([]string, error) {
	var failed []string
	ioCtx := context.WithoutCancel(ctx)
	o.update(func(s *Status) { s.Failed = 0 })

	for start := 0; start < len(symbols); start += o.cfg.ChunkSize {
		if ctx.Err() != nil {
			break
		}
		end := min(start+o.cfg.ChunkSize, len(symbols))

		pending := make([]*models.Instrument, 0, end-start)
		for _, sym := range symbols[start:end] {
			if ctx.Err() != nil {
				break
			}
			o.update(func(s *Status) {
				s.Message = fmt.Sprintf("Updating %s (%d/%d)...", sym, s.Progress+1, s.Total)
			})

			inst, err := o.processItem(ctx, sym, bench)
			if err != nil {
				o.logger.Error().Err(err).Str("symbol", sym).Msg("failed to update instrument")
				o.deps.Metrics.RecordItem(false)
				failed = append(failed, sym)
				o.update(func(s *Status) { s.Failed = len(failed) })
				continue
			}
			if inst == nil {
				continue
			}
			o.deps.Metrics.RecordItem(true)
			pending = append(pending, inst)
			o.update(func(s *Status) { s.Progress++ })
		}

		if len(pending) == 0 {
			continue
		}
		if err := o.deps.Store.SaveBatch(ioCtx, pending); err != nil {
			o.deps.Metrics.RecordChunkCommit(false)
			return failed, fmt.Errorf("failed to commit chunk: %w", err)
		}
		o.deps.Metrics.RecordChunkCommit(true)
		o.logger.Debug().Int("instruments", len(pending)).Msg("chunk committed")
		o.publishSnapshots(ioCtx, pending)
	}
	return failed, nil
}

// processItem refreshes one instrument. It returns nil, nil when the
// instrument has left the store since the run started, or when a stop
// arrives before the fetch begins.
func (o *Orchestrator) processItem(ctx context.Context, symbol string, bench *performance.Benchmark) (inst *models.Instrument, err error) {
	defer func() {
		if r := recover(); r != nil {
			inst, err = nil, fmt.Errorf("panic while processing %s: %v", symbol, r)
		}
	}()

	ioCtx := context.WithoutCancel(ctx)

	inst, err = o.deps.Store.Get(ioCtx, symbol)
	if errors.Is(err, models.ErrNotFound) {
		o.logger.Debug().Str("symbol", symbol).Msg("instrument removed, skipping")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load instrument: %w", err)
	}

	if !sleep(ctx, o.cfg.ItemDelay) {
		return nil, nil
	}

	series, err := o.deps.Series.Get(ioCtx, symbol, o.cfg.Interval, true)
	if err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrEmptyData, symbol)
	}

	inst.Snapshot = BuildSnapshot(series, bench, o.now())

	if !inst.Descriptive.Complete() && o.deps.Lookup != nil {
		candidate, lookupErr := o.deps.Lookup.FetchDescriptiveInfo(ioCtx, symbol)
		if lookupErr != nil {
			o.logger.Warn().Err(lookupErr).Str("symbol", symbol).Msg("metadata lookup failed")
		} else {
			inst.Descriptive = models.MergeDescriptive(inst.Descriptive, candidate)
		}
	}
	return inst, nil
}

func (o *Orchestrator) loadBenchmark(ctx context.Context) *performance.Benchmark {
	series, err := o.deps.Series.Get(ctx, o.cfg.BenchmarkSymbol, o.cfg.Interval, true)
	if err != nil {
		o.logger.Warn().Err(err).Str("benchmark", o.cfg.BenchmarkSymbol).Msg("benchmark unavailable, relative strength disabled")
		return nil
	}
	return performance.NewBenchmark(o.cfg.BenchmarkSymbol, series)
}

func (o *Orchestrator) finish(ctx context.Context, started time.Time, runErr error) {
	finished := o.now()

	o.mu.Lock()
	switch {
	case runErr != nil:
		o.state.Status = models.RunError
		o.state.Message = fmt.Sprintf("System error: %v", runErr)
	case ctx.Err() != nil:
		o.state.Status = models.RunIdle
		o.state.Message = fmt.Sprintf("Update stopped (%d/%d).", o.state.Progress, o.state.Total)
		t := finished
		o.state.StoppedAt = &t
	default:
		o.state.Status = models.RunCompleted
		o.state.Message = "All updates completed."
		t := finished
		o.state.LastCompleted = &t
	}
	record := &models.RunRecord{
		StartedAt:  started,
		FinishedAt: finished,
		Status:     o.state.Status,
		Message:    o.state.Message,
		Processed:  o.state.Progress,
		Total:      o.state.Total,
		Failed:     o.state.Failed,
	}
	o.mu.Unlock()

	o.deps.Metrics.SetStatus(record.Status)
	o.deps.Metrics.RecordRunFinished(record.Status, started, finished)

	event := o.logger.Info()
	if runErr != nil {
		event = o.logger.Error().Err(runErr)
	}
	event.Str("status", string(record.Status)).
		Int("processed", record.Processed).
		Int("total", record.Total).
		Int("failed", record.Failed).
		Dur("duration", finished.Sub(started)).
		Msg("update run finished")

	ioCtx := context.WithoutCancel(ctx)
	if o.deps.Runs != nil {
		if err := o.deps.Runs.RecordRun(ioCtx, record); err != nil {
			o.logger.Warn().Err(err).Msg("failed to record run")
		}
	}
	if o.deps.Events != nil {
		if err := o.deps.Events.PublishRunCompleted(ioCtx, record); err != nil {
			o.logger.Warn().Err(err).Msg("failed to publish run completed event")
		}
	}
}

func (o *Orchestrator) publishSnapshots(ctx context.Context, instruments []*models.Instrument) {
	if o.deps.Events == nil {
		return
	}
	for _, inst := range instruments {
		if err := o.deps.Events.PublishSnapshotUpdated(ctx, inst); err != nil {
			o.logger.Warn().Err(err).Str("symbol", inst.Symbol).Msg("failed to publish snapshot event")
		}
	}
}

func (o *Orchestrator) update(fn func(*Status)) {
	o.mu.Lock()
	fn(&o.state)
	o.mu.Unlock()
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func humanDelay(d time.Duration) string {
	if d >= time.Minute && d%time.Minute == 0 {
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	}
	return d.String()
}

type nopMetrics struct{}

func (nopMetrics) RecordItem(bool)                                          {}
func (nopMetrics) RecordRetryCycle()                                        {}
func (nopMetrics) RecordChunkCommit(bool)                                   {}
func (nopMetrics) SetStatus(models.RunStatus)                               {}
func (nopMetrics) RecordRunFinished(models.RunStatus, time.Time, time.Time) {}
