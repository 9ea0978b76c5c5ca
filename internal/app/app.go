package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/trogers1052/stock-signal-service/internal/config"
	"github.com/trogers1052/stock-signal-service/internal/kafka"
	"github.com/trogers1052/stock-signal-service/internal/orchestrator"
	"github.com/trogers1052/stock-signal-service/internal/trigger"
)

// App owns the long-running parts of the service.
type App struct {
	cfg      *config.Config
	logger   zerolog.Logger
	server   *http.Server
	orch     *orchestrator.Orchestrator
	trigger  *trigger.DailyTrigger
	consumer *kafka.Consumer
}

// New creates an App. trigger and consumer may be nil.
func New(
	cfg *config.Config,
	log zerolog.Logger,
	server *http.Server,
	orch *orchestrator.Orchestrator,
	trig *trigger.DailyTrigger,
	consumer *kafka.Consumer,
) *App {
	return &App{
		cfg:      cfg,
		logger:   log,
		server:   server,
		orch:     orch,
		trigger:  trig,
		consumer: consumer,
	}
}

// Run serves until ctx is cancelled, then shuts down: the trigger stops, a
// live update run is asked to stop and awaited, and the HTTP server drains.
func (a *App) Run(ctx context.Context) error {
	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()

	var wg sync.WaitGroup
	if a.consumer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.consumer.Start(consumerCtx); err != nil {
				a.logger.Error().Err(err).Msg("kafka consumer error")
			}
		}()
	}

	if a.trigger != nil {
		if err := a.trigger.Start(); err != nil {
			return err
		}
	}

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info().Msg("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			runErr = fmt.Errorf("http server failed: %w", err)
		}
	}

	if a.trigger != nil {
		a.trigger.Stop()
	}
	a.orch.Stop()
	a.orch.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	stopConsumer()
	wg.Wait()

	a.logger.Info().Msg("shutdown complete")
	return runErr
}

func (a *App) shutdownTimeout() time.Duration {
	if a.cfg.Server.ShutdownTimeout > 0 {
		return a.cfg.Server.ShutdownTimeout
	}
	return 30 * time.Second
}
