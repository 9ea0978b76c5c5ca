// Package app assembles the service from configuration.
package app

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/trogers1052/stock-signal-service/internal/api"
	"github.com/trogers1052/stock-signal-service/internal/cache"
	"github.com/trogers1052/stock-signal-service/internal/config"
	"github.com/trogers1052/stock-signal-service/internal/database"
	"github.com/trogers1052/stock-signal-service/internal/kafka"
	"github.com/trogers1052/stock-signal-service/internal/logger"
	"github.com/trogers1052/stock-signal-service/internal/metrics"
	"github.com/trogers1052/stock-signal-service/internal/models"
	"github.com/trogers1052/stock-signal-service/internal/orchestrator"
	"github.com/trogers1052/stock-signal-service/internal/provider"
	"github.com/trogers1052/stock-signal-service/internal/trigger"
)

// ProvideLogger builds the root logger from the log section.
func ProvideLogger(cfg *config.Config) (zerolog.Logger, func(), error) {
	log, closer, err := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: cfg.Log.TimeFormat,
	})
	if err != nil {
		return zerolog.Nop(), nil, err
	}
	return log, func() { _ = closer.Close() }, nil
}

// ProvideDatabase connects to Postgres and applies migrations when enabled.
func ProvideDatabase(cfg *config.Config, log zerolog.Logger) (*database.DB, func(), error) {
	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		return nil, nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := db.Migrate(cfg.Database.MigrationsDir); err != nil {
			db.Close()
			return nil, nil, err
		}
		log.Info().Str("dir", cfg.Database.MigrationsDir).Msg("database migrations applied")
	}
	return db, func() {
		if err := db.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close database")
		}
	}, nil
}

// ProvideRecordStore selects the series record backend.
func ProvideRecordStore(cfg *config.Config, db *database.DB, log zerolog.Logger) (cache.RecordStore, func(), error) {
	if cfg.Cache.Backend != "redis" {
		return db, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	store := cache.NewRedisStore(client, cache.WithKeyPrefix(cfg.Redis.KeyPrefix), cache.WithTTL(cfg.Redis.TTL))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	log.Info().Str("addr", cfg.Redis.Addr).Msg("redis series cache connected")

	return store, func() { _ = client.Close() }, nil
}

// ProvideProviderClient builds the market-data client.
func ProvideProviderClient(cfg *config.Config) *provider.Client {
	return provider.NewClient(provider.Config{
		BaseURL:      cfg.Provider.BaseURL,
		UserAgent:    cfg.Provider.UserAgent,
		Timeout:      cfg.Provider.Timeout,
		MarketSuffix: cfg.Provider.MarketSuffix,
	})
}

// ProvideSeriesCache builds the series cache over the selected store.
func ProvideSeriesCache(cfg *config.Config, store cache.RecordStore, client *provider.Client, log zerolog.Logger) (*cache.SeriesCache, error) {
	loc, err := cfg.Cache.Location()
	if err != nil {
		return nil, fmt.Errorf("failed to load market location: %w", err)
	}
	return cache.NewSeriesCache(store, client, loc, log), nil
}

// ProvideRegistry creates the Prometheus registry with process collectors.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics registers the pipeline metrics.
func ProvideMetrics(reg *prometheus.Registry) *metrics.Recorder {
	return metrics.New(reg)
}

// ProvideProducer creates the event producer, nil when Kafka is disabled.
func ProvideProducer(cfg *config.Config, log zerolog.Logger) (*kafka.Producer, func()) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}
	}
	p := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.SnapshotTopic)
	return p, func() {
		if err := p.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close kafka producer")
		}
	}
}

// ProvideConsumer creates the stock event consumer, nil when Kafka is
// disabled.
func ProvideConsumer(cfg *config.Config, series *cache.SeriesCache, log zerolog.Logger) (*kafka.Consumer, func()) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}
	}
	c := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, series, log)
	return c, func() {
		if err := c.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close kafka consumer")
		}
	}
}

// ProvideOrchestrator builds the update orchestrator and restores the last
// completion time from run history.
func ProvideOrchestrator(
	cfg *config.Config,
	db *database.DB,
	series *cache.SeriesCache,
	client *provider.Client,
	producer *kafka.Producer,
	recorder *metrics.Recorder,
	log zerolog.Logger,
) (*orchestrator.Orchestrator, error) {
	deps := orchestrator.Deps{
		Store:   db,
		Series:  series,
		Lookup:  client,
		Runs:    db,
		Metrics: recorder,
	}
	if producer != nil {
		deps.Events = producer
	}

	orch := orchestrator.New(deps, orchestrator.Config{
		ChunkSize:       cfg.Update.ChunkSize,
		RetryDelay:      cfg.Update.RetryDelay,
		ItemDelay:       cfg.Update.ItemDelay,
		BenchmarkSymbol: cfg.Update.BenchmarkSymbol,
		Interval:        models.IntervalDaily,
	}, log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := orch.Restore(ctx); err != nil {
		return nil, err
	}
	if last := orch.Status().LastCompleted; last != nil {
		recorder.SetLastCompleted(*last)
	}
	return orch, nil
}

// ProvideTrigger builds the daily trigger, nil when disabled.
func ProvideTrigger(cfg *config.Config, orch *orchestrator.Orchestrator, log zerolog.Logger) (*trigger.DailyTrigger, error) {
	if !cfg.Trigger.Enabled {
		return nil, nil
	}
	loc, err := cfg.Trigger.LoadLocation()
	if err != nil {
		return nil, fmt.Errorf("failed to load trigger location: %w", err)
	}
	return trigger.New(orch, trigger.Config{Cutoff: cfg.Trigger.Cutoff, Location: loc}, log)
}

// ProvideHandler builds the HTTP handlers.
func ProvideHandler(orch *orchestrator.Orchestrator, db *database.DB, series *cache.SeriesCache, log zerolog.Logger) *api.Handler {
	return api.NewHandler(orch, db, series, db, log)
}

// ProvideHTTPServer builds the control-surface server.
func ProvideHTTPServer(cfg *config.Config, handler *api.Handler, reg *prometheus.Registry) *http.Server {
	return &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      api.SetupRoutes(handler, reg),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
