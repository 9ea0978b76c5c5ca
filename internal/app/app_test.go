package app

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trogers1052/stock-signal-service/internal/config"
	"github.com/trogers1052/stock-signal-service/internal/database"
	"github.com/trogers1052/stock-signal-service/internal/models"
	"github.com/trogers1052/stock-signal-service/internal/orchestrator"
)

type emptyStore struct{}

func (emptyStore) ListAll(ctx context.Context) ([]*models.Instrument, error) { return nil, nil }
func (emptyStore) Get(ctx context.Context, symbol string) (*models.Instrument, error) {
	return nil, models.ErrNotFound
}
func (emptyStore) SaveBatch(ctx context.Context, instruments []*models.Instrument) error { return nil }

type emptySeries struct{}

func (emptySeries) Get(ctx context.Context, symbol string, interval models.Interval, force bool) (models.Series, error) {
	return nil, models.ErrEmptyData
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = "0"
	cfg.Server.ShutdownTimeout = time.Second
	cfg.Kafka.Enabled = false
	cfg.Trigger.Enabled = false
	return cfg
}

func TestRunShutsDownOnCancel(t *testing.T) {
	cfg := testConfig(t)
	orch := orchestrator.New(orchestrator.Deps{Store: emptyStore{}, Series: emptySeries{}}, orchestrator.Config{}, zerolog.Nop())
	server := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	a := New(cfg, zerolog.Nop(), server, orch, nil, nil)

	require.True(t, orch.Start())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.False(t, orch.Status().Status.Active())
}

func TestOptionalProvidersDisabled(t *testing.T) {
	cfg := testConfig(t)

	producer, cleanup := ProvideProducer(cfg, zerolog.Nop())
	assert.Nil(t, producer)
	cleanup()

	consumer, cleanup := ProvideConsumer(cfg, nil, zerolog.Nop())
	assert.Nil(t, consumer)
	cleanup()

	trig, err := ProvideTrigger(cfg, nil, zerolog.Nop())
	require.NoError(t, err)
	assert.Nil(t, trig)
}

func TestProvideRecordStoreDefaultsToDatabase(t *testing.T) {
	cfg := testConfig(t)
	store, cleanup, err := ProvideRecordStore(cfg, nil, zerolog.Nop())
	require.NoError(t, err)
	defer cleanup()
	assert.IsType(t, (*database.DB)(nil), store)
}

func TestProvideHTTPServer(t *testing.T) {
	cfg := testConfig(t)
	reg := ProvideRegistry()
	srv := ProvideHTTPServer(cfg, nil, reg)
	assert.Equal(t, "127.0.0.1:0", srv.Addr)
	assert.Equal(t, cfg.Server.ReadTimeout, srv.ReadTimeout)
}
