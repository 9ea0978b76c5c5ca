package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// truncateOrder lists every migrated table, children first.
var truncateOrder = []string{"series_bars", "series_cache", "update_runs", "instruments"}

// TestDB is a migrated DB backed by a throwaway postgres container.
type TestDB struct {
	*DB
	container *tcpostgres.PostgresContainer
	connStr   string
}

// SetupTestDB starts postgres:15-alpine, connects and applies db/migrations.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("signals_test"),
		tcpostgres.WithUsername("signals"),
		tcpostgres.WithPassword("signals"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(45*time.Second),
		),
	)
	require.NoError(t, err, "start postgres container")

	tdb := &TestDB{container: container}
	tdb.connStr, err = container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		tdb.Cleanup(t)
		t.Fatalf("container connection string: %v", err)
	}

	if tdb.DB, err = New(tdb.connStr); err != nil {
		tdb.Cleanup(t)
		t.Fatalf("connect: %v", err)
	}
	if err := tdb.RunMigrations(); err != nil {
		tdb.Cleanup(t)
		t.Fatalf("migrate: %v", err)
	}
	return tdb
}

// RunMigrations applies db/migrations, located relative to this file.
func (tdb *TestDB) RunMigrations() error {
	_, file, _, _ := runtime.Caller(0)
	return tdb.Migrate(filepath.Join(filepath.Dir(file), "..", "..", "db", "migrations"))
}

// Cleanup closes the connection and terminates the container.
func (tdb *TestDB) Cleanup(t *testing.T) {
	t.Helper()
	if tdb.DB != nil {
		_ = tdb.DB.Close()
	}
	if tdb.container != nil {
		if err := tdb.container.Terminate(context.Background()); err != nil {
			t.Errorf("terminate container: %v", err)
		}
	}
}

func (tdb *TestDB) TruncateAll(t *testing.T) {
	t.Helper()
	_, err := tdb.conn.Exec("TRUNCATE TABLE " + strings.Join(truncateOrder, ", ") + " CASCADE")
	require.NoError(t, err, "truncate")
}

func (tdb *TestDB) GetRawConn() *sql.DB { return tdb.conn }

func (tdb *TestDB) ConnectionString() string { return tdb.connStr }
