package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)

	t.Run("all tables exist", func(t *testing.T) {
		expectedTables := []string{
			"instruments",
			"series_cache",
			"series_bars",
			"update_runs",
		}

		for _, tableName := range expectedTables {
			var exists bool
			err := testDB.GetRawConn().QueryRow(`
				SELECT EXISTS (
					SELECT FROM information_schema.tables
					WHERE table_schema = 'public'
					AND table_name = $1
				)
			`, tableName).Scan(&exists)

			require.NoError(t, err, "failed to check table existence for %s", tableName)
			assert.True(t, exists, "table %s should exist", tableName)
		}
	})

	t.Run("instruments table has correct columns", func(t *testing.T) {
		expectedColumns := map[string]string{
			"symbol":          "character varying",
			"asset_type":      "character varying",
			"sector":          "character varying",
			"current_price":   "numeric",
			"change_pct_200d": "numeric",
			"deviation_ma5":   "numeric",
			"slope_ma200":     "numeric",
			"atr_14":          "numeric",
			"rs_50d":          "numeric",
			"is_in_uptrend":   "boolean",
			"signals":         "jsonb",
			"computed_at":     "timestamp with time zone",
		}

		for column, dataType := range expectedColumns {
			var actual string
			err := testDB.GetRawConn().QueryRow(`
				SELECT data_type FROM information_schema.columns
				WHERE table_name = 'instruments' AND column_name = $1
			`, column).Scan(&actual)

			require.NoError(t, err, "column %s should exist", column)
			assert.Equal(t, dataType, actual, "column %s type", column)
		}
	})

	t.Run("migrations are idempotent", func(t *testing.T) {
		db, err := New(testDB.ConnectionString())
		require.NoError(t, err)
		defer db.Close()

		require.NoError(t, testDB.RunMigrations())
	})
}
