package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/stock-signal-service/internal/models"
)

func newTestRedisStore(t *testing.T, opts ...RedisOption) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, opts...), mr
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()

	t.Run("miss returns nil", func(t *testing.T) {
		store, _ := newTestRedisStore(t)
		rec, err := store.LoadSeries(ctx, "AAPL", models.IntervalDaily)
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("round trip keeps bars and fetch time", func(t *testing.T) {
		store, mr := newTestRedisStore(t, WithKeyPrefix("test:"))
		fetched := time.Date(2026, 10, 14, 6, 0, 0, 0, time.UTC)
		in := &models.CacheRecord{
			Symbol:    "AAPL",
			Interval:  models.IntervalWeekly,
			Series:    dailyEnding(date(2026, 10, 12), 3),
			FetchedAt: fetched,
		}
		require.NoError(t, store.StoreSeries(ctx, in))
		assert.True(t, mr.Exists("test:series:AAPL:1wk"))

		out, err := store.LoadSeries(ctx, "AAPL", models.IntervalWeekly)
		require.NoError(t, err)
		require.NotNil(t, out)
		assert.Equal(t, in.Series, out.Series)
		assert.True(t, fetched.Equal(out.FetchedAt))
	})

	t.Run("ttl expires records", func(t *testing.T) {
		store, mr := newTestRedisStore(t, WithTTL(time.Hour))
		require.NoError(t, store.StoreSeries(ctx, &models.CacheRecord{Symbol: "MSFT", Interval: models.IntervalDaily}))
		assert.Equal(t, time.Hour, mr.TTL("series:MSFT:1d"))

		mr.FastForward(2 * time.Hour)
		rec, err := store.LoadSeries(ctx, "MSFT", models.IntervalDaily)
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("delete removes every interval and is idempotent", func(t *testing.T) {
		store, mr := newTestRedisStore(t)
		for _, interval := range models.CachedIntervals {
			require.NoError(t, store.StoreSeries(ctx, &models.CacheRecord{Symbol: "AAPL", Interval: interval}))
		}
		require.NoError(t, store.StoreSeries(ctx, &models.CacheRecord{Symbol: "MSFT", Interval: models.IntervalDaily}))

		require.NoError(t, store.DeleteSeries(ctx, "AAPL"))
		require.NoError(t, store.DeleteSeries(ctx, "AAPL"))

		assert.False(t, mr.Exists("series:AAPL:1d"))
		assert.False(t, mr.Exists("series:AAPL:1wk"))
		assert.False(t, mr.Exists("series:AAPL:1mo"))
		assert.True(t, mr.Exists("series:MSFT:1d"))
	})

	t.Run("corrupt value is an error", func(t *testing.T) {
		store, mr := newTestRedisStore(t)
		require.NoError(t, mr.Set("series:BAD:1d", "not json"))
		_, err := store.LoadSeries(ctx, "BAD", models.IntervalDaily)
		assert.Error(t, err)
	})

	t.Run("ping", func(t *testing.T) {
		store, _ := newTestRedisStore(t)
		assert.NoError(t, store.Ping(ctx))
	})
}
