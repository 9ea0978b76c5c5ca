package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trogers1052/stock-signal-service/internal/models"
)

// Session opens on 2025-10-13, 10-14 and 10-15 at 09:00 JST, deliberately out of order.
const chartBody = `{"chart":{"result":[{
  "meta":{"gmtoffset":32400},
  "timestamp":[1760400000,1760313600,1760486400],
  "indicators":{
    "quote":[{
      "open":[110,100,null],
      "high":[120,105,130],
      "low":[100,95,120],
      "close":[115,100,125],
      "volume":[2000,1000,3000]
    }],
    "adjclose":[{"adjclose":[57.5,100,125]}]
  }
}],"error":null}}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, Timeout: 5 * time.Second, MarketSuffix: ".T"})
}

func TestTicker(t *testing.T) {
	c := NewClient(Config{MarketSuffix: ".T"})
	assert.Equal(t, "7203.T", c.Ticker("7203"))
	assert.Equal(t, "^GSPC", c.Ticker("^GSPC"))
	assert.Equal(t, "AAPL", c.Ticker("AAPL"))
	assert.Equal(t, "12345", c.Ticker("12345"))

	bare := NewClient(Config{})
	assert.Equal(t, "7203", bare.Ticker("7203"))
}

func TestFetchSeries(t *testing.T) {
	var gotPath string
	var gotQuery map[string][]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chartBody))
	})

	series, err := c.FetchSeries(context.Background(), "7203", models.IntervalDaily, models.PeriodTwoYears)
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/7203.T", gotPath)
	assert.Equal(t, []string{"2y"}, gotQuery["range"])
	assert.Equal(t, []string{"1d"}, gotQuery["interval"])
	assert.Equal(t, []string{"true"}, gotQuery["includeAdjustedClose"])

	require.Len(t, series, 2, "bar with a null open is dropped")

	first := series[0]
	assert.True(t, first.Time.Equal(time.Date(2025, 10, 13, 0, 0, 0, 0, time.UTC)), first.Time.String())
	assert.Equal(t, 100.0, first.Close)

	second := series[1]
	assert.True(t, second.Time.After(first.Time))
	assert.InDelta(t, 57.5, second.Close, 1e-9)
	assert.InDelta(t, 55.0, second.Open, 1e-9)
	assert.InDelta(t, 60.0, second.High, 1e-9)
	assert.InDelta(t, 50.0, second.Low, 1e-9)
	assert.Equal(t, int64(2000), second.Volume)
}

func TestFetchSeriesTimesAreUTCMidnight(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chartBody))
	})
	series, err := c.FetchSeries(context.Background(), "7203", models.IntervalDaily, models.PeriodTwoYears)
	require.NoError(t, err)
	for _, b := range series {
		assert.Equal(t, time.UTC, b.Time.Location())
		assert.Zero(t, b.Time.Hour())
		assert.Zero(t, b.Time.Minute())
	}
}

func TestFetchSeriesNotFound(t *testing.T) {
	t.Run("chart error code", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
		})
		_, err := c.FetchSeries(context.Background(), "9999", models.IntervalDaily, models.PeriodTwoYears)
		assert.ErrorIs(t, err, models.ErrEmptyData)
	})

	t.Run("plain 404", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		})
		_, err := c.FetchSeries(context.Background(), "9999", models.IntervalDaily, models.PeriodTwoYears)
		assert.ErrorIs(t, err, models.ErrEmptyData)
	})

	t.Run("empty result", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"chart":{"result":[],"error":null}}`))
		})
		_, err := c.FetchSeries(context.Background(), "9999", models.IntervalDaily, models.PeriodTwoYears)
		assert.ErrorIs(t, err, models.ErrEmptyData)
	})

	t.Run("no timestamps", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"chart":{"result":[{"meta":{"gmtoffset":0},"indicators":{"quote":[{}]}}],"error":null}}`))
		})
		_, err := c.FetchSeries(context.Background(), "9999", models.IntervalDaily, models.PeriodTwoYears)
		assert.ErrorIs(t, err, models.ErrEmptyData)
	})
}

func TestFetchSeriesServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("oops"))
	})
	_, err := c.FetchSeries(context.Background(), "7203", models.IntervalDaily, models.PeriodTwoYears)
	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrEmptyData)
}

func TestFetchSeriesHonoursContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chartBody))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.FetchSeries(ctx, "7203", models.IntervalDaily, models.PeriodTwoYears)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchDescriptiveInfo(t *testing.T) {
	var gotPath, gotModules string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotModules = r.URL.Query().Get("modules")
		_, _ = w.Write([]byte(`{"quoteSummary":{"result":[{
			"assetProfile":{"sector":"Consumer Cyclical","industry":"Auto Manufacturers"},
			"price":{"longName":"Toyota Motor Corporation","shortName":"TOYOTA MOTOR CORP"}
		}],"error":null}}`))
	})

	info, err := c.FetchDescriptiveInfo(context.Background(), "7203")
	require.NoError(t, err)
	assert.Equal(t, "/v10/finance/quoteSummary/7203.T", gotPath)
	assert.Equal(t, "assetProfile,price", gotModules)
	assert.Equal(t, models.Descriptive{
		Name:     "Toyota Motor Corporation",
		Sector:   "Consumer Cyclical",
		Industry: "Auto Manufacturers",
	}, info)
}

func TestFetchDescriptiveInfoFallsBackToShortName(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"quoteSummary":{"result":[{"price":{"shortName":"SPDR S&P 500"}}],"error":null}}`))
	})
	info, err := c.FetchDescriptiveInfo(context.Background(), "SPY")
	require.NoError(t, err)
	assert.Equal(t, "SPDR S&P 500", info.Name)
	assert.Empty(t, info.Sector)
}

func TestFetchDescriptiveInfoError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"quoteSummary":{"result":null,"error":{"code":"Not Found","description":"Quote not found"}}}`))
	})
	_, err := c.FetchDescriptiveInfo(context.Background(), "9999")
	assert.Error(t, err)
}
