// Package provider fetches OHLCV series and descriptive metadata from the
// Yahoo Finance JSON endpoints.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/trogers1052/stock-signal-service/internal/models"
)

const (
	DefaultBaseURL   = "https://query1.finance.yahoo.com"
	DefaultUserAgent = "Mozilla/5.0 (compatible; stock-signal-service)"
)

var localCode = regexp.MustCompile(`^\d{4}$`)

// Config configures a Client.
type Config struct {
	BaseURL      string
	UserAgent    string
	Timeout      time.Duration
	MarketSuffix string
}

// Client talks to the chart and quoteSummary endpoints.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	userAgent    string
	marketSuffix string
}

// NewClient creates a Client with defaults for any unset field.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:    cfg.UserAgent,
		marketSuffix: cfg.MarketSuffix,
	}
}

// Ticker maps a stored symbol to the provider ticker. Four-digit local codes
// get the market suffix, e.g. 7203 becomes 7203.T.
func (c *Client) Ticker(symbol string) string {
	if c.marketSuffix != "" && localCode.MatchString(symbol) {
		return symbol + c.marketSuffix
	}
	return symbol
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *apiError     `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		GMTOffset int `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*int64   `json:"volume"`
		} `json:"quote"`
		AdjClose []struct {
			AdjClose []*float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *apiError) notFound() bool {
	return e != nil && strings.EqualFold(e.Code, "Not Found")
}

// FetchSeries downloads bars for symbol. Prices are adjusted by the
// adjusted-close ratio and bars with missing fields are dropped. A missing
// symbol or an empty answer wraps models.ErrEmptyData.
func (c *Client) FetchSeries(ctx context.Context, symbol string, interval models.Interval, period string) (models.Series, error) {
	q := url.Values{}
	q.Set("range", period)
	q.Set("interval", string(interval))
	q.Set("includeAdjustedClose", "true")
	q.Set("events", "div,splits")
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(c.Ticker(symbol)), q.Encode())

	var resp chartResponse
	status, err := c.getJSON(ctx, endpoint, &resp)
	if status == http.StatusNotFound || resp.Chart.Error.notFound() {
		return nil, fmt.Errorf("%w: %s not found", models.ErrEmptyData, symbol)
	}
	if err != nil {
		return nil, err
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("chart error for %s: %s: %s", symbol, resp.Chart.Error.Code, resp.Chart.Error.Description)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching %s", status, symbol)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: no result for %s", models.ErrEmptyData, symbol)
	}

	series, err := toSeries(resp.Chart.Result[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", models.ErrEmptyData, symbol, err)
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("%w: no usable bars for %s", models.ErrEmptyData, symbol)
	}
	return series, nil
}

func toSeries(r chartResult) (models.Series, error) {
	if len(r.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("missing quote block")
	}
	q := r.Indicators.Quote[0]
	n := len(r.Timestamp)
	if len(q.Open) != n || len(q.High) != n || len(q.Low) != n || len(q.Close) != n || len(q.Volume) != n {
		return nil, fmt.Errorf("quote columns do not match %d timestamps", n)
	}
	var adj []*float64
	if len(r.Indicators.AdjClose) > 0 && len(r.Indicators.AdjClose[0].AdjClose) == n {
		adj = r.Indicators.AdjClose[0].AdjClose
	}

	exchange := time.FixedZone("exchange", r.Meta.GMTOffset)
	series := make(models.Series, 0, n)
	for i, ts := range r.Timestamp {
		if q.Open[i] == nil || q.High[i] == nil || q.Low[i] == nil || q.Close[i] == nil {
			continue
		}
		factor := 1.0
		if adj != nil && adj[i] != nil && *q.Close[i] != 0 {
			factor = *adj[i] / *q.Close[i]
		}
		var volume int64
		if q.Volume[i] != nil {
			volume = *q.Volume[i]
		}

		y, m, d := time.Unix(ts, 0).In(exchange).Date()
		series = append(series, models.Bar{
			Time:   time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
			Open:   *q.Open[i] * factor,
			High:   *q.High[i] * factor,
			Low:    *q.Low[i] * factor,
			Close:  *q.Close[i] * factor,
			Volume: volume,
		})
	}
	return series.Normalize(), nil
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			AssetProfile struct {
				Sector   string `json:"sector"`
				Industry string `json:"industry"`
			} `json:"assetProfile"`
			Price struct {
				LongName  string `json:"longName"`
				ShortName string `json:"shortName"`
			} `json:"price"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"quoteSummary"`
}

// FetchDescriptiveInfo looks up sector, industry and display name.
func (c *Client) FetchDescriptiveInfo(ctx context.Context, symbol string) (models.Descriptive, error) {
	endpoint := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=assetProfile,price",
		c.baseURL, url.PathEscape(c.Ticker(symbol)))

	var resp quoteSummaryResponse
	status, err := c.getJSON(ctx, endpoint, &resp)
	if err != nil {
		return models.Descriptive{}, err
	}
	if resp.QuoteSummary.Error != nil {
		return models.Descriptive{}, fmt.Errorf("quote summary error for %s: %s", symbol, resp.QuoteSummary.Error.Description)
	}
	if status != http.StatusOK || len(resp.QuoteSummary.Result) == 0 {
		return models.Descriptive{}, fmt.Errorf("no descriptive info for %s (status %d)", symbol, status)
	}

	r := resp.QuoteSummary.Result[0]
	name := r.Price.LongName
	if name == "" {
		name = r.Price.ShortName
	}
	return models.Descriptive{
		Name:     name,
		Sector:   r.AssetProfile.Sector,
		Industry: r.AssetProfile.Industry,
	}, nil
}

// getJSON decodes the body into out for any status and returns the status.
// Error bodies from the API are JSON too.
func (c *Client) getJSON(ctx context.Context, endpoint string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to call provider: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		if resp.StatusCode != http.StatusOK {
			return resp.StatusCode, fmt.Errorf("unexpected status %d from provider", resp.StatusCode)
		}
		return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.StatusCode, nil
}
