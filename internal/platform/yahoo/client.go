// Package yahoo fetches intraday bars from the Yahoo Finance chart API.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/alanyoungcy/tradejournal/internal/domain"
	"github.com/shopspring/decimal"
)

// Client is the REST client for the chart endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	location   *time.Location
	offset     time.Duration
}

// NewClient creates a new chart API client.
//
// baseURL is the API root, e.g. "https://query1.finance.yahoo.com". Bar times
// are rendered in the exchange's timezone (loc when the response does not
// name one), stripped of their zone, and shifted by offset.
func NewClient(baseURL string, loc *time.Location, offset time.Duration) *Client {
	if loc == nil {
		loc = time.UTC
	}
	return &Client{
		baseURL:  baseURL,
		location: loc,
		offset:   offset,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// FetchBars returns the high/low bars of q.Symbol over q.Range at
// q.Interval, ascending by time. Bars with a null high or low are kept with
// Missing set.
func (c *Client) FetchBars(ctx context.Context, q domain.BarQuery) ([]domain.Bar, error) {
	params := url.Values{}
	params.Set("range", q.Range)
	params.Set("interval", q.Interval)
	params.Set("includePrePost", "false")

	path := fmt.Sprintf("/v8/finance/chart/%s?%s", url.PathEscape(q.Symbol), params.Encode())

	body, err := c.doGet(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("yahoo: fetch %s %s: %w", q.Symbol, q.Interval, err)
	}

	var resp chartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("yahoo: decode chart: %w", err)
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo: chart %s: %s: %s", q.Symbol, resp.Chart.Error.Code, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo: %w: no chart result for %s", domain.ErrNotFound, q.Symbol)
	}

	return c.toBars(resp.Chart.Result[0])
}

func (c *Client) toBars(res chartResult) ([]domain.Bar, error) {
	if len(res.Indicators.Quote) == 0 {
		return nil, nil
	}
	qt := res.Indicators.Quote[0]

	loc := c.location
	if name := res.Meta.ExchangeTimezoneName; name != "" {
		if l, err := time.LoadLocation(name); err == nil {
			loc = l
		}
	}

	bars := make([]domain.Bar, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		stamp := c.naive(time.Unix(ts, 0), loc)
		if i >= len(qt.High) || i >= len(qt.Low) || qt.High[i] == nil || qt.Low[i] == nil {
			bars = append(bars, domain.Bar{Timestamp: stamp, Missing: true})
			continue
		}
		high, err := decimal.NewFromString(qt.High[i].String())
		if err != nil {
			return nil, fmt.Errorf("yahoo: bar %d high: %w", i, err)
		}
		low, err := decimal.NewFromString(qt.Low[i].String())
		if err != nil {
			return nil, fmt.Errorf("yahoo: bar %d low: %w", i, err)
		}
		bars = append(bars, domain.Bar{
			Timestamp: stamp,
			High:      high,
			Low:       low,
		})
	}
	return bars, nil
}

// naive renders t as wall-clock time in loc, drops the zone and applies the
// fixed offset correction.
func (c *Client) naive(t time.Time, loc *time.Location) time.Time {
	w := t.In(loc)
	return time.Date(w.Year(), w.Month(), w.Day(), w.Hour(), w.Minute(), w.Second(), 0, time.UTC).Add(c.offset)
}

func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; tradejournal)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, body)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: %s", domain.ErrRateLimited, body)
	default:
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, body)
	}
}
