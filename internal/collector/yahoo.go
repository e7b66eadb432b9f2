package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"DCAAdvisor/internal/model"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// YahooFetcher implements Fetcher using the Yahoo Finance chart API.
type YahooFetcher struct {
	BaseURL   string
	Client    *http.Client
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(proxyURL string) *YahooFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &YahooFetcher{
		BaseURL: yahooBaseURL,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		},
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// yahooChart is the response structure from the Yahoo Finance chart API.
// Null quotes decode as nil pointers.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency                   string   `json:"currency"`
				GMTOffset                  int64    `json:"gmtoffset"`
				RegularMarketPrice         *float64 `json:"regularMarketPrice"`
				RegularMarketTime          int64    `json:"regularMarketTime"`
				ChartPreviousClose         float64  `json:"chartPreviousClose"`
				RegularMarketChange        *float64 `json:"regularMarketChange"`
				RegularMarketChangePercent *float64 `json:"regularMarketChangePercent"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (f *YahooFetcher) fetchChart(ctx context.Context, symbol string, query url.Values) (*yahooChart, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", f.BaseURL, url.PathEscape(f.yahooSymbol(symbol)), query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: yahoo fetch %s: %v", model.ErrUpstream, symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: yahoo read body: %v", model.ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: yahoo %s: status %d, body: %s", model.ErrUpstream, symbol, resp.StatusCode, truncate(body, 200))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("%w: yahoo decode: %v", model.ErrInvalidInput, err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("%w: yahoo api error: %s", model.ErrUpstream, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: yahoo returned no result for %s", model.ErrInvalidInput, symbol)
	}
	return &chart, nil
}

// FetchHistorical returns daily closes between start and end. Null closes
// (holidays, halted sessions) are dropped and adjusted closes fall back to the
// raw close when Yahoo omits them.
func (f *YahooFetcher) FetchHistorical(ctx context.Context, symbol string, start, end time.Time) (*model.PriceSeries, error) {
	q := url.Values{}
	q.Set("period1", fmt.Sprint(start.Unix()))
	q.Set("period2", fmt.Sprint(end.Unix()))
	q.Set("interval", "1d")

	chart, err := f.fetchChart(ctx, symbol, q)
	if err != nil {
		return nil, err
	}
	result := chart.Chart.Result[0]
	if len(result.Timestamp) == 0 || len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%w: yahoo returned no quotes for %s", model.ErrInvalidInput, symbol)
	}
	closes := result.Indicators.Quote[0].Close
	if len(closes) != len(result.Timestamp) {
		return nil, fmt.Errorf("%w: yahoo close/timestamp length mismatch for %s", model.ErrInvalidInput, symbol)
	}
	var adj []*float64
	if len(result.Indicators.AdjClose) > 0 {
		adj = result.Indicators.AdjClose[0].AdjClose
	}

	points := make([]model.PricePoint, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if closes[i] == nil {
			continue
		}
		p := model.PricePoint{
			Date:     sessionDate(ts, result.Meta.GMTOffset),
			Close:    *closes[i],
			AdjClose: *closes[i],
		}
		if i < len(adj) && adj[i] != nil {
			p.AdjClose = *adj[i]
		}
		points = append(points, p)
	}

	sort.SliceStable(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	points = dedupeDates(points)

	series := &model.PriceSeries{Symbol: symbol, Points: points, FetchedAt: time.Now()}
	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, err)
	}
	return series, nil
}

// FetchCurrent returns the latest regular-market quote.
func (f *YahooFetcher) FetchCurrent(ctx context.Context, symbol string) (*model.Quote, error) {
	q := url.Values{}
	q.Set("interval", "1m")
	q.Set("range", "1d")

	chart, err := f.fetchChart(ctx, symbol, q)
	if err != nil {
		return nil, err
	}
	meta := chart.Chart.Result[0].Meta
	if meta.RegularMarketPrice == nil || *meta.RegularMarketPrice <= 0 {
		return nil, fmt.Errorf("%w: yahoo quote for %s has no market price", model.ErrInvalidInput, symbol)
	}

	quote := &model.Quote{
		Symbol:    symbol,
		Price:     *meta.RegularMarketPrice,
		Timestamp: time.Unix(meta.RegularMarketTime, 0),
	}
	switch {
	case meta.RegularMarketChange != nil:
		quote.Change = *meta.RegularMarketChange
		if meta.RegularMarketChangePercent != nil {
			quote.ChangePercent = *meta.RegularMarketChangePercent
		}
	case meta.ChartPreviousClose > 0:
		quote.Change = quote.Price - meta.ChartPreviousClose
		quote.ChangePercent = quote.Change / meta.ChartPreviousClose * 100
	}
	return quote, nil
}

// sessionDate converts a bar timestamp to its exchange-local calendar date at UTC midnight.
func sessionDate(ts, gmtOffset int64) time.Time {
	t := time.Unix(ts+gmtOffset, 0).UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// dedupeDates keeps the last point for each date. Yahoo repeats the live bar
// during market hours.
func dedupeDates(points []model.PricePoint) []model.PricePoint {
	out := points[:0]
	for _, p := range points {
		if n := len(out); n > 0 && out[n-1].Date.Equal(p.Date) {
			out[n-1] = p
			continue
		}
		out = append(out, p)
	}
	return out
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
