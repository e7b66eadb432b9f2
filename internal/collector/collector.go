package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"DCAAdvisor/internal/cache"
	"DCAAdvisor/internal/model"
)

// FailureRecorder receives quote provider failures.
type FailureRecorder interface {
	RecordFetchFailure(source, operation string)
}

// Snapshot is the market data needed for one evaluation.
type Snapshot struct {
	Series *model.PriceSeries
	Quote  *model.Quote
}

// Collector fetches history through the cache and current quotes directly.
type Collector struct {
	fetcher     Fetcher
	cache       *cache.Cache[string, *model.PriceSeries]
	historyDays int
	now         func() time.Time
	log         zerolog.Logger

	Failures FailureRecorder
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, c *cache.Cache[string, *model.PriceSeries], historyDays int, log zerolog.Logger) *Collector {
	if c == nil {
		c = cache.New[string, *model.PriceSeries](cache.DefaultTTL, nil)
	}
	return &Collector{
		fetcher:     fetcher,
		cache:       c,
		historyDays: historyDays,
		now:         time.Now,
		log:         log.With().Str("component", "collector").Str("source", fetcher.Name()).Logger(),
	}
}

// History returns the daily series for symbol, from cache when fresh.
func (c *Collector) History(ctx context.Context, symbol string) (*model.PriceSeries, error) {
	if s, ok := c.cache.Get(symbol); ok {
		return s, nil
	}
	end := c.now()
	start := end.AddDate(0, 0, -c.historyDays)
	s, err := c.fetcher.FetchHistorical(ctx, symbol, start, end)
	if err != nil {
		c.recordFailure("history")
		return nil, fmt.Errorf("fetch history %s: %w", symbol, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("history %s: %w", symbol, err)
	}
	c.cache.Set(symbol, s)
	c.log.Debug().Str("symbol", symbol).Int("points", s.Len()).Msg("history cached")
	return s, nil
}

// Quote returns the current quote for symbol.
func (c *Collector) Quote(ctx context.Context, symbol string) (*model.Quote, error) {
	q, err := c.fetcher.FetchCurrent(ctx, symbol)
	if err != nil {
		c.recordFailure("quote")
		return nil, fmt.Errorf("fetch quote %s: %w", symbol, err)
	}
	return q, nil
}

// Collect returns history plus a current quote. When the live quote fails the
// last close stands in for it.
func (c *Collector) Collect(ctx context.Context, symbol string) (*Snapshot, error) {
	series, err := c.History(ctx, symbol)
	if err != nil {
		return nil, err
	}
	quote, err := c.Quote(ctx, symbol)
	if err != nil {
		last := series.Last()
		c.log.Warn().Err(err).Str("symbol", symbol).Float64("close", last.AdjClose).Msg("live quote failed, using last close")
		quote = &model.Quote{Symbol: symbol, Price: last.AdjClose, Timestamp: last.Date}
	}
	return &Snapshot{Series: series, Quote: quote}, nil
}

// Prices returns the current price for every symbol, or the first failure.
func (c *Collector) Prices(ctx context.Context, symbols []string) (map[string]float64, error) {
	prices := make(map[string]float64, len(symbols))
	for _, sym := range symbols {
		q, err := c.Quote(ctx, sym)
		if err != nil {
			return nil, err
		}
		prices[sym] = q.Price
	}
	return prices, nil
}

// Refresh drops the cached history for symbol.
func (c *Collector) Refresh(symbol string) {
	c.cache.Invalidate(symbol)
}

// PurgeExpired evicts stale histories and returns how many were dropped.
func (c *Collector) PurgeExpired() int {
	n := c.cache.Purge()
	if n > 0 {
		c.log.Debug().Int("evicted", n).Msg("expired histories purged")
	}
	return n
}

func (c *Collector) recordFailure(op string) {
	if c.Failures != nil {
		c.Failures.RecordFetchFailure(c.fetcher.Name(), op)
	}
}
