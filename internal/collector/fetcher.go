package collector

import (
	"context"
	"time"

	"DCAAdvisor/internal/model"
)

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	FetchHistorical(ctx context.Context, symbol string, start, end time.Time) (*model.PriceSeries, error)
	FetchCurrent(ctx context.Context, symbol string) (*model.Quote, error)
	Name() string
}
