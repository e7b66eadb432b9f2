package collector

import (
	"context"
	"math"
	"time"

	"DCAAdvisor/internal/model"
)

// MockFetcher returns controllable deterministic data for development and testing.
type MockFetcher struct {
	Price  float64
	Series *model.PriceSeries
	Err    error

	HistoryCalls int
	QuoteCalls   int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchHistorical(_ context.Context, symbol string, start, end time.Time) (*model.PriceSeries, error) {
	m.HistoryCalls++
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Series != nil {
		s := *m.Series
		s.Symbol = symbol
		s.Points = append([]model.PricePoint(nil), m.Series.Points...)
		return &s, nil
	}
	return GenerateSeries(symbol, m.Price, start, end), nil
}

func (m *MockFetcher) FetchCurrent(_ context.Context, symbol string) (*model.Quote, error) {
	m.QuoteCalls++
	if m.Err != nil {
		return nil, m.Err
	}
	return &model.Quote{Symbol: symbol, Price: m.Price, Timestamp: time.Now()}, nil
}

// GenerateSeries builds a weekday-only series oscillating around basePrice.
func GenerateSeries(symbol string, basePrice float64, start, end time.Time) *model.PriceSeries {
	s := &model.PriceSeries{Symbol: symbol, FetchedAt: time.Now()}
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	for i := 0; !day.After(end); day = day.AddDate(0, 0, 1) {
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		p := basePrice * (1 + 0.08*math.Sin(float64(i)/20) + float64(i)*0.0002)
		s.Points = append(s.Points, model.PricePoint{Date: day, Close: p, AdjClose: p})
		i++
	}
	return s
}
