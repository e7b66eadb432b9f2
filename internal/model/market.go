package model

import (
	"fmt"
	"math"
	"time"
)

// PricePoint is a single daily observation.
type PricePoint struct {
	Date     time.Time `json:"date"`
	Close    float64   `json:"close"`
	AdjClose float64   `json:"adj_close"`
}

// PriceSeries holds a dense, date-ascending series for one symbol.
type PriceSeries struct {
	Symbol    string       `json:"symbol"`
	Points    []PricePoint `json:"points"`
	FetchedAt time.Time    `json:"fetched_at"`
}

// Quote is a snapshot of the current market price.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	Timestamp     time.Time `json:"timestamp"`
}

// Len returns the number of observations.
func (s *PriceSeries) Len() int { return len(s.Points) }

// Validate checks the structural invariants every calculator relies on.
func (s *PriceSeries) Validate() error {
	if s == nil || len(s.Points) == 0 {
		return fmt.Errorf("%w: empty price series", ErrInvalidInput)
	}
	for i, p := range s.Points {
		if !finite(p.Close) || !finite(p.AdjClose) {
			return fmt.Errorf("%w: %s: non-finite price at %s", ErrInvalidInput, s.Symbol, p.Date.Format("2006-01-02"))
		}
		if i == 0 {
			continue
		}
		if !p.Date.After(s.Points[i-1].Date) {
			return fmt.Errorf("%w: %s: dates not strictly ascending at index %d", ErrInvalidInput, s.Symbol, i)
		}
	}
	return nil
}

// Closes returns the raw closing prices.
func (s *PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Close
	}
	return out
}

// AdjustedCloses returns the split/dividend adjusted closing prices.
func (s *PriceSeries) AdjustedCloses() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.AdjClose
	}
	return out
}

// Dates returns the observation dates.
func (s *PriceSeries) Dates() []time.Time {
	out := make([]time.Time, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Date
	}
	return out
}

// Last returns the most recent observation.
func (s *PriceSeries) Last() PricePoint {
	return s.Points[len(s.Points)-1]
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
