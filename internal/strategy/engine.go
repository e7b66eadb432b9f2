package strategy

import (
	"fmt"

	"DCAAdvisor/internal/calculator"
	"DCAAdvisor/internal/config"
	"DCAAdvisor/internal/model"
)

const rsiPeriod = 14

// Evaluator turns a price history and a current quote into an investment signal.
type Evaluator struct {
	cfg config.Investment
}

// NewEvaluator creates an Evaluator for the given investment parameters.
func NewEvaluator(cfg config.Investment) *Evaluator {
	return &Evaluator{cfg: cfg}
}

// Bounds returns the configured weight bounds.
func (e *Evaluator) Bounds() Bounds {
	return Bounds{Min: e.cfg.MinWeight, Max: e.cfg.MaxWeight}
}

// Evaluate computes indicators over series and sizes today's purchase at quote's price.
// A nil quote falls back to the last adjusted close.
func (e *Evaluator) Evaluate(series *model.PriceSeries, quote *model.Quote) (*model.InvestmentSignal, error) {
	set, err := calculator.ComputeIndicators(series, e.cfg.SMAWindow, e.cfg.STDWindow)
	if err != nil {
		return nil, err
	}

	last := series.Last()
	price := last.AdjClose
	date := last.Date
	if quote != nil {
		price = quote.Price
		if !quote.Timestamp.IsZero() {
			date = quote.Timestamp
		}
	}

	sma, ok := calculator.Latest(set.SMA)
	if !ok {
		return nil, fmt.Errorf("%w: %s: %d observations, SMA(%d) needs more history",
			model.ErrInvalidInput, series.Symbol, series.Len(), e.cfg.SMAWindow)
	}
	std, ok := calculator.Latest(set.Std)
	if !ok {
		return nil, fmt.Errorf("%w: %s: %d observations, STD(%d) needs more history",
			model.ErrInvalidInput, series.Symbol, series.Len(), e.cfg.STDWindow)
	}
	avgStd, _ := calculator.MeanDefined(set.Std)

	sig, err := e.size(price, sma, std, avgStd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", series.Symbol, err)
	}
	sig.Symbol = series.Symbol
	sig.Date = date
	sig.MACDHistogram = set.MACD.Histogram[len(set.MACD.Histogram)-1]
	if rsi, err := calculator.RSI(series.AdjustedCloses(), rsiPeriod); err == nil {
		sig.RSI = rsi
	}
	return sig, nil
}

func (e *Evaluator) size(price, sma, std, avgStd float64) (*model.InvestmentSignal, error) {
	weight, err := ComputeWeight(price, sma, std, avgStd, e.Bounds())
	if err != nil {
		return nil, err
	}
	alloc, err := ComputeInvestment(price, weight, e.cfg.BaseInvestment)
	if err != nil {
		return nil, err
	}
	return &model.InvestmentSignal{
		Price:      price,
		SMA:        sma,
		Std:        std,
		AvgStd:     avgStd,
		Weight:     weight,
		BaseAmount: e.cfg.BaseInvestment,
		Allocation: alloc,
	}, nil
}
