// Package fund accounts for invested capital and persists the portfolio state.
package fund

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"DCAAdvisor/internal/model"
)

const daysPerYear = 365.25

// Aggregate sums a trade ledger and values it at currentPrice.
// ReturnRate is a percentage; a ledger with zero total investment is rejected.
func Aggregate(trades []model.Trade, currentPrice float64) (model.Returns, error) {
	if currentPrice < 0 || math.IsNaN(currentPrice) || math.IsInf(currentPrice, 0) {
		return model.Returns{}, fmt.Errorf("%w: current price %v", model.ErrInvalidInput, currentPrice)
	}

	invested := decimal.Zero
	var shares int64
	for _, t := range trades {
		invested = invested.Add(decimal.NewFromFloat(t.Amount))
		shares += t.Shares
	}
	if invested.IsZero() {
		return model.Returns{}, fmt.Errorf("%w: total investment is zero", model.ErrInvalidInput)
	}

	value := decimal.NewFromInt(shares).Mul(decimal.NewFromFloat(currentPrice))
	gain := value.Sub(invested)
	rate := gain.Div(invested).Mul(decimal.NewFromInt(100))

	return model.Returns{
		TotalInvestment: invested.InexactFloat64(),
		TotalShares:     shares,
		CurrentValue:    value.InexactFloat64(),
		TotalReturn:     gain.InexactFloat64(),
		ReturnRate:      rate.InexactFloat64(),
	}, nil
}

// Annualize converts a total return over days into a compounded yearly percentage.
func Annualize(totalReturn, totalInvestment float64, days int) (float64, error) {
	if days <= 0 {
		return 0, fmt.Errorf("%w: days must be positive, got %d", model.ErrInvalidInput, days)
	}
	if totalInvestment == 0 {
		return 0, fmt.Errorf("%w: total investment is zero", model.ErrInvalidInput)
	}
	r := totalReturn / totalInvestment
	return (math.Pow(1+r, daysPerYear/float64(days)) - 1) * 100, nil
}

// Filter returns the trades for one symbol.
func Filter(trades []model.Trade, symbol string) []model.Trade {
	var out []model.Trade
	for _, t := range trades {
		if t.Symbol == symbol {
			out = append(out, t)
		}
	}
	return out
}

// HoldingDays counts whole days between the first trade and asOf.
func HoldingDays(trades []model.Trade, asOf time.Time) int {
	if len(trades) == 0 {
		return 0
	}
	first := trades[0].Date
	for _, t := range trades[1:] {
		if t.Date.Before(first) {
			first = t.Date
		}
	}
	return int(asOf.Sub(first).Hours() / 24)
}
