package strategy

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"DCAAdvisor/internal/model"
)

// Bounds limits the investment weight.
type Bounds struct {
	Min float64
	Max float64
}

// ComputeWeight scales the base investment by how far price sits below its moving average,
// amplified by relative volatility:
//
//	n      = 1 + std/avgStd   (1 when avgStd is zero)
//	weight = (sma/price)^n, clamped to bounds
func ComputeWeight(price, sma, std, avgStd float64, bounds Bounds) (float64, error) {
	if !finite(price) || price <= 0 {
		return 0, fmt.Errorf("%w: price must be positive, got %v", model.ErrInvalidInput, price)
	}
	for name, v := range map[string]float64{"sma": sma, "std": std, "avgStd": avgStd} {
		if !finite(v) || v < 0 {
			return 0, fmt.Errorf("%w: %s must be finite and non-negative, got %v", model.ErrInvalidInput, name, v)
		}
	}
	if !finite(bounds.Min) || !finite(bounds.Max) || bounds.Min > bounds.Max {
		return 0, fmt.Errorf("%w: weight bounds [%v, %v]", model.ErrInvalidInput, bounds.Min, bounds.Max)
	}

	n := 1.0
	if avgStd > 0 {
		n = 1 + std/avgStd
	}
	weight := math.Pow(sma/price, n)
	return math.Max(math.Min(weight, bounds.Max), bounds.Min), nil
}

// ComputeInvestment buys whole shares only, rounding down, so the spend never
// exceeds baseInvestment*weight.
func ComputeInvestment(price, weight, baseInvestment float64) (model.Allocation, error) {
	if !finite(price) || price <= 0 {
		return model.Allocation{}, fmt.Errorf("%w: price must be positive, got %v", model.ErrInvalidInput, price)
	}
	if !finite(weight) || weight < 0 || !finite(baseInvestment) || baseInvestment < 0 {
		return model.Allocation{}, fmt.Errorf("%w: weight %v, base %v", model.ErrInvalidInput, weight, baseInvestment)
	}

	target := baseInvestment * weight
	shares := int64(math.Floor(target / price))
	amount := spend(shares, price)
	for shares > 0 && amount > target {
		shares--
		amount = spend(shares, price)
	}
	return model.Allocation{Shares: shares, Amount: amount}, nil
}

func spend(shares int64, price float64) float64 {
	return decimal.NewFromInt(shares).Mul(decimal.NewFromFloat(price)).InexactFloat64()
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
