package calculator

import (
	"fmt"

	"DCAAdvisor/internal/model"
)

// ComputeIndicators runs SMA, rolling std and MACD over the adjusted closes of a series.
// The returned arrays belong to the caller.
func ComputeIndicators(series *model.PriceSeries, smaWindow, stdWindow int) (*model.IndicatorSet, error) {
	if err := series.Validate(); err != nil {
		return nil, err
	}
	prices := series.AdjustedCloses()

	sma, err := SimpleMovingAverage(prices, smaWindow)
	if err != nil {
		return nil, fmt.Errorf("sma: %w", err)
	}
	std, err := RollingStdDev(prices, stdWindow)
	if err != nil {
		return nil, fmt.Errorf("std: %w", err)
	}
	macd, err := MACD(prices)
	if err != nil {
		return nil, fmt.Errorf("macd: %w", err)
	}
	return &model.IndicatorSet{SMA: sma, Std: std, MACD: macd}, nil
}
