package calculator

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"DCAAdvisor/internal/model"
)

// NeutralRSI is reported when there are not enough values to seed the average.
const NeutralRSI = 50.0

// RSI returns the latest Wilder-smoothed relative strength index of values.
// Fewer than period+1 values yield NeutralRSI.
func RSI(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("%w: rsi period %d must be positive", model.ErrInvalidInput, period)
	}
	if len(values) < period+1 {
		return NeutralRSI, nil
	}
	if err := checkInput(values, period); err != nil {
		return 0, err
	}

	gains, losses := moves(values)
	p := float64(period)
	avgGain := floats.Sum(gains[:period]) / p
	avgLoss := floats.Sum(losses[:period]) / p
	for i := period; i < len(gains); i++ {
		avgGain = (avgGain*(p-1) + gains[i]) / p
		avgLoss = (avgLoss*(p-1) + losses[i]) / p
	}

	if avgLoss == 0 {
		return 100, nil
	}
	return 100 * avgGain / (avgGain + avgLoss), nil
}

// moves splits consecutive differences into non-negative gains and losses.
func moves(values []float64) (gains, losses []float64) {
	gains = make([]float64, len(values)-1)
	losses = make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		if d := values[i] - values[i-1]; d > 0 {
			gains[i-1] = d
		} else {
			losses[i-1] = -d
		}
	}
	return gains, losses
}
