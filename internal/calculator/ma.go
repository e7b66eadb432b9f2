package calculator

import (
	"fmt"
	"math"

	"DCAAdvisor/internal/model"
)

// SimpleMovingAverage returns the trailing mean of values over window.
// Entries before index window-1 are NaN. The sum is maintained incrementally.
func SimpleMovingAverage(values []float64, window int) ([]float64, error) {
	if err := checkInput(values, window); err != nil {
		return nil, err
	}
	out := make([]float64, len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i < window-1 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(window)
	}
	return out, nil
}

// ExponentialMovingAverage seeds with the first value and smooths with k = 2/(window+1).
// Every entry is defined.
func ExponentialMovingAverage(values []float64, window int) ([]float64, error) {
	if err := checkInput(values, window); err != nil {
		return nil, err
	}
	k := 2.0 / float64(window+1)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = values[i]*k + out[i-1]*(1-k)
	}
	return out, nil
}

// Defined reports whether an indicator entry holds a value.
func Defined(v float64) bool {
	return !math.IsNaN(v)
}

// Latest returns the last defined entry of an indicator array.
func Latest(values []float64) (float64, bool) {
	for i := len(values) - 1; i >= 0; i-- {
		if Defined(values[i]) {
			return values[i], true
		}
	}
	return 0, false
}

func checkInput(values []float64, window int) error {
	if window <= 0 {
		return fmt.Errorf("%w: window must be positive, got %d", model.ErrInvalidInput, window)
	}
	if len(values) == 0 {
		return fmt.Errorf("%w: empty series", model.ErrInvalidInput)
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite value at index %d", model.ErrInvalidInput, i)
		}
	}
	return nil
}
