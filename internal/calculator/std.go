package calculator

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// RollingStdDev returns the population standard deviation of the trailing window.
// Entries before index window-1 are NaN.
func RollingStdDev(values []float64, window int) ([]float64, error) {
	if err := checkInput(values, window); err != nil {
		return nil, err
	}
	out := make([]float64, len(values))
	for i := range values {
		if i < window-1 {
			out[i] = math.NaN()
			continue
		}
		_, std := stat.PopMeanStdDev(values[i-window+1:i+1], nil)
		out[i] = std
	}
	return out, nil
}

// MeanDefined averages the defined entries, returning false if there are none.
func MeanDefined(values []float64) (float64, bool) {
	defined := make([]float64, 0, len(values))
	for _, v := range values {
		if Defined(v) {
			defined = append(defined, v)
		}
	}
	if len(defined) == 0 {
		return 0, false
	}
	return stat.Mean(defined, nil), true
}
