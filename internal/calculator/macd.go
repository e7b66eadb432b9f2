package calculator

import "DCAAdvisor/internal/model"

const (
	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9
)

// MACD computes the 12/26 EMA difference, its 9-period signal and the histogram.
func MACD(values []float64) (model.MACD, error) {
	fast, err := ExponentialMovingAverage(values, macdFast)
	if err != nil {
		return model.MACD{}, err
	}
	slow, err := ExponentialMovingAverage(values, macdSlow)
	if err != nil {
		return model.MACD{}, err
	}
	line := make([]float64, len(values))
	for i := range line {
		line[i] = fast[i] - slow[i]
	}
	signal, err := ExponentialMovingAverage(line, macdSignal)
	if err != nil {
		return model.MACD{}, err
	}
	hist := make([]float64, len(values))
	for i := range hist {
		hist[i] = line[i] - signal[i]
	}
	return model.MACD{Line: line, Signal: signal, Histogram: hist}, nil
}
