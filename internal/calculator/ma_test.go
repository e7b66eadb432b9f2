package calculator

import (
	"math"
	"testing"

	"github.com/markcheno/go-talib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DCAAdvisor/internal/model"
)

func samplePrices(n int) []float64 {
	prices := make([]float64, n)
	for i := range prices {
		prices[i] = 100 + 10*math.Sin(float64(i)/7) + float64(i)*0.3
	}
	return prices
}

func TestSimpleMovingAverage_Basic(t *testing.T) {
	sma, err := SimpleMovingAverage([]float64{1, 2, 3, 4, 5}, 3)
	require.NoError(t, err)
	require.Len(t, sma, 5)

	assert.True(t, math.IsNaN(sma[0]))
	assert.True(t, math.IsNaN(sma[1]))
	assert.InDelta(t, 2.0, sma[2], 1e-12)
	assert.InDelta(t, 3.0, sma[3], 1e-12)
	assert.InDelta(t, 4.0, sma[4], 1e-12)
}

func TestSimpleMovingAverage_MatchesTalib(t *testing.T) {
	prices := samplePrices(300)
	for _, window := range []int{1, 5, 30, 200} {
		sma, err := SimpleMovingAverage(prices, window)
		require.NoError(t, err)
		want := talib.Sma(prices, window)
		require.Len(t, sma, len(prices))
		for i := window - 1; i < len(prices); i++ {
			assert.InDelta(t, want[i], sma[i], 1e-8, "window %d index %d", window, i)
		}
		for i := 0; i < window-1; i++ {
			assert.False(t, Defined(sma[i]), "window %d index %d should be undefined", window, i)
		}
	}
}

func TestSimpleMovingAverage_WindowLongerThanSeries(t *testing.T) {
	sma, err := SimpleMovingAverage([]float64{1, 2}, 5)
	require.NoError(t, err)
	require.Len(t, sma, 2)
	_, ok := Latest(sma)
	assert.False(t, ok)
}

func TestExponentialMovingAverage(t *testing.T) {
	ema, err := ExponentialMovingAverage([]float64{10, 20, 30}, 3)
	require.NoError(t, err)
	// k = 0.5
	assert.Equal(t, []float64{10, 15, 22.5}, ema)
}

func TestExponentialMovingAverage_AlwaysDefined(t *testing.T) {
	prices := samplePrices(50)
	ema, err := ExponentialMovingAverage(prices, 26)
	require.NoError(t, err)
	require.Len(t, ema, len(prices))
	assert.Equal(t, prices[0], ema[0])
	for i, v := range ema {
		assert.True(t, Defined(v), "index %d", i)
	}
}

func TestInvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		window int
	}{
		{"empty", nil, 3},
		{"zero window", []float64{1, 2, 3}, 0},
		{"negative window", []float64{1, 2, 3}, -1},
		{"nan", []float64{1, math.NaN(), 3}, 2},
		{"inf", []float64{1, math.Inf(1), 3}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SimpleMovingAverage(tt.values, tt.window)
			assert.ErrorIs(t, err, model.ErrInvalidInput)
			_, err = RollingStdDev(tt.values, tt.window)
			assert.ErrorIs(t, err, model.ErrInvalidInput)
			_, err = ExponentialMovingAverage(tt.values, tt.window)
			assert.ErrorIs(t, err, model.ErrInvalidInput)
		})
	}
	_, err := MACD(nil)
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}
