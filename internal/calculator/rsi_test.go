package calculator

import (
	"math"
	"testing"

	"github.com/markcheno/go-talib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DCAAdvisor/internal/model"
)

func TestRSI_Extremes(t *testing.T) {
	rising := make([]float64, 20)
	for i := range rising {
		rising[i] = float64(100 + i)
	}
	rsi, err := RSI(rising, 14)
	require.NoError(t, err)
	assert.Equal(t, 100.0, rsi)

	falling := make([]float64, 20)
	for i := range falling {
		falling[i] = float64(200 - i)
	}
	rsi, err = RSI(falling, 14)
	require.NoError(t, err)
	assert.Equal(t, 0.0, rsi)
}

func TestRSI_ShortSeriesIsNeutral(t *testing.T) {
	rsi, err := RSI([]float64{1, 2, 3, 4, 5}, 14)
	require.NoError(t, err)
	assert.Equal(t, NeutralRSI, rsi)
}

func TestRSI_MatchesTalib(t *testing.T) {
	prices := samplePrices(300)
	for _, period := range []int{2, 14, 30} {
		rsi, err := RSI(prices, period)
		require.NoError(t, err)
		want := talib.Rsi(prices, period)
		assert.InDelta(t, want[len(want)-1], rsi, 1e-8, "period %d", period)
	}
}

func TestRSI_InvalidInput(t *testing.T) {
	_, err := RSI(samplePrices(30), 0)
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	prices := samplePrices(30)
	prices[10] = math.NaN()
	_, err = RSI(prices, 14)
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}
