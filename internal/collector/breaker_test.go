package collector

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DCAAdvisor/internal/model"
)

func TestBreakerFetcher_TripsOnUpstreamFailures(t *testing.T) {
	mock := &MockFetcher{Err: fmt.Errorf("%w: connection refused", model.ErrUpstream)}
	var transitions []gobreaker.State
	b := NewBreakerFetcher(mock, DefaultBreakerConfig, func(_ string, _, to gobreaker.State) {
		transitions = append(transitions, to)
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := b.FetchCurrent(ctx, "SPY")
		require.ErrorIs(t, err, model.ErrUpstream)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())
	assert.Equal(t, []gobreaker.State{gobreaker.StateOpen}, transitions)
	assert.Equal(t, 2, BreakerStateValue(b.State()))

	_, err := b.FetchHistorical(ctx, "SPY", time.Now().AddDate(0, -1, 0), time.Now())
	assert.ErrorIs(t, err, model.ErrUpstream)
	assert.Equal(t, 3, mock.QuoteCalls)
	assert.Equal(t, 0, mock.HistoryCalls, "open breaker must not reach the provider")
}

func TestBreakerFetcher_InvalidInputDoesNotTrip(t *testing.T) {
	mock := &MockFetcher{Err: fmt.Errorf("%w: no result", model.ErrInvalidInput)}
	b := NewBreakerFetcher(mock, DefaultBreakerConfig, nil)

	for i := 0; i < 6; i++ {
		_, err := b.FetchCurrent(context.Background(), "NOPE")
		assert.ErrorIs(t, err, model.ErrInvalidInput)
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
	assert.Equal(t, 6, mock.QuoteCalls)
}

func TestBreakerFetcher_PassesThrough(t *testing.T) {
	mock := &MockFetcher{Price: 100}
	b := NewBreakerFetcher(mock, DefaultBreakerConfig, nil)
	assert.Equal(t, "mock", b.Name())

	q, err := b.FetchCurrent(context.Background(), "QQQ")
	require.NoError(t, err)
	assert.Equal(t, 100.0, q.Price)

	end := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	s, err := b.FetchHistorical(context.Background(), "QQQ", end.AddDate(0, -1, 0), end)
	require.NoError(t, err)
	assert.NoError(t, s.Validate())
}

func TestBreakerFetcher_CancelledContext(t *testing.T) {
	mock := &MockFetcher{Price: 100}
	b := NewBreakerFetcher(mock, DefaultBreakerConfig, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.FetchCurrent(ctx, "QQQ")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, mock.QuoteCalls)
	assert.Equal(t, gobreaker.StateClosed, b.State())
}
