package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"

	"DCAAdvisor/internal/model"
)

// BreakerConfig holds configuration for the quote provider circuit breaker.
type BreakerConfig struct {
	MaxRequests uint32        // max requests allowed in half-open state
	Interval    time.Duration // cyclic period of the closed state to clear counts
	Timeout     time.Duration // period of the open state before transitioning to half-open
}

// DefaultBreakerConfig trips after repeated provider failures and retries after a minute.
var DefaultBreakerConfig = BreakerConfig{
	MaxRequests: 1,
	Interval:    5 * time.Minute,
	Timeout:     time.Minute,
}

// BreakerFetcher guards another Fetcher with a circuit breaker so a failing
// provider is not hammered once per ticker.
type BreakerFetcher struct {
	next Fetcher
	cb   *gobreaker.CircuitBreaker[any]
}

// NewBreakerFetcher wraps next. onStateChange may be nil.
func NewBreakerFetcher(next Fetcher, cfg BreakerConfig, onStateChange func(name string, from, to gobreaker.State)) *BreakerFetcher {
	settings := gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= 3 {
				return true
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.5
		},
		// A malformed payload for one symbol says nothing about the provider's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, model.ErrInvalidInput)
		},
		IsExcluded: func(err error) bool {
			return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: onStateChange,
	}
	return &BreakerFetcher{next: next, cb: gobreaker.NewCircuitBreaker[any](settings)}
}

func (b *BreakerFetcher) Name() string { return b.next.Name() }

// State returns the breaker state.
func (b *BreakerFetcher) State() gobreaker.State { return b.cb.State() }

func (b *BreakerFetcher) FetchHistorical(ctx context.Context, symbol string, start, end time.Time) (*model.PriceSeries, error) {
	res, err := b.execute(ctx, func() (any, error) {
		return b.next.FetchHistorical(ctx, symbol, start, end)
	})
	if err != nil {
		return nil, err
	}
	return res.(*model.PriceSeries), nil
}

func (b *BreakerFetcher) FetchCurrent(ctx context.Context, symbol string) (*model.Quote, error) {
	res, err := b.execute(ctx, func() (any, error) {
		return b.next.FetchCurrent(ctx, symbol)
	})
	if err != nil {
		return nil, err
	}
	return res.(*model.Quote), nil
}

func (b *BreakerFetcher) execute(ctx context.Context, fn func() (any, error)) (any, error) {
	res, err := b.cb.Execute(func() (any, error) {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %s unavailable: %v", model.ErrUpstream, b.cb.Name(), err)
	}
	return res, err
}

// BreakerStateValue maps a breaker state to a gauge value: 0=closed, 1=half-open, 2=open.
func BreakerStateValue(state gobreaker.State) int {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
