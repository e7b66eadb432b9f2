package model

import (
	"fmt"
	"strings"
	"time"
)

// RebalancePeriod is the minimum calendar-month cadence between rebalances.
type RebalancePeriod string

const (
	PeriodMonthly    RebalancePeriod = "MONTHLY"
	PeriodQuarterly  RebalancePeriod = "QUARTERLY"
	PeriodSemiannual RebalancePeriod = "SEMIANNUAL"
	PeriodAnnual     RebalancePeriod = "ANNUAL"
)

// ParseRebalancePeriod parses a period name case-insensitively.
func ParseRebalancePeriod(s string) (RebalancePeriod, error) {
	p := RebalancePeriod(strings.ToUpper(strings.TrimSpace(s)))
	if _, err := p.Months(); err != nil {
		return "", err
	}
	return p, nil
}

// Months returns the cadence length in calendar months.
func (p RebalancePeriod) Months() (int, error) {
	switch p {
	case PeriodMonthly:
		return 1, nil
	case PeriodQuarterly:
		return 3, nil
	case PeriodSemiannual:
		return 6, nil
	case PeriodAnnual:
		return 12, nil
	default:
		return 0, fmt.Errorf("%w: unknown rebalance period %q", ErrConfiguration, string(p))
	}
}

// PortfolioState is the persisted part of the rebalance state.
type PortfolioState struct {
	TargetAllocations map[string]float64 `json:"target_allocations"`
	CurrentHoldings   map[string]int64   `json:"current_holdings"`
	LastRebalanceAt   *time.Time         `json:"last_rebalance_at,omitempty"`
	UpdatedAt         time.Time          `json:"updated_at"`
}
