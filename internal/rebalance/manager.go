// Package rebalance tracks a target allocation against current holdings and
// sizes the trades that bring the portfolio back in line.
package rebalance

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"DCAAdvisor/internal/config"
	"DCAAdvisor/internal/model"
)

// Manager owns one portfolio's rebalance state. It performs no I/O and is not
// safe for concurrent use; callers serialize access.
type Manager struct {
	period         model.RebalancePeriod
	months         int
	threshold      float64
	minTradeAmount float64

	targets  map[string]float64
	holdings map[string]int64
	marks    map[string]float64
	history  []model.RebalanceResult
	last     *time.Time
}

// NewManager builds a manager from a defaulted rebalance config.
func NewManager(cfg config.Rebalance) (*Manager, error) {
	period, err := model.ParseRebalancePeriod(cfg.Period)
	if err != nil {
		return nil, err
	}
	months, _ := period.Months()
	if cfg.Threshold < 0 || cfg.MinTradeAmount < 0 {
		return nil, fmt.Errorf("%w: negative rebalance threshold or minimum trade", model.ErrConfiguration)
	}
	m := &Manager{
		period:         period,
		months:         months,
		threshold:      cfg.Threshold,
		minTradeAmount: cfg.MinTradeAmount,
		holdings:       map[string]int64{},
		marks:          map[string]float64{},
	}
	m.SetTargetAllocations(cfg.Targets)
	return m, nil
}

// SetTargetAllocations replaces the target weights. Weights are not required to sum to 1.
func (m *Manager) SetTargetAllocations(targets map[string]float64) {
	m.targets = make(map[string]float64, len(targets))
	for k, v := range targets {
		m.targets[k] = v
	}
}

// UpdateCurrentHoldings replaces the share counts.
func (m *Manager) UpdateCurrentHoldings(holdings map[string]int64) {
	m.holdings = make(map[string]int64, len(holdings))
	for k, v := range holdings {
		m.holdings[k] = v
	}
}

// UpdatePrices replaces the mark prices used to value holdings.
func (m *Manager) UpdatePrices(prices map[string]float64) {
	m.marks = make(map[string]float64, len(prices))
	for k, v := range prices {
		m.marks[k] = v
	}
}

// SetPeriod changes the cadence.
func (m *Manager) SetPeriod(period string) error {
	p, err := model.ParseRebalancePeriod(period)
	if err != nil {
		return err
	}
	m.period = p
	m.months, _ = p.Months()
	return nil
}

// Period returns the configured cadence.
func (m *Manager) Period() model.RebalancePeriod { return m.period }

// Threshold returns the deviation threshold as a fraction.
func (m *Manager) Threshold() float64 { return m.threshold }

// IsRebalanceDue reports whether enough calendar months have passed since the
// last rebalance. Day of month is ignored.
func (m *Manager) IsRebalanceDue(today time.Time) bool {
	if m.last == nil {
		return true
	}
	return monthsBetween(*m.last, today) >= m.months
}

func monthsBetween(from, to time.Time) int {
	return (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
}

// CurrentAllocations returns each holding's share of the portfolio. Holdings are
// valued at the mark prices when every held asset has one, otherwise by share
// count. An empty portfolio reports the targets.
func (m *Manager) CurrentAllocations() map[string]float64 {
	useMarks := true
	for asset, shares := range m.holdings {
		if p, ok := m.marks[asset]; shares != 0 && (!ok || p <= 0) {
			useMarks = false
			break
		}
	}

	values := make(map[string]float64, len(m.holdings))
	var total float64
	for asset, shares := range m.holdings {
		v := float64(shares)
		if useMarks {
			v *= m.marks[asset]
		}
		values[asset] = v
		total += v
	}

	if total == 0 {
		return m.Targets()
	}
	out := make(map[string]float64, len(values))
	for asset, v := range values {
		out[asset] = v / total
	}
	return out
}

// MaxDeviation is the largest absolute gap between a target weight and its
// current weight. Assets outside the targets are ignored.
func (m *Manager) MaxDeviation(current map[string]float64) float64 {
	var worst float64
	for asset, target := range m.targets {
		if d := math.Abs(target - current[asset]); d > worst {
			worst = d
		}
	}
	return worst
}

// NeedsRebalance reports whether the cadence is due and the drift exceeds the threshold.
func (m *Manager) NeedsRebalance(today time.Time) bool {
	if !m.IsRebalanceDue(today) {
		return false
	}
	return m.MaxDeviation(m.CurrentAllocations()) > m.threshold
}

// ExecuteRebalance evaluates the portfolio at the given prices and applies the
// trades when they clear the minimum. A portfolio off its cadence is skipped
// before any price is looked at. Every outcome is appended to the history.
// Failures, including panics, come back as error results.
func (m *Manager) ExecuteRebalance(today time.Time, prices map[string]float64) (result model.RebalanceResult) {
	defer func() {
		if r := recover(); r != nil {
			result = m.record(model.RebalanceResult{
				Status: model.RebalanceError,
				Date:   today,
				Error:  fmt.Sprintf("rebalance panicked: %v", r),
			})
		}
	}()

	notNeeded := model.RebalanceResult{Status: model.RebalanceSkipped, Date: today, Reason: model.ReasonNotNeeded}
	if !m.IsRebalanceDue(today) {
		return m.record(notNeeded)
	}

	if err := m.checkInputs(prices); err != nil {
		return m.record(model.RebalanceResult{Status: model.RebalanceError, Date: today, Error: err.Error()})
	}
	m.UpdatePrices(prices)

	if m.MaxDeviation(m.CurrentAllocations()) <= m.threshold {
		return m.record(notNeeded)
	}

	trades := m.requiredTrades(prices)
	amounts := make(map[string]float64, len(trades))
	for asset, shares := range trades {
		amount := decimal.NewFromInt(shares).Mul(decimal.NewFromFloat(prices[asset]))
		abs := amount.Abs().InexactFloat64()
		if abs > 0 && abs < m.minTradeAmount {
			return m.record(model.RebalanceResult{Status: model.RebalanceSkipped, Date: today, Reason: model.ReasonBelowMinimum})
		}
		amounts[asset] = amount.InexactFloat64()
	}

	for asset, shares := range trades {
		m.holdings[asset] += shares
	}
	last := today
	m.last = &last

	return m.record(model.RebalanceResult{
		Status:  model.RebalanceSuccess,
		Date:    today,
		Trades:  trades,
		Amounts: amounts,
	})
}

// checkInputs requires finite target weights and a positive finite price for
// every target and held asset.
func (m *Manager) checkInputs(prices map[string]float64) error {
	check := func(asset string) error {
		p, ok := prices[asset]
		if !ok {
			return fmt.Errorf("%w: missing price for %s", model.ErrInvalidInput, asset)
		}
		if p <= 0 || math.IsNaN(p) || math.IsInf(p, 0) {
			return fmt.Errorf("%w: invalid price %v for %s", model.ErrInvalidInput, p, asset)
		}
		return nil
	}
	for _, asset := range sortedKeys(m.targets) {
		if w := m.targets[asset]; w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("%w: invalid target weight %v for %s", model.ErrInvalidInput, w, asset)
		}
		if err := check(asset); err != nil {
			return err
		}
	}
	for asset, shares := range m.holdings {
		if shares == 0 {
			continue
		}
		if err := check(asset); err != nil {
			return err
		}
	}
	return nil
}

// requiredTrades rounds each target gap to the nearest whole share.
func (m *Manager) requiredTrades(prices map[string]float64) map[string]int64 {
	var total float64
	for asset, shares := range m.holdings {
		if shares != 0 {
			total += float64(shares) * prices[asset]
		}
	}

	trades := make(map[string]int64, len(m.targets))
	for asset, weight := range m.targets {
		current := float64(m.holdings[asset]) * prices[asset]
		trades[asset] = int64(math.Round((total*weight - current) / prices[asset]))
	}
	return trades
}

func (m *Manager) record(r model.RebalanceResult) model.RebalanceResult {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	m.history = append(m.history, r)
	return r
}

// History returns a copy of every recorded result, oldest first.
func (m *Manager) History() []model.RebalanceResult {
	out := make([]model.RebalanceResult, len(m.history))
	copy(out, m.history)
	return out
}

// LoadHistory replaces the history, typically with entries read back from the ledger.
func (m *Manager) LoadHistory(results []model.RebalanceResult) {
	m.history = make([]model.RebalanceResult, len(results))
	copy(m.history, results)
	sort.SliceStable(m.history, func(i, j int) bool { return m.history[i].Date.Before(m.history[j].Date) })
	if m.last != nil {
		return
	}
	for i := len(m.history) - 1; i >= 0; i-- {
		if m.history[i].Status == model.RebalanceSuccess {
			last := m.history[i].Date
			m.last = &last
			return
		}
	}
}

// LastRebalanceDate returns the date of the last successful rebalance, if any.
func (m *Manager) LastRebalanceDate() (time.Time, bool) {
	if m.last == nil {
		return time.Time{}, false
	}
	return *m.last, true
}

// NextRebalanceDate returns the first day of the month in which the cadence is
// due again, or today when it already is. Like IsRebalanceDue it ignores the
// day of month of the last rebalance.
func (m *Manager) NextRebalanceDate(today time.Time) time.Time {
	if m.last == nil {
		return today
	}
	next := time.Date(m.last.Year(), m.last.Month()+time.Month(m.months), 1, 0, 0, 0, 0, m.last.Location())
	if next.Before(today) {
		return today
	}
	return next
}

// PerformanceMetrics summarizes the history.
func (m *Manager) PerformanceMetrics() model.RebalanceMetrics {
	var metrics model.RebalanceMetrics
	metrics.RebalanceCount = len(m.history)
	for _, r := range m.history {
		if r.Status != model.RebalanceSuccess {
			continue
		}
		metrics.SuccessfulRebalances++
		for _, shares := range r.Trades {
			if shares != 0 {
				metrics.TotalTrades++
			}
		}
	}
	denom := metrics.SuccessfulRebalances
	if denom == 0 {
		denom = 1
	}
	metrics.AverageTradesPerRebalance = float64(metrics.TotalTrades) / float64(denom)
	return metrics
}

// Holdings returns a copy of the share counts.
func (m *Manager) Holdings() map[string]int64 {
	out := make(map[string]int64, len(m.holdings))
	for k, v := range m.holdings {
		out[k] = v
	}
	return out
}

// Targets returns a copy of the target weights.
func (m *Manager) Targets() map[string]float64 {
	out := make(map[string]float64, len(m.targets))
	for k, v := range m.targets {
		out[k] = v
	}
	return out
}

// Snapshot exports the persistable state.
func (m *Manager) Snapshot(now time.Time) model.PortfolioState {
	state := model.PortfolioState{
		TargetAllocations: m.Targets(),
		CurrentHoldings:   m.Holdings(),
		UpdatedAt:         now,
	}
	if m.last != nil {
		last := *m.last
		state.LastRebalanceAt = &last
	}
	return state
}

// Restore loads persisted state. Empty target maps keep the configured targets.
func (m *Manager) Restore(state model.PortfolioState) {
	if len(state.TargetAllocations) > 0 {
		m.SetTargetAllocations(state.TargetAllocations)
	}
	m.UpdateCurrentHoldings(state.CurrentHoldings)
	if state.LastRebalanceAt != nil {
		last := *state.LastRebalanceAt
		m.last = &last
	} else {
		m.last = nil
	}
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
