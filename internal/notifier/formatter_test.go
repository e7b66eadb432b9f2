package notifier

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"DCAAdvisor/internal/model"
	"DCAAdvisor/internal/strategy"
)

func TestFormatInvestmentReminder(t *testing.T) {
	sig := &model.InvestmentSignal{
		Symbol: "SPY", Date: time.Date(2024, 1, 10, 17, 0, 0, 0, time.UTC),
		Price: 80, SMA: 97, Std: 0, AvgStd: 1.2, Weight: 1.2125, BaseAmount: 1000,
		Allocation:    model.Allocation{Shares: 15, Amount: 1200},
		MACDHistogram: -0.42, RSI: 31,
	}
	msg := FormatInvestmentReminder(sig)
	assert.Contains(t, msg, "SPY | 2024-01-10")
	assert.Contains(t, msg, "当前价格: $80.00")
	assert.Contains(t, msg, "建议购买: 15 股")
	assert.Contains(t, msg, "投资金额: $1200.00")
	assert.Contains(t, msg, "投资权重: 1.21x")
	assert.Contains(t, msg, "偏弱")

	sig.Allocation = model.Allocation{}
	assert.Contains(t, FormatInvestmentReminder(sig), "建议购买: 0 股")
}

func TestFormatRebalanceReport(t *testing.T) {
	res := model.RebalanceResult{
		Status:  model.RebalanceSuccess,
		Date:    time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Trades:  map[string]int64{"B": -20, "A": 20, "C": 0},
		Amounts: map[string]float64{"A": 200, "B": -200, "C": 0},
	}
	msg := FormatRebalanceReport(res, map[string]int64{"A": 120, "B": 80})

	assert.Contains(t, msg, "2024-01-15")
	assert.Contains(t, msg, "A: 买入 20 股，金额 $200.00")
	assert.Contains(t, msg, "B: 卖出 20 股，金额 $200.00")
	assert.NotContains(t, msg, "C: ")
	assert.Less(t, strings.Index(msg, "A: 买入"), strings.Index(msg, "B: 卖出"))
	assert.Contains(t, msg, "A: 120 股")

	skipped := FormatRebalanceReport(model.RebalanceResult{Status: model.RebalanceSkipped, Reason: model.ReasonBelowMinimum}, nil)
	assert.Contains(t, skipped, "skipped")
	assert.Contains(t, skipped, model.ReasonBelowMinimum)

	failed := FormatRebalanceReport(model.RebalanceResult{Status: model.RebalanceError, Error: "missing price for B"}, nil)
	assert.Contains(t, failed, "missing price for B")
}

func TestFormatRebalanceAlert(t *testing.T) {
	msg := FormatRebalanceAlert(0.1, 2)
	assert.Contains(t, msg, "最大偏差: 10.00%")
	assert.Contains(t, msg, "建议交易数: 2")
}

func TestFormatReturns(t *testing.T) {
	r := model.Returns{TotalInvestment: 1000, TotalShares: 10, CurrentValue: 1200, TotalReturn: 200, ReturnRate: 20}
	msg := FormatReturns("QQQ", r, nil)
	assert.Contains(t, msg, "$+200.00 (+20.00%)")
	assert.NotContains(t, msg, "年化")

	ann := 9.5
	assert.Contains(t, FormatReturns("QQQ", r, &ann), "年化收益: +9.50%")
}

func TestFormatBacktest(t *testing.T) {
	res := &strategy.BacktestResult{
		Symbol: "VTI",
		Trades: []model.Trade{
			{Date: time.Date(2023, 1, 11, 0, 0, 0, 0, time.UTC)},
			{Date: time.Date(2023, 2, 8, 0, 0, 0, 0, time.UTC)},
		},
		Returns:          model.Returns{TotalInvestment: 2000, CurrentValue: 2100, TotalReturn: 100, ReturnRate: 5},
		AnnualizedReturn: 7.25,
		Days:             300,
		FinalPrice:       210,
	}
	msg := FormatBacktest(res)
	assert.Contains(t, msg, "2023-01-11 ~ 2023-02-08 (300 天)")
	assert.Contains(t, msg, "定投次数: 2")
	assert.Contains(t, msg, "年化收益: +7.25%")
}

func TestFormatStatus(t *testing.T) {
	last := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	s := Status{
		Now:              time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC),
		Tickers:          []string{"SPY", "QQQ"},
		NextInvestment:   time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC),
		RebalanceEnabled: true,
		Period:           model.PeriodQuarterly,
		Threshold:        0.05,
		Targets:          map[string]float64{"SPY": 0.6, "QQQ": 0.4},
		Holdings:         map[string]int64{"SPY": 120, "QQQ": 80, "GLD": 5},
		Allocations:      map[string]float64{"SPY": 0.58, "QQQ": 0.4, "GLD": 0.02},
		MaxDeviation:     0.02,
		LastRebalance:    &last,
		NextRebalance:    time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	}
	msg := FormatStatus(s)
	assert.Contains(t, msg, "SPY, QQQ")
	assert.Contains(t, msg, "2024-02-14 (Wed)")
	assert.Contains(t, msg, "SPY: 60.0% / 58.0% / 120")
	assert.Contains(t, msg, "GLD: 0.0% / 2.0% / 5")
	assert.Contains(t, msg, "上次再平衡: 2024-01-15")

	s.RebalanceEnabled = false
	assert.Contains(t, FormatStatus(s), "再平衡: 未启用")
}

func TestFormatMarketOpen(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}
	msg := FormatMarketOpen(time.Date(2024, 1, 10, 9, 30, 0, 0, ny))
	assert.Contains(t, msg, "09:30 EST")
}
