package notifier

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"DCAAdvisor/internal/model"
	"DCAAdvisor/internal/strategy"
)

// Status is the snapshot shown by the /status command.
type Status struct {
	Now              time.Time
	Tickers          []string
	NextInvestment   time.Time
	RebalanceEnabled bool
	Period           model.RebalancePeriod
	Threshold        float64
	Targets          map[string]float64
	Holdings         map[string]int64
	Allocations      map[string]float64
	MaxDeviation     float64
	LastRebalance    *time.Time
	NextRebalance    time.Time
	Metrics          model.RebalanceMetrics
}

// FormatInvestmentReminder formats a scheduled-day investment suggestion.
func FormatInvestmentReminder(sig *model.InvestmentSignal) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("💰 <b>投资提醒</b> | %s | %s\n\n", sig.Symbol, sig.Date.Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("当前价格: $%.2f\n", sig.Price))
	smaDev := 0.0
	if sig.SMA > 0 {
		smaDev = (sig.Price - sig.SMA) / sig.SMA * 100
	}
	b.WriteString(fmt.Sprintf("均线: $%.2f (偏离 %+.1f%%)\n", sig.SMA, smaDev))
	b.WriteString(fmt.Sprintf("波动率: %.2f (均值 %.2f)\n", sig.Std, sig.AvgStd))
	b.WriteString(fmt.Sprintf("投资权重: %.2fx\n\n", sig.Weight))

	if sig.Allocation.Shares == 0 {
		b.WriteString(fmt.Sprintf("建议购买: 0 股 (预算 $%.2f 不足一股)\n", sig.BaseAmount*sig.Weight))
	} else {
		b.WriteString(fmt.Sprintf("建议购买: %d 股\n", sig.Allocation.Shares))
		b.WriteString(fmt.Sprintf("投资金额: $%.2f (基准 $%.0f)\n", sig.Allocation.Amount, sig.BaseAmount))
	}

	trend := "偏弱"
	if sig.MACDHistogram > 0 {
		trend = "偏强"
	}
	b.WriteString(fmt.Sprintf("\nMACD柱: %+.3f (%s) | RSI: %.0f", sig.MACDHistogram, trend, sig.RSI))
	return b.String()
}

// FormatRebalanceReport formats a rebalance result with the resulting holdings.
func FormatRebalanceReport(res model.RebalanceResult, holdings map[string]int64) string {
	if res.Status != model.RebalanceSuccess {
		detail := res.Reason
		if res.Status == model.RebalanceError {
			detail = res.Error
		}
		return fmt.Sprintf("⚖️ <b>再平衡状态:</b> %s\n原因: %s", res.Status, detail)
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("⚖️ <b>再平衡执行日期:</b> %s\n\n", res.Date.Format("2006-01-02")))
	b.WriteString("交易详情:\n")
	for _, asset := range sortedKeys(res.Trades) {
		shares := res.Trades[asset]
		if shares == 0 {
			continue
		}
		action := "买入"
		if shares < 0 {
			action = "卖出"
		}
		b.WriteString(fmt.Sprintf("  %s: %s %d 股，金额 $%.2f\n", asset, action, abs(shares), math.Abs(res.Amounts[asset])))
	}

	b.WriteString("\n当前持仓:\n")
	for _, asset := range sortedKeys(holdings) {
		b.WriteString(fmt.Sprintf("  %s: %d 股\n", asset, holdings[asset]))
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatRebalanceAlert formats a drift warning.
func FormatRebalanceAlert(maxDeviation float64, tradesCount int) string {
	return fmt.Sprintf("⚠️ <b>再平衡提醒</b>\n\n投资组合需要再平衡\n最大偏差: %.2f%%\n建议交易数: %d",
		maxDeviation*100, tradesCount)
}

// FormatReturns formats the returns for one symbol. annualized may be nil
// when the holding period is too short to annualize.
func FormatReturns(symbol string, r model.Returns, annualized *float64) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📈 <b>收益统计</b> | %s\n\n", symbol))
	b.WriteString(fmt.Sprintf("累计投入: $%.2f\n", r.TotalInvestment))
	b.WriteString(fmt.Sprintf("持有股数: %d\n", r.TotalShares))
	b.WriteString(fmt.Sprintf("当前市值: $%.2f\n", r.CurrentValue))
	b.WriteString(fmt.Sprintf("总收益: $%+.2f (%+.2f%%)", r.TotalReturn, r.ReturnRate))
	if annualized != nil {
		b.WriteString(fmt.Sprintf("\n年化收益: %+.2f%%", *annualized))
	}
	return b.String()
}

// FormatBacktest formats a schedule replay over history.
func FormatBacktest(res *strategy.BacktestResult) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🧪 <b>回测</b> | %s\n\n", res.Symbol))
	if n := len(res.Trades); n > 0 {
		b.WriteString(fmt.Sprintf("区间: %s ~ %s (%d 天)\n",
			res.Trades[0].Date.Format("2006-01-02"), res.Trades[n-1].Date.Format("2006-01-02"), res.Days))
	}
	b.WriteString(fmt.Sprintf("定投次数: %d\n", len(res.Trades)))
	b.WriteString(fmt.Sprintf("最新价格: $%.2f\n", res.FinalPrice))
	b.WriteString(fmt.Sprintf("累计投入: $%.2f\n", res.Returns.TotalInvestment))
	b.WriteString(fmt.Sprintf("当前市值: $%.2f\n", res.Returns.CurrentValue))
	b.WriteString(fmt.Sprintf("总收益: $%+.2f (%+.2f%%)\n", res.Returns.TotalReturn, res.Returns.ReturnRate))
	b.WriteString(fmt.Sprintf("年化收益: %+.2f%%", res.AnnualizedReturn))
	return b.String()
}

// FormatMarketOpen formats the pre-open reminder.
func FormatMarketOpen(openTime time.Time) string {
	return fmt.Sprintf("🔔 <b>市场开盘提醒</b>\n\n美股市场将于 %s 开盘", openTime.Format("15:04 MST"))
}

// FormatStatus formats the advisor status.
func FormatStatus(s Status) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📦 <b>DCA Advisor 状态</b> | %s\n\n", s.Now.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("标的: %s\n", strings.Join(s.Tickers, ", ")))
	b.WriteString(fmt.Sprintf("下次定投日: %s\n", s.NextInvestment.Format("2006-01-02 (Mon)")))

	if !s.RebalanceEnabled {
		b.WriteString("\n再平衡: 未启用")
		return b.String()
	}

	b.WriteString(fmt.Sprintf("\n再平衡周期: %s | 阈值: %.1f%%\n", s.Period, s.Threshold*100))
	b.WriteString("配置 (目标 / 当前 / 持股):\n")
	assets := sortedKeys(s.Targets)
	for _, asset := range sortedKeys(s.Holdings) {
		if _, ok := s.Targets[asset]; !ok {
			assets = append(assets, asset)
		}
	}
	for _, asset := range assets {
		b.WriteString(fmt.Sprintf("  %s: %.1f%% / %.1f%% / %d\n",
			asset, s.Targets[asset]*100, s.Allocations[asset]*100, s.Holdings[asset]))
	}
	b.WriteString(fmt.Sprintf("最大偏差: %.2f%%\n", s.MaxDeviation*100))
	if s.LastRebalance != nil {
		b.WriteString(fmt.Sprintf("上次再平衡: %s\n", s.LastRebalance.Format("2006-01-02")))
	} else {
		b.WriteString("上次再平衡: 无\n")
	}
	b.WriteString(fmt.Sprintf("下次可再平衡: %s\n", s.NextRebalance.Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("历史: %d 次检查, %d 次执行, 平均 %.1f 笔/次",
		s.Metrics.RebalanceCount, s.Metrics.SuccessfulRebalances, s.Metrics.AverageTradesPerRebalance))
	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
