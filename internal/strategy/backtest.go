package strategy

import (
	"fmt"

	"DCAAdvisor/internal/calculator"
	"DCAAdvisor/internal/calendar"
	"DCAAdvisor/internal/fund"
	"DCAAdvisor/internal/model"
)

// BacktestResult is the outcome of replaying the schedule over a price history.
type BacktestResult struct {
	Symbol           string
	Trades           []model.Trade
	Returns          model.Returns
	AnnualizedReturn float64
	Days             int
	FinalPrice       float64
}

// Backtest buys on every scheduled date covered by series, using the first observation
// on or after that date and only the indicator history known at that point.
// Dates before the SMA and STD windows fill are skipped.
func (e *Evaluator) Backtest(series *model.PriceSeries, schedule calendar.Schedule) (*BacktestResult, error) {
	set, err := calculator.ComputeIndicators(series, e.cfg.SMAWindow, e.cfg.STDWindow)
	if err != nil {
		return nil, err
	}

	points := series.Points
	res := &BacktestResult{Symbol: series.Symbol, FinalPrice: series.Last().AdjClose}

	i := 0
	for _, d := range schedule.DatesInRange(points[0].Date, points[len(points)-1].Date) {
		for i < len(points) && points[i].Date.Before(d) {
			i++
		}
		if i == len(points) {
			break
		}
		if !calculator.Defined(set.SMA[i]) || !calculator.Defined(set.Std[i]) {
			continue
		}
		avgStd, _ := calculator.MeanDefined(set.Std[:i+1])
		sig, err := e.size(points[i].AdjClose, set.SMA[i], set.Std[i], avgStd)
		if err != nil {
			return nil, fmt.Errorf("%s on %s: %w", series.Symbol, points[i].Date.Format("2006-01-02"), err)
		}
		if sig.Allocation.Shares == 0 {
			continue
		}
		res.Trades = append(res.Trades, model.Trade{
			Date:   points[i].Date,
			Symbol: series.Symbol,
			Price:  points[i].AdjClose,
			Shares: sig.Allocation.Shares,
			Amount: sig.Allocation.Amount,
		})
	}

	if len(res.Trades) == 0 {
		return nil, fmt.Errorf("%w: %s: no scheduled date with full indicator history", model.ErrInvalidInput, series.Symbol)
	}

	res.Returns, err = fund.Aggregate(res.Trades, res.FinalPrice)
	if err != nil {
		return nil, err
	}
	res.Days = fund.HoldingDays(res.Trades, series.Last().Date)
	if res.Days > 0 {
		if res.AnnualizedReturn, err = fund.Annualize(res.Returns.TotalReturn, res.Returns.TotalInvestment, res.Days); err != nil {
			return nil, err
		}
	}
	return res, nil
}
