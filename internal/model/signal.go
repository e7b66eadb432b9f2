package model

import "time"

// Allocation is a concrete whole-share purchase.
type Allocation struct {
	Shares int64   `json:"shares"`
	Amount float64 `json:"amount"`
}

// InvestmentSignal is the output of one weight evaluation for a symbol.
type InvestmentSignal struct {
	Symbol        string     `json:"symbol"`
	Date          time.Time  `json:"date"`
	Price         float64    `json:"price"`
	SMA           float64    `json:"sma"`
	Std           float64    `json:"std"`
	AvgStd        float64    `json:"avg_std"`
	Weight        float64    `json:"weight"`
	BaseAmount    float64    `json:"base_amount"`
	Allocation    Allocation `json:"allocation"`
	MACDHistogram float64    `json:"macd_histogram"`
	RSI           float64    `json:"rsi"`
}

// Trade is an executed or recommended purchase. Immutable once recorded.
type Trade struct {
	ID     string    `json:"id"`
	Date   time.Time `json:"date"`
	Symbol string    `json:"symbol"`
	Price  float64   `json:"price"`
	Shares int64     `json:"shares"`
	Amount float64   `json:"amount"`
}

// Returns aggregates a trade ledger against a current price.
type Returns struct {
	TotalInvestment float64 `json:"total_investment"`
	TotalShares     int64   `json:"total_shares"`
	CurrentValue    float64 `json:"current_value"`
	TotalReturn     float64 `json:"total_return"`
	ReturnRate      float64 `json:"return_rate"` // percent
}
