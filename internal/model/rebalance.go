package model

import "time"

// RebalanceStatus tags the variant of a RebalanceResult.
type RebalanceStatus string

const (
	RebalanceSkipped RebalanceStatus = "skipped"
	RebalanceError   RebalanceStatus = "error"
	RebalanceSuccess RebalanceStatus = "success"
)

// Skip reasons.
const (
	ReasonNotNeeded    = "Rebalance not needed"
	ReasonBelowMinimum = "Trade amounts below minimum"
)

// RebalanceResult is one entry of the rebalance history.
// Reason is set for skips, Error for errors, Trades and Amounts for successes.
type RebalanceResult struct {
	ID      string             `json:"id,omitempty"`
	Status  RebalanceStatus    `json:"status"`
	Date    time.Time          `json:"date"`
	Reason  string             `json:"reason,omitempty"`
	Error   string             `json:"error,omitempty"`
	Trades  map[string]int64   `json:"trades,omitempty"`
	Amounts map[string]float64 `json:"amounts,omitempty"`
}

// RebalanceMetrics summarizes the rebalance history.
type RebalanceMetrics struct {
	RebalanceCount            int     `json:"rebalance_count"`
	SuccessfulRebalances      int     `json:"successful_rebalances"`
	TotalTrades               int     `json:"total_trades"`
	AverageTradesPerRebalance float64 `json:"average_trades_per_rebalance"`
}
