package recorder

import "DCAAdvisor/internal/model"

// Recorder persists the trade and rebalance ledger.
type Recorder interface {
	// RecordTrade stores a recommended purchase, assigning an ID when empty.
	RecordTrade(t *model.Trade) error
	RecordSignal(sig *model.InvestmentSignal) error
	// RecordRebalance stores a rebalance result. Re-recording an ID is a no-op.
	RecordRebalance(res *model.RebalanceResult) error
	// ListTrades returns trades oldest first; an empty symbol lists all.
	ListTrades(symbol string) ([]model.Trade, error)
	ListRebalances() ([]model.RebalanceResult, error)
	Close() error
}
