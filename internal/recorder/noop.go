package recorder

import "DCAAdvisor/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordTrade(_ *model.Trade) error                 { return nil }
func (n *NoopRecorder) RecordSignal(_ *model.InvestmentSignal) error     { return nil }
func (n *NoopRecorder) RecordRebalance(_ *model.RebalanceResult) error   { return nil }
func (n *NoopRecorder) ListTrades(_ string) ([]model.Trade, error)        { return nil, nil }
func (n *NoopRecorder) ListRebalances() ([]model.RebalanceResult, error) { return nil, nil }
func (n *NoopRecorder) Close() error                                     { return nil }
