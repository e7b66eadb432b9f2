package recorder

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DCAAdvisor/internal/model"
)

func openTestRecorder(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "ledger", "test.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestSQLiteRecorder_Trades(t *testing.T) {
	r := openTestRecorder(t)
	jan := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC)

	spyFeb := &model.Trade{Date: feb, Symbol: "SPY", Price: 495.5, Shares: 2, Amount: 991}
	spyJan := &model.Trade{Date: jan, Symbol: "SPY", Price: 475, Shares: 2, Amount: 950}
	qqq := &model.Trade{Date: jan, Symbol: "QQQ", Price: 410, Shares: 3, Amount: 1230}
	for _, tr := range []*model.Trade{spyFeb, spyJan, qqq} {
		require.NoError(t, r.RecordTrade(tr))
		assert.NotEmpty(t, tr.ID)
	}

	spy, err := r.ListTrades("SPY")
	require.NoError(t, err)
	require.Len(t, spy, 2)
	assert.Equal(t, *spyJan, spy[0])
	assert.Equal(t, *spyFeb, spy[1])

	all, err := r.ListTrades("")
	require.NoError(t, err)
	assert.Len(t, all, 3)

}

func TestSQLiteRecorder_OneTradePerSymbolAndDay(t *testing.T) {
	r := openTestRecorder(t)
	jan := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	first := &model.Trade{Date: jan, Symbol: "SPY", Price: 475, Shares: 2, Amount: 950}
	again := &model.Trade{Date: jan, Symbol: "SPY", Price: 480, Shares: 2, Amount: 960}
	require.NoError(t, r.RecordTrade(first))
	require.NoError(t, r.RecordTrade(again))
	require.NoError(t, r.RecordTrade(first))

	spy, err := r.ListTrades("SPY")
	require.NoError(t, err)
	require.Len(t, spy, 1)
	assert.Equal(t, *first, spy[0])
}

func TestSQLiteRecorder_Rebalances(t *testing.T) {
	r := openTestRecorder(t)
	d1 := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC)

	success := &model.RebalanceResult{
		Status:  model.RebalanceSuccess,
		Date:    d1,
		Trades:  map[string]int64{"A": 20, "B": -20},
		Amounts: map[string]float64{"A": 200, "B": -200},
	}
	skipped := &model.RebalanceResult{ID: "fixed-id", Status: model.RebalanceSkipped, Date: d2, Reason: model.ReasonNotNeeded}

	require.NoError(t, r.RecordRebalance(skipped))
	require.NoError(t, r.RecordRebalance(success))
	require.NoError(t, r.RecordRebalance(skipped), "duplicate IDs are ignored")

	got, err := r.ListRebalances()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, *success, got[0])
	assert.Equal(t, *skipped, got[1])
}

func TestSQLiteRecorder_Signal(t *testing.T) {
	r := openTestRecorder(t)
	err := r.RecordSignal(&model.InvestmentSignal{
		Symbol: "VTI", Date: time.Now(), Price: 230, SMA: 240, Std: 3, AvgStd: 4,
		Weight: 1.04, BaseAmount: 1000, Allocation: model.Allocation{Shares: 4, Amount: 920},
	})
	require.NoError(t, err)

	var n int
	require.NoError(t, r.db.QueryRow(`SELECT COUNT(*) FROM signals WHERE symbol = 'VTI'`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestSQLiteRecorder_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	r, err := NewSQLiteRecorder(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, r.RecordTrade(&model.Trade{Date: time.Now(), Symbol: "DIA", Price: 380, Shares: 1, Amount: 380}))
	require.NoError(t, r.Close())

	r, err = NewSQLiteRecorder(path, zerolog.Nop())
	require.NoError(t, err)
	defer r.Close()
	trades, err := r.ListTrades("DIA")
	require.NoError(t, err)
	assert.Len(t, trades, 1)
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	assert.NoError(t, r.RecordTrade(&model.Trade{}))
	trades, err := r.ListTrades("")
	assert.NoError(t, err)
	assert.Empty(t, trades)
	assert.NoError(t, r.Close())
}
