package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DCAAdvisor/internal/model"
)

func TestRecordSignal(t *testing.T) {
	m := New()
	sig := &model.InvestmentSignal{Symbol: "SPY", Weight: 1.25, Allocation: model.Allocation{Shares: 3, Amount: 1200}}
	m.RecordSignal(sig)
	m.RecordSignal(sig)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.InvestmentsTotal.WithLabelValues("SPY")))
	assert.Equal(t, 2400.0, testutil.ToFloat64(m.InvestedAmountTotal.WithLabelValues("SPY")))
	assert.Equal(t, 1.25, testutil.ToFloat64(m.Weight.WithLabelValues("SPY")))
}

func TestRecordRebalanceAndFailures(t *testing.T) {
	m := New()
	m.RecordRebalance(model.RebalanceSkipped)
	m.RecordRebalance(model.RebalanceSuccess)
	m.RecordRebalance(model.RebalanceSkipped)
	m.RecordFetchFailure("yahoo", "history")
	m.SetCircuitBreakerState("yahoo", 2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RebalanceResults.WithLabelValues("skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RebalanceResults.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchFailures.WithLabelValues("yahoo", "history")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("yahoo")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.RecordRebalance(model.RebalanceError)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `dca_advisor_rebalance_results_total{status="error"} 1`)
}
