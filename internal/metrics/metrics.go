// Package metrics exposes Prometheus counters and gauges for the advisor.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"DCAAdvisor/internal/model"
)

const namespace = "dca_advisor"

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	InvestmentsTotal    *prometheus.CounterVec
	InvestedAmountTotal *prometheus.CounterVec
	Weight              *prometheus.GaugeVec
	RebalanceResults    *prometheus.CounterVec
	FetchFailures       *prometheus.CounterVec
	CircuitBreakerState *prometheus.GaugeVec

	reg *prometheus.Registry
}

// New creates a registry and registers every metric on it.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		InvestmentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "investment",
				Name:      "signals_total",
				Help:      "Investment signals produced on scheduled days",
			},
			[]string{"symbol"},
		),
		InvestedAmountTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "investment",
				Name:      "amount_total",
				Help:      "Recommended investment amount in account currency",
			},
			[]string{"symbol"},
		),
		Weight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "investment",
				Name:      "weight",
				Help:      "Latest investment weight per symbol",
			},
			[]string{"symbol"},
		),
		RebalanceResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "rebalance",
				Name:      "results_total",
				Help:      "Rebalance evaluations by outcome",
			},
			[]string{"status"},
		),
		FetchFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "quotes",
				Name:      "fetch_failures_total",
				Help:      "Quote provider failures",
			},
			[]string{"source", "operation"},
		),
		CircuitBreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "quotes",
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"source"},
		),
		reg: reg,
	}
}

// RecordSignal records one investment signal.
func (m *Metrics) RecordSignal(sig *model.InvestmentSignal) {
	m.InvestmentsTotal.WithLabelValues(sig.Symbol).Inc()
	m.InvestedAmountTotal.WithLabelValues(sig.Symbol).Add(sig.Allocation.Amount)
	m.Weight.WithLabelValues(sig.Symbol).Set(sig.Weight)
}

// RecordRebalance records a rebalance outcome.
func (m *Metrics) RecordRebalance(status model.RebalanceStatus) {
	m.RebalanceResults.WithLabelValues(string(status)).Inc()
}

// RecordFetchFailure records a failed quote request.
func (m *Metrics) RecordFetchFailure(source, operation string) {
	m.FetchFailures.WithLabelValues(source, operation).Inc()
}

// SetCircuitBreakerState sets the current state of a circuit breaker.
func (m *Metrics) SetCircuitBreakerState(source string, state int) {
	m.CircuitBreakerState.WithLabelValues(source).Set(float64(state))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string, log zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("metrics server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
