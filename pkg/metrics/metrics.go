package metrics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the portal's Prometheus registry and the instruments the
// ledger and HTTP layers record into. A nil *Collector is safe to use; all
// record methods are no-ops.
type Collector struct {
	registry            *prometheus.Registry
	ledgerOps           *prometheus.CounterVec
	ledgerOpDuration    prometheus.Histogram
	reconcileMismatches prometheus.Counter
	walletBalance       *prometheus.GaugeVec
	logger              *slog.Logger
}

// NewCollector builds a collector with its own registry.
func NewCollector(logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}

	registry := prometheus.NewRegistry()

	return &Collector{
		registry: registry,
		ledgerOps: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_ledger_operations_total",
			Help: "Ledger operations by operation and outcome",
		}, []string{"op", "outcome"}),
		ledgerOpDuration: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "wallet_ledger_operation_duration_seconds",
			Help:    "Time spent inside ledger operations",
			Buckets: prometheus.DefBuckets,
		}),
		reconcileMismatches: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "wallet_ledger_reconcile_mismatches_total",
			Help: "Reconciliation runs where the stored balance diverged from the recomputed one",
		}),
		walletBalance: promauto.With(registry).NewGaugeVec(prometheus.GaugeOpts{
			Name: "wallet_balance",
			Help: "Last observed wallet balance in minor units",
		}, []string{"account_id", "currency"}),
		logger: logger,
	}
}

// RecordLedgerOp counts one ledger operation and observes its duration.
func (c *Collector) RecordLedgerOp(op, outcome string, duration time.Duration) {
	if c == nil {
		return
	}
	c.ledgerOps.WithLabelValues(op, outcome).Inc()
	c.ledgerOpDuration.Observe(duration.Seconds())
}

// RecordReconcileMismatch counts a detected balance inconsistency.
func (c *Collector) RecordReconcileMismatch() {
	if c == nil {
		return
	}
	c.reconcileMismatches.Inc()
}

// SetWalletBalance records the balance last observed for an account.
func (c *Collector) SetWalletBalance(accountID, currency string, balance int64) {
	if c == nil {
		return
	}
	c.walletBalance.WithLabelValues(accountID, currency).Set(float64(balance))
}

// Handler exposes the registry in Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// StartMetricsServer serves /metrics on its own listener and returns the
// server so callers can shut it down.
func (c *Collector) StartMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())

	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		c.logger.Info("starting metrics server", slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			c.logger.Error("metrics server failed", slog.String("error", err.Error()))
		}
	}()

	return server
}
