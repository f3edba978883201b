// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission metrics
var (
	TransactionsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blockchain_transactions_submitted_total",
		Help: "Signed transactions handed to the node, by result",
	}, []string{"result"})

	NonceResyncs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blockchain_nonce_resyncs_total",
		Help: "Times the locally tracked nonce was dropped after a failed submission",
	})

	SubmissionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "blockchain_submission_duration_seconds",
		Help:    "Time from nonce lock acquisition to node acceptance",
		Buckets: prometheus.DefBuckets,
	})
)

// Receipt polling metrics
var (
	ReceiptPollAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blockchain_receipt_poll_attempts_total",
		Help: "Receipt lookups made by the poller, by outcome",
	}, []string{"outcome"})

	ReceiptWaitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "blockchain_receipt_wait_duration_seconds",
		Help:    "Time spent waiting for a receipt",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
	})
)

// Wallet operation metrics
var (
	WalletOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blockchain_wallet_operations_total",
		Help: "Wallet facade operations, by operation and error kind",
	}, []string{"operation", "result"})

	NativeBalanceWei = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "blockchain_wallet_native_balance_wei",
		Help: "Last observed native coin balance of the service wallet",
	})

	GasBalanceLow = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "blockchain_wallet_gas_balance_low",
		Help: "1 when the native balance is below the gas alert threshold",
	})
)
