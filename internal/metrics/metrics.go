package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WalletQueueLength tracks the number of wallets waiting for a sync pass
	WalletQueueLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hedgemon_wallet_queue_length",
		Help: "The number of wallets currently in the sync queue",
	})

	// WorkersActive tracks the number of active workers
	WorkersActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hedgemon_workers_active",
		Help: "The number of workers currently active",
	})

	// APIRequestsTotal tracks upstream API requests by source and status
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hedgemon_api_requests_total",
			Help: "The total number of upstream API requests",
		},
		[]string{"source", "status"}, // octav/hyperliquid, success/failed
	)

	// WalletSyncSeconds tracks time taken to run a full sync pass for a wallet
	WalletSyncSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hedgemon_wallet_sync_seconds",
		Help:    "Time taken to fetch and analyze a wallet in seconds",
		Buckets: prometheus.ExponentialBuckets(1, 2, 8), // 1s to ~4min
	})

	// HedgeSuggestions tracks suggestions emitted per hedge status
	HedgeSuggestions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hedgemon_hedge_suggestions_total",
			Help: "The total number of hedge suggestions emitted",
		},
		[]string{"status", "priority"},
	)

	// ForcedRebalances counts analysis passes where total coverage left the band
	ForcedRebalances = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hedgemon_forced_rebalances_total",
		Help: "The total number of forced rebalance passes triggered by coverage drift",
	})

	// MissingPrices counts tokens analyzed without a usable price
	MissingPrices = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hedgemon_missing_prices_total",
		Help: "The total number of tokens whose USD conversion was skipped for lack of a price",
	})

	// OrdersSized tracks sizing outcomes
	OrdersSized = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hedgemon_orders_sized_total",
			Help: "The total number of order sizing attempts",
		},
		[]string{"status"}, // ok, too_small, no_price, unknown_instrument
	)

	// OrdersSubmitted tracks order submissions on the hedge venue
	OrdersSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hedgemon_orders_submitted_total",
			Help: "The total number of orders submitted to the hedge venue",
		},
		[]string{"side", "status"}, // buy/sell, success/failed
	)

	// DatabaseOperations tracks database operations
	DatabaseOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hedgemon_database_operations_total",
			Help: "The total number of database operations",
		},
		[]string{"operation", "status"}, // insert/update, success/failed
	)

	// WorkerTaskDuration tracks how long workers spend on tasks
	WorkerTaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hedgemon_worker_task_duration_seconds",
			Help:    "Time taken by workers to complete tasks",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"task_type", "worker_id"},
	)
)

// RecordAPIRequest records an upstream API request with the given status
func RecordAPIRequest(source, status string) {
	APIRequestsTotal.WithLabelValues(source, status).Inc()
}

// RecordWalletSync records the time taken to sync a wallet
func RecordWalletSync(duration float64) {
	WalletSyncSeconds.Observe(duration)
}

// RecordSuggestion records an emitted hedge suggestion
func RecordSuggestion(status, priority string) {
	HedgeSuggestions.WithLabelValues(status, priority).Inc()
}

// RecordOrderSized records an order sizing attempt
func RecordOrderSized(status string) {
	OrdersSized.WithLabelValues(status).Inc()
}

// RecordOrderSubmitted records an order submission
func RecordOrderSubmitted(side, status string) {
	OrdersSubmitted.WithLabelValues(side, status).Inc()
}

// RecordDatabaseOperation records a database operation
func RecordDatabaseOperation(operation, status string) {
	DatabaseOperations.WithLabelValues(operation, status).Inc()
}

// RecordWorkerTaskDuration records the time taken by a worker to complete a task
func RecordWorkerTaskDuration(taskType, workerID string, duration float64) {
	WorkerTaskDuration.WithLabelValues(taskType, workerID).Observe(duration)
}
