package monitor

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EventProcessedCount   prometheus.Counter
	EventFailedCount      prometheus.Counter
	SyncCount             prometheus.Counter
	SyncErrorCount        prometheus.Counter
	VerificationCount     prometheus.Counter
	VerificationErrCount  prometheus.Counter
	TransactionCount      prometheus.Counter
	TransactionErrCount   prometheus.Counter
	DurableSyncFailCount  prometheus.Counter
)

// InitPrometheus initializes Prometheus metrics with a given server name.
func InitPrometheus(serverName string) {
	if serverName == "" {
		panic("server name must be provided")
	}

	newCounter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Name:        name,
			Help:        help,
			ConstLabels: prometheus.Labels{"server": serverName},
		})
	}

	EventProcessedCount = newCounter("event_processed_count_total", "Total number of ledger events processed")
	EventFailedCount = newCounter("event_failed_count_total", "Total number of ledger events that failed processing")
	SyncCount = newCounter("sync_count_total", "Total number of mirror synchronizations")
	SyncErrorCount = newCounter("sync_errors_total", "Total number of mirror synchronization errors")
	VerificationCount = newCounter("verification_count_total", "Total number of quality verifications")
	VerificationErrCount = newCounter("verification_errors_total", "Total number of quality verification errors")
	TransactionCount = newCounter("transaction_count_total", "Total number of orchestrated transactions")
	TransactionErrCount = newCounter("transaction_errors_total", "Total number of orchestrated transaction failures")
	DurableSyncFailCount = newCounter("durable_sync_failures_total", "Events whose synchronization exhausted the retry budget")

	prometheus.MustRegister(
		EventProcessedCount,
		EventFailedCount,
		SyncCount,
		SyncErrorCount,
		VerificationCount,
		VerificationErrCount,
		TransactionCount,
		TransactionErrCount,
		DurableSyncFailCount,
	)
}

func StartMetricsServer(address string) {
	r := gin.Default()

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if err := r.Run(address); err != nil {
		panic(err)
	}
}
