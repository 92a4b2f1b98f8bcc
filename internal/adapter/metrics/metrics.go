package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// EngineMetrics holds all Prometheus metrics for the ingestion and
// query engine.
type EngineMetrics struct {
	LinesIngested *prometheus.CounterVec
	LinesSkipped  *prometheus.CounterVec
	BatchesSent   *prometheus.CounterVec
	SendRetries   prometheus.Counter
	TasksFinished *prometheus.CounterVec
	QueriesTotal  *prometheus.CounterVec
}

// New initializes and registers the engine metrics on the given
// registerer. Tests pass a fresh registry to avoid duplicate
// registration panics.
func New(reg prometheus.Registerer) *EngineMetrics {
	factory := promauto.With(reg)
	return &EngineMetrics{
		LinesIngested: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "runlog",
			Subsystem: "ingest",
			Name:      "lines_total",
			Help:      "Total number of log lines ingested, by stream.",
		}, []string{"stream"}),
		LinesSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "runlog",
			Subsystem: "ingest",
			Name:      "lines_skipped_total",
			Help:      "Total number of malformed log lines skipped, by stream.",
		}, []string{"stream"}),
		BatchesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "runlog",
			Subsystem: "ingest",
			Name:      "batches_total",
			Help:      "Total number of batch transmissions by outcome.",
		}, []string{"status"}), // status: ok, error
		SendRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "runlog",
			Subsystem: "ingest",
			Name:      "send_retries_total",
			Help:      "Total number of batch send attempts that failed and were retried.",
		}),
		TasksFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "runlog",
			Subsystem: "ingest",
			Name:      "tasks_finished_total",
			Help:      "Total number of ingestion tasks reaching a terminal state.",
		}, []string{"status"}), // status: completed, failed
		QueriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "runlog",
			Subsystem: "query",
			Name:      "queries_total",
			Help:      "Total number of log store queries by outcome.",
		}, []string{"status"}), // status: ok, error
	}
}
