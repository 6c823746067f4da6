package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type DBOperation string

const (
	DBOperationRead   DBOperation = "read"
	DBOperationInsert DBOperation = "insert"
	DBOperationUpdate DBOperation = "update"
)

const StfAgentMetricsPrefix = "stfmon_agent_"

var candidatesDiscovered = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: StfAgentMetricsPrefix + "candidates_discovered",
		Help: "Number of file-appearance candidates produced by discovery sources",
	},
)

var samplingDecisions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: StfAgentMetricsPrefix + "sampling_decisions",
		Help: "Number of sampling decisions grouped by outcome",
	},
	[]string{"outcome"},
)

var filesRegistered = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: StfAgentMetricsPrefix + "files_registered",
		Help: "Number of STF files newly registered in the ledger",
	},
)

var filesFailed = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: StfAgentMetricsPrefix + "files_failed",
		Help: "Number of STF files that failed metadata extraction",
	},
)

var dispatchAttempts = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: StfAgentMetricsPrefix + "dispatch_attempts",
		Help: "Number of publish attempts grouped by outcome",
	},
	[]string{"outcome"},
)

var stalledDispatches = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: StfAgentMetricsPrefix + "stalled_dispatches",
		Help: "Number of files left in processed after exhausting the dispatch attempt ceiling",
	},
)

var dbErrorsCounter = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: StfAgentMetricsPrefix + "db_errors",
		Help: "Number of database errors grouped by database operation",
	},
	[]string{"operation"},
)

var pulsarConnectionError = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: StfAgentMetricsPrefix + "pulsar_connection_errors",
		Help: "Number of Pulsar connection errors",
	},
)

type Metrics struct{}

var m = &Metrics{}

func Get() *Metrics {
	return m
}

func (m *Metrics) RecordCandidateDiscovered() {
	candidatesDiscovered.Inc()
}

func (m *Metrics) RecordSamplingDecision(outcome string) {
	samplingDecisions.With(map[string]string{"outcome": outcome}).Inc()
}

func (m *Metrics) RecordFileRegistered() {
	filesRegistered.Inc()
}

func (m *Metrics) RecordFileFailed() {
	filesFailed.Inc()
}

func (m *Metrics) RecordDispatchAttempt(success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	dispatchAttempts.With(map[string]string{"outcome": outcome}).Inc()
}

func (m *Metrics) RecordStalledDispatch() {
	stalledDispatches.Inc()
}

func (m *Metrics) RecordDBError(operation DBOperation) {
	dbErrorsCounter.With(map[string]string{"operation": string(operation)}).Inc()
}

func (m *Metrics) RecordPulsarConnectionError() {
	pulsarConnectionError.Inc()
}
