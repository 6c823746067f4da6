package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const StfClientMetricsPrefix = "stfmon_client_"

var messagesReceived = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: StfClientMetricsPrefix + "messages_received",
		Help: "Number of notification messages received from the bus",
	},
)

var messageErrors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: StfClientMetricsPrefix + "message_errors",
		Help: "Number of message errors grouped by error type",
	},
	[]string{"error"},
)

var tfFilesIngested = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: StfClientMetricsPrefix + "tf_files_ingested",
		Help: "Number of TF file upserts grouped by outcome (inserted or duplicate)",
	},
	[]string{"outcome"},
)

var pulsarConnectionError = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: StfClientMetricsPrefix + "pulsar_connection_errors",
		Help: "Number of Pulsar connection errors",
	},
)

type Metrics struct{}

var m = &Metrics{}

func Get() *Metrics {
	return m
}

func (m *Metrics) RecordMessageReceived() {
	messagesReceived.Inc()
}

func (m *Metrics) RecordMessageError(errorType string) {
	messageErrors.With(map[string]string{"error": errorType}).Inc()
}

func (m *Metrics) RecordTfIngested(inserted bool) {
	outcome := "duplicate"
	if inserted {
		outcome = "inserted"
	}
	tfFilesIngested.With(map[string]string{"outcome": outcome}).Inc()
}

func (m *Metrics) RecordPulsarConnectionError() {
	pulsarConnectionError.Inc()
}
