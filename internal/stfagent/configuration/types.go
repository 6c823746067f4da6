package configuration

import (
	"time"

	"github.com/epic-swf/stfmon/internal/common/config"
)

type DiscoveryMode string

const (
	// DiscoveryModeContinuous polls the watch directories at a fixed interval.
	DiscoveryModeContinuous DiscoveryMode = "continuous"
	// DiscoveryModeTriggered scans paths named by inbound trigger messages.
	DiscoveryModeTriggered DiscoveryMode = "triggered"
	// DiscoveryModeBoth runs both sources concurrently.
	DiscoveryModeBoth DiscoveryMode = "both"
)

type DiscoveryConfig struct {
	// Which candidate sources to run
	Mode DiscoveryMode
	// Directories polled in continuous mode
	WatchDirectories []string
	// Glob patterns matched against file names, e.g. "*.stf"
	FilePatterns []string
	// Poll interval in continuous mode
	ScanInterval time.Duration
	// Number of recently-yielded paths remembered to avoid re-yielding a
	// path on every tick before the ledger has recorded it
	RecencyCacheSize int
}

type SamplingConfig struct {
	// Maximum age of a candidate still eligible for sampling
	Lookback time.Duration
	// Probability with which an in-window candidate is accepted [0.0, 1.0]
	Fraction float64
}

type ExtractConfig struct {
	// Base URL prepended to absolute file paths, e.g. file://
	BaseURL string
	// Run number recorded when none can be parsed from the file name
	DefaultRunNumber int32
	// Whether to md5 the file contents (can be expensive on large STFs)
	ComputeChecksum bool
}

type DispatchConfig struct {
	// Maximum publish attempts per file before it is left stalled
	MaxAttempts int
	// Backoff after the first failed attempt; doubles per attempt
	InitialBackoff time.Duration
	// Backoff ceiling
	MaxBackoff time.Duration
	// Per-attempt publish timeout
	SendTimeout time.Duration
	// Number of concurrent dispatch workers
	Parallelism int
	// Size of the queue decoupling dispatch from discovery
	QueueSize int
	// How often files stalled in processed are re-queued for dispatch.
	// Zero disables the re-dispatch pass.
	RequeueInterval time.Duration
	// Minimum age of a processed file before it is considered stalled
	RequeueMinAge time.Duration
}

type StfAgentConfiguration struct {
	// Database configuration
	Postgres config.PostgresConfig
	// General Pulsar configuration
	Pulsar config.PulsarConfig
	// Metrics configuration
	Metrics config.MetricsConfig

	Discovery DiscoveryConfig
	Sampling  SamplingConfig
	Extract   ExtractConfig
	Dispatch  DispatchConfig
}
