package config

import (
	"time"
)

// PulsarConfig holds connection parameters for the message bus. These are
// pass-through settings: no protocol logic lives here.
type PulsarConfig struct {
	// Pulsar service URL, e.g. pulsar://localhost:6650
	URL string
	// Whether token authentication is enabled
	AuthenticationEnabled bool
	// Authentication type. Only "JWT" is supported right now
	AuthenticationType string
	// Path to the JWT token file used when authentication is enabled
	JwtTokenPath string
	// Path to the trusted TLS certificate file
	TLSTrustCertsFilePath string
	// Whether to validate the hostname in the broker's TLS certificate
	TLSValidateHostname bool
	// Whether to accept untrusted TLS certificates
	TLSAllowInsecureConnection bool
	// Maximum number of connections to a single broker kept in the pool
	MaxConnectionsPerBroker int
	// Topic on which STF file notifications are published
	NotificationTopic string
	// Topic on which "data ready" discovery triggers arrive (message-driven mode)
	TriggerTopic string
	// Time a consumer waits for a message before retrying
	ReceiveTimeout time.Duration
	// Time a consumer backs off after a receive error
	BackoffTime time.Duration
	// Number of messages buffered by a consumer
	ReceiverQueueSize int
}

// PostgresConfig holds libpq-style connection values, e.g. host, port,
// user, password, dbname, sslmode.
type PostgresConfig struct {
	Connection map[string]string
}

type MetricsConfig struct {
	Port uint16
}
