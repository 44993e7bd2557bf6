package store

import "time"

// Config aggregates per backend configuration
type Config struct {
	AppName string

	PG   PGConfig
	CH   CHConfig
	NATS NATSConfig
	RDS  RedisConfig
}

// PGConfig configures postgres connectivity and tracing
type PGConfig struct {
	Enabled     bool
	URL         string
	MaxConns    int32
	LogSQL      bool
	SlowQueryMs int

	// Guard/boot knobs. openPG does not read these two fields; it always
	// makes up to 20 connect attempts with a 3s ping timeout each.
	ConnectRetries int
	PingTimeout    time.Duration
}

// CHConfig configures clickhouse connectivity
type CHConfig struct {
	Enabled bool
	URL     string
	LogSQL  bool

	// ClientName/ClientTag identify this process in ClickHouse's
	// system.query_log via the client info product list
	ClientName string
	ClientTag  string

	// InsertChunk/MaxRetries/RetryBaseMs tune the batch writer's chunk
	// size and retry/backoff policy; see ch.Config
	InsertChunk int
	MaxRetries  int
	RetryBaseMs int
}

// NATSConfig configures nats connectivity
type NATSConfig struct {
	Enabled   bool
	URL       string
	JetStream bool
}

// RedisConfig configures redis connectivity
type RedisConfig struct {
	Enabled bool
	Addr    string
	DB      int
}
