package config

import "time"

// Config is the root configuration for a stream client instance.
type Config struct {
	Stream    StreamConfig    `yaml:"stream"`
	Transport TransportConfig `yaml:"transport"`
	Recorder  RecorderConfig  `yaml:"recorder"`
	Database  DBConfig        `yaml:"database"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// StreamConfig holds supervisor settings.
type StreamConfig struct {
	URL            string        `yaml:"url"`
	RunTime        time.Duration `yaml:"run_time"`
	RetryDelay     time.Duration `yaml:"retry_delay"`
	BackoffFactor  int           `yaml:"backoff_factor"`
	MaxRetryDelay  time.Duration `yaml:"max_retry_delay"` // 0 = retry delay uncapped
	ReconnectPause time.Duration `yaml:"reconnect_pause"`
}

// TransportConfig holds websocket transport settings.
type TransportConfig struct {
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
}

// RecorderConfig holds message recorder settings.
type RecorderConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Table         string        `yaml:"table"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// DBConfig holds the Postgres connection used by the recorder.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}
