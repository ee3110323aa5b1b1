package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultRunTime          = 24 * time.Hour
	DefaultRetryDelay       = 1 * time.Second
	DefaultBackoffFactor    = 1
	DefaultReconnectPause   = 1 * time.Second
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultWriteTimeout     = 5 * time.Second
	DefaultRecorderTable    = "stream_messages"
	DefaultBatchSize        = 1000
	DefaultFlushInterval    = 1 * time.Second
	DefaultBufferSize       = 10000
	DefaultDBPort           = 5432
	DefaultDBSSLMode        = "prefer"
	DefaultMaxConns         = 10
	DefaultMinConns         = 2
	DefaultLogLevel         = "info"
)

func (c *Config) applyDefaults() {
	// Stream defaults
	if c.Stream.RunTime == 0 {
		c.Stream.RunTime = DefaultRunTime
	}
	if c.Stream.RetryDelay == 0 {
		c.Stream.RetryDelay = DefaultRetryDelay
	}
	if c.Stream.BackoffFactor == 0 {
		c.Stream.BackoffFactor = DefaultBackoffFactor
	}
	if c.Stream.ReconnectPause == 0 {
		c.Stream.ReconnectPause = DefaultReconnectPause
	}

	// Transport defaults
	if c.Transport.HandshakeTimeout == 0 {
		c.Transport.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Transport.WriteTimeout == 0 {
		c.Transport.WriteTimeout = DefaultWriteTimeout
	}

	// Recorder defaults
	if c.Recorder.Table == "" {
		c.Recorder.Table = DefaultRecorderTable
	}
	if c.Recorder.BatchSize == 0 {
		c.Recorder.BatchSize = DefaultBatchSize
	}
	if c.Recorder.FlushInterval == 0 {
		c.Recorder.FlushInterval = DefaultFlushInterval
	}
	if c.Recorder.BufferSize == 0 {
		c.Recorder.BufferSize = DefaultBufferSize
	}

	// Database defaults
	if c.Database.Port == 0 {
		c.Database.Port = DefaultDBPort
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = DefaultDBSSLMode
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = DefaultMaxConns
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = DefaultMinConns
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
}
