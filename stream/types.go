package stream

import (
	"errors"
	"time"

	"github.com/thecheetahcat/sockstream/codec"
)

// Errors
var (
	ErrAlreadyRunning = errors.New("supervisor already running")
	ErrBadURL         = errors.New("url must use ws or wss scheme")
)

// State is the supervisor's connection lifecycle state.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
	Reconnecting
	Stopping
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	case Stopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// MessageCallback receives every decoded inbound message.
type MessageCallback func(msg codec.Message)

// ReconnectCallback fires after each successful reconnect.
type ReconnectCallback func()

// Config configures a Supervisor. Immutable after construction.
type Config struct {
	URL            string        // Websocket endpoint (ws:// or wss://)
	RunTime        time.Duration // Max session lifetime before a forced reconnect
	RetryDelay     time.Duration // Initial delay between failed connect attempts
	BackoffFactor  int           // Initial backoff multiplier; doubles per failure
	MaxRetryDelay  time.Duration // Cap on the backoff delay; 0 means uncapped
	ReconnectPause time.Duration // Fixed pause between disconnect and reconnect
	TickInterval   time.Duration // Watchdog tick granularity
}

// DefaultConfig returns sensible defaults for url.
func DefaultConfig(url string) Config {
	return Config{
		URL:            url,
		RunTime:        24 * time.Hour,
		RetryDelay:     time.Second,
		BackoffFactor:  1,
		ReconnectPause: time.Second,
		TickInterval:   time.Second,
	}
}

func (c *Config) applyDefaults() {
	if c.RunTime == 0 {
		c.RunTime = 24 * time.Hour
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = time.Second
	}
	if c.BackoffFactor < 1 {
		c.BackoffFactor = 1
	}
	if c.ReconnectPause == 0 {
		c.ReconnectPause = time.Second
	}
	if c.TickInterval == 0 {
		c.TickInterval = time.Second
	}
}
