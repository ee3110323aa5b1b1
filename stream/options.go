package stream

import (
	"log/slog"

	"github.com/thecheetahcat/sockstream/codec"
	"github.com/thecheetahcat/sockstream/transport"
)

// Option customizes a Supervisor at construction time.
type Option func(*Supervisor)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Supervisor) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStrategy binds a protocol strategy. Optional.
func WithStrategy(st Strategy) Option {
	return func(s *Supervisor) {
		s.strategy = st
	}
}

// WithCodec replaces the default JSON codec.
func WithCodec(c codec.Codec) Option {
	return func(s *Supervisor) {
		if c != nil {
			s.codec = c
		}
	}
}

// WithTransportFactory replaces the default websocket transport factory.
func WithTransportFactory(f transport.Factory) Option {
	return func(s *Supervisor) {
		if f != nil {
			s.factory = f
		}
	}
}

// WithCallback sets the message callback.
func WithCallback(cb MessageCallback) Option {
	return func(s *Supervisor) {
		if cb != nil {
			s.callback = cb
		}
	}
}

// WithReconnectCallback sets the reconnect callback.
func WithReconnectCallback(cb ReconnectCallback) Option {
	return func(s *Supervisor) {
		if cb != nil {
			s.reconnectCallback = cb
		}
	}
}
