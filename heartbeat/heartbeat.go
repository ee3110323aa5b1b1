// Package heartbeat is an example protocol strategy that keeps a stream
// connection alive: it sends a configurable ping payload on an interval and
// answers server test requests. Exchanges with bespoke keep-alive protocols
// (Deribit-style test_request/test exchanges, for instance) can use it as a
// template for their own Strategy implementations.
package heartbeat

import (
	"context"
	"log/slog"
	"time"

	"github.com/thecheetahcat/sockstream/codec"
	"github.com/thecheetahcat/sockstream/stream"
)

// Config configures the keep-alive behavior. Any part can be disabled by
// leaving it zero.
type Config struct {
	Interval    time.Duration // How often to send Ping; 0 disables the ticker
	Ping        codec.Message // Payload sent every Interval
	RequestType string        // Inbound "type" value that demands a reply; "" disables
	Reply       codec.Message // Payload sent in answer to a request
}

// Strategy implements stream.Strategy.
type Strategy struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a heartbeat strategy.
func New(cfg Config, logger *slog.Logger) *Strategy {
	if logger == nil {
		logger = slog.Default()
	}
	return &Strategy{
		cfg:    cfg,
		logger: logger,
	}
}

// OnStart launches the keep-alive ticker for the session. The goroutine is
// bound to the session context, so it dies with the session and a fresh one
// starts on every reconnect.
func (h *Strategy) OnStart(ctx context.Context, sup *stream.Supervisor) error {
	if h.cfg.Interval == 0 || h.cfg.Ping == nil {
		return nil
	}

	go func() {
		ticker := time.NewTicker(h.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := sup.SendMessage(h.cfg.Ping); err != nil {
					h.logger.Error("keep-alive send failed", "error", err)
				}
			}
		}
	}()

	return nil
}

// OnMessage answers server test requests before the message reaches the
// generic callback.
func (h *Strategy) OnMessage(ctx context.Context, sup *stream.Supervisor, msg codec.Message) error {
	if h.cfg.RequestType == "" || h.cfg.Reply == nil {
		return nil
	}

	if t, ok := msg["type"].(string); ok && t == h.cfg.RequestType {
		h.logger.Debug("answering server test request")
		return sup.SendMessage(h.cfg.Reply)
	}

	return nil
}
