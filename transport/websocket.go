package transport

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocket is the gorilla/websocket implementation of Transport.
type WebSocket struct {
	cfg    Config
	logger *slog.Logger

	conn *websocket.Conn

	// Write serialization
	writeMu sync.Mutex

	// State
	mu            sync.RWMutex
	open          bool
	lastContactAt time.Time
}

// NewWebSocket creates an unconnected websocket transport.
func NewWebSocket(cfg Config, logger *slog.Logger) *WebSocket {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	return &WebSocket{
		cfg:    cfg,
		logger: logger,
	}
}

// NewFactory returns a Factory producing websocket transports with cfg.
func NewFactory(cfg Config, logger *slog.Logger) Factory {
	return func() Transport {
		return NewWebSocket(cfg, logger)
	}
}

// Connect dials the configured endpoint.
func (t *WebSocket) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.open {
		t.mu.Unlock()
		return ErrAlreadyOpen
	}
	t.mu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: t.cfg.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, t.cfg.URL, t.cfg.Header)
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.conn = conn
	t.open = true
	t.lastContactAt = time.Now()
	t.mu.Unlock()

	// Server ping gets an immediate pong; both directions stamp last contact.
	conn.SetPingHandler(func(data string) error {
		t.mu.Lock()
		t.lastContactAt = time.Now()
		t.mu.Unlock()

		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(data),
			time.Now().Add(time.Second),
		)
	})
	conn.SetPongHandler(func(string) error {
		t.mu.Lock()
		t.lastContactAt = time.Now()
		t.mu.Unlock()
		return nil
	})

	t.logger.Debug("websocket connected", "url", t.cfg.URL)

	return nil
}

// ReadMessage blocks for the next text frame.
func (t *WebSocket) ReadMessage() ([]byte, error) {
	t.mu.RLock()
	conn := t.conn
	open := t.open
	t.mu.RUnlock()

	if !open || conn == nil {
		return nil, ErrNotConnected
	}

	_, data, err := conn.ReadMessage()
	if err != nil {
		t.mu.Lock()
		t.open = false
		t.mu.Unlock()
		return nil, err
	}

	t.mu.Lock()
	t.lastContactAt = time.Now()
	t.mu.Unlock()

	return data, nil
}

// WriteMessage writes a single text frame.
func (t *WebSocket) WriteMessage(data []byte) error {
	t.mu.RLock()
	conn := t.conn
	open := t.open
	t.mu.RUnlock()

	if !open || conn == nil {
		return ErrNotConnected
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(t.cfg.WriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// Close sends a close message and tears down the connection. Idempotent.
func (t *WebSocket) Close() error {
	t.mu.Lock()
	if !t.open && t.conn == nil {
		t.mu.Unlock()
		return nil
	}
	conn := t.conn
	t.open = false
	t.conn = nil
	t.mu.Unlock()

	if conn != nil {
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		return conn.Close()
	}

	return nil
}

// IsOpen reports the current connection state.
func (t *WebSocket) IsOpen() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.open
}

// LastContact returns the time of the most recent inbound activity.
func (t *WebSocket) LastContact() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastContactAt
}
