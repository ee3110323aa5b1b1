package transport

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// Errors
var (
	ErrNotConnected = errors.New("not connected")
	ErrAlreadyOpen  = errors.New("already open")
)

// Transport is a single websocket-style connection: connect, send,
// receive-next-frame, close.
type Transport interface {
	// Connect establishes the connection.
	Connect(ctx context.Context) error

	// ReadMessage blocks until the next text frame arrives. A concurrent
	// Close unblocks the read with an error.
	ReadMessage() ([]byte, error)

	// WriteMessage writes a single text frame.
	WriteMessage(data []byte) error

	// Close tears the connection down. Idempotent.
	Close() error

	// IsOpen reports whether the connection is currently established.
	IsOpen() bool
}

// Factory builds a fresh Transport for each session.
type Factory func() Transport

// Config configures a websocket transport.
type Config struct {
	URL              string        // Websocket endpoint (ws:// or wss://)
	HandshakeTimeout time.Duration // Dial handshake timeout
	WriteTimeout     time.Duration // Write deadline for sends
	Header           http.Header   // Optional headers sent on dial
}

// DefaultConfig returns sensible defaults for url.
func DefaultConfig(url string) Config {
	return Config{
		URL:              url,
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
	}
}
