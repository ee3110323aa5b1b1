package stream

import (
	"context"

	"github.com/google/uuid"

	"github.com/thecheetahcat/sockstream/transport"
)

// session is the currently active transport plus its listener handle.
// Replaced wholesale on every reconnect, never mutated in place, so a stale
// listener is distinguishable from the current one by generation.
type session struct {
	id         uuid.UUID
	generation uint64
	tr         transport.Transport
	cancel     context.CancelFunc
	done       chan struct{} // closed when the listener exits
}
