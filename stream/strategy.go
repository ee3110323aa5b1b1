package stream

import (
	"context"

	"github.com/thecheetahcat/sockstream/codec"
)

// Strategy injects exchange-specific behavior into the supervisor without
// the supervisor knowing exchange details. The usual variant is heartbeat
// management: sending keep-alive frames and answering server pings.
//
// Strategies may call back into the supervisor (e.g. SendMessage) but never
// replace its transport.
type Strategy interface {
	// OnStart runs once per successful start, including the start performed
	// inside every reconnect. The context is cancelled when the session ends.
	OnStart(ctx context.Context, sup *Supervisor) error

	// OnMessage runs for every decoded inbound message, before the message
	// callback. A non-nil error is treated as connection-fatal.
	OnMessage(ctx context.Context, sup *Supervisor, msg codec.Message) error
}
