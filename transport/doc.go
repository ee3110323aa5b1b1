// Package transport abstracts a single bidirectional frame-based connection.
//
// The supervisor owns exactly one Transport at a time and replaces it
// wholesale on reconnect. Cancellation of a blocked read is performed by
// closing the transport; the supervisor distinguishes a deliberate close
// from a connection failure by checking its session context.
package transport
