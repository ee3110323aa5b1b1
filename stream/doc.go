// Package stream implements the connection supervisor.
//
// A Supervisor owns one Transport at a time, runs the listen loop and the
// watchdog loop, and coordinates reconnection so the caller sees a single
// continuous session. Failure-triggered and scheduled reconnects serialize
// through one coordination lock; the previous session's listener is always
// cancelled and awaited before a new session starts.
//
// Exchange-specific behavior (keep-alive frames, ping replies) plugs in
// through the Strategy interface, invoked at connection start and per
// inbound message.
package stream
