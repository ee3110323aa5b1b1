// Package recorder is an optional callback sink that persists every decoded
// stream message to Postgres/TimescaleDB.
//
// Messages are accepted without blocking the listen loop: intake goes
// through a buffered channel (overflow is dropped and counted), batches
// accumulate up to a size or flush-interval bound, and each flush is one
// pgx batch of inserts.
package recorder
