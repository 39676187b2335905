// Package pebblestore opens the Pebble database behind the eviction archive.
//
// A DB fixes its commit durability at Open from an FsyncMode: always syncs
// every batch, interval lets Pebble group WAL syncs, never leaves syncing to
// the engine. Batches are built by callers and committed with CommitBatch so
// the archive can put records, meta and retention deletes in one commit.
package pebblestore
