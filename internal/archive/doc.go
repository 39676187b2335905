// Package archive keeps an append-only record of entries that left a
// logstore ring, persisted in Pebble.
//
// # Layout
//
// Keys are lexicographically ordered for range scans:
//   - archive/m           (metadata: lastSeq be8)
//   - archive/e/{seq_be8} (records)
//
// Values are encoded as uvarint(headerLen) | header | payload | crc32c(header|payload)
// where the header is evictedAtMs(8B BE) | reason(1B) and the payload is the
// entry bytes.
//
// The archive is never read back into a store; it exists for inspection
// (`cmdlog archive list`, GET /v1/archive).
//
//	a, _ := archive.Open(db, archive.Options{MaxEntries: 10000})
//	st := logstore.New(logstore.Options{OnEvict: a})
//	items, next, err := a.Read(archive.ReadOptions{Limit: 100})
package archive
