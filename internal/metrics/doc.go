// Package metrics exposes cmdlog observations as Prometheus collectors.
//
// Prometheus satisfies the metrics hooks of the log store, the TCP server,
// the timestamp stamper and the Pebble archive by method set, so none of
// those packages import client_golang.
package metrics
