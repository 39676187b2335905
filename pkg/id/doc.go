// Package id generates process-local, sortable identifiers.
//
// An ID is 16 bytes big-endian: [8 bytes unix ms][8 bytes sequence], so
// byte order matches generation order. cmdlog tags every connection worker
// with one, which keeps log lines from concurrent workers attributable.
//
//	g := id.NewGenerator()
//	wid := g.Next()
//	logger.Info("accepted", log.Str("worker", wid.Short()))
package id
