// Package log is cmdlog's structured logging facade.
//
// # Overview
//
// Callers log against the small Logger interface using leveled methods and
// Field values for structured context. Records are routed through log/slog
// by a bridge handler into a formatter (text or JSON) and one or more
// outputs (console, file, null).
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("tcp"))
//	l.Info("listening", log.Str("addr", ":9000"))
//
// # Configuration
//
// ApplyConfig builds a logger from a declarative Config. RedirectStdLog sends
// output of the standard library logger (used by Pebble and net/http) through
// a Logger.
package log
