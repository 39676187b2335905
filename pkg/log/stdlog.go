package log

import (
	stdlog "log"
	"log/slog"
)

// ToStdLogger returns a *log.Logger that writes through l at the given level.
func ToStdLogger(l Logger, level Level) *stdlog.Logger {
	if bl, ok := l.(*BaseLogger); ok {
		return slog.NewLogLogger(bl.slogLogger.Handler(), level.slog())
	}
	return stdlog.New(writerFunc(func(p []byte) (int, error) {
		msg := string(p)
		if n := len(msg); n > 0 && msg[n-1] == '\n' {
			msg = msg[:n-1]
		}
		switch level {
		case DebugLevel:
			l.Debug(msg)
		case WarnLevel:
			l.Warn(msg)
		case ErrorLevel:
			l.Error(msg)
		default:
			l.Info(msg)
		}
		return len(p), nil
	}), "", 0)
}

// RedirectStdLog sends the standard library's default logger through l at info level.
func RedirectStdLog(l Logger) {
	std := ToStdLogger(l, InfoLevel)
	stdlog.SetFlags(0)
	stdlog.SetPrefix("")
	stdlog.SetOutput(std.Writer())
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }
