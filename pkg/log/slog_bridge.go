package log

import (
	"context"
	"log/slog"
)

const redacted = "[REDACTED]"

// bridgeHandler feeds slog records into the BaseLogger formatter and outputs.
// Keys are flattened with their group prefix at WithAttrs time.
type bridgeHandler struct {
	logger *BaseLogger
	base   Fields
	prefix string
	redact map[string]bool
}

func newBridgeHandler(logger *BaseLogger) *bridgeHandler {
	h := &bridgeHandler{logger: logger}
	if len(logger.redact) > 0 {
		h.redact = make(map[string]bool, len(logger.redact))
		for _, k := range logger.redact {
			h.redact[k] = true
		}
	}
	return h
}

func (h *bridgeHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.logger.level.Enabled(levelFromSlog(level))
}

func (h *bridgeHandler) Handle(_ context.Context, r slog.Record) error {
	fields := make(Fields, len(h.base)+r.NumAttrs())
	for k, v := range h.base {
		fields[k] = v
	}
	r.Attrs(func(a slog.Attr) bool {
		h.set(fields, a)
		return true
	})
	entry := &Entry{
		Level:     levelFromSlog(r.Level),
		Message:   r.Message,
		Fields:    fields,
		Timestamp: r.Time,
	}
	line, err := h.logger.formatter.Format(entry)
	if err != nil {
		return err
	}
	for _, out := range h.logger.outputs {
		_ = out.Write(entry, line)
	}
	return nil
}

func (h *bridgeHandler) set(fields Fields, a slog.Attr) {
	if h.redact[a.Key] {
		fields[h.prefix+a.Key] = redacted
		return
	}
	fields[h.prefix+a.Key] = a.Value.Resolve().Any()
}

func (h *bridgeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	nh := *h
	nh.base = make(Fields, len(h.base)+len(attrs))
	for k, v := range h.base {
		nh.base[k] = v
	}
	for _, a := range attrs {
		nh.set(nh.base, a)
	}
	return &nh
}

func (h *bridgeHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	nh := *h
	nh.prefix = h.prefix + name + "."
	return &nh
}

func (l Level) slog() slog.Level {
	switch l {
	case DebugLevel:
		return slog.LevelDebug
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func levelFromSlog(level slog.Level) Level {
	switch {
	case level < slog.LevelInfo:
		return DebugLevel
	case level < slog.LevelWarn:
		return InfoLevel
	case level < slog.LevelError:
		return WarnLevel
	}
	return ErrorLevel
}

func fieldAttrs(fields []Field) []slog.Attr {
	if len(fields) == 0 {
		return nil
	}
	attrs := make([]slog.Attr, len(fields))
	for i, f := range fields {
		attrs[i] = slog.Any(f.Key, f.Value)
	}
	return attrs
}
