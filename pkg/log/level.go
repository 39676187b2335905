package log

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// levelVar is shared between a logger and its children so SetLevel applies to all of them.
type levelVar struct{ v atomic.Int32 }

func (lv *levelVar) Set(l Level) { lv.v.Store(int32(l)) }

func (lv *levelVar) Get() Level { return Level(lv.v.Load()) }

func (lv *levelVar) Enabled(l Level) bool { return l >= lv.Get() }

// ParseLevel parses debug|info|warn|warning|error, case-insensitively.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	default:
		return InfoLevel, fmt.Errorf("log: unknown level %q", s)
	}
}
