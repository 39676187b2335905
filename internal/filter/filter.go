// Package filter compiles CEL predicates over log entries.
//
// Expressions see these variables:
//
//	index          int     live entries: position oldest first; archive records: sequence number
//	size           int     entry length in bytes
//	text           string  entry bytes
//	timestamp      bool    entry was written by the stamper
//	evicted_at_ms  int     archive records only; zero for live entries
//	reason         string  archive records only ("overflow", "teardown")
//	now_ms         int     evaluation time
//
// Example: `timestamp == false && text.startsWith("ls")`.
package filter

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/rzbill/cmdlog/internal/stamper"
)

// Subject is the data an expression is evaluated against.
type Subject struct {
	Index       int
	Data        []byte
	EvictedAtMs int64
	Reason      string
}

// IsTimestamp reports whether data is a stamper record.
func IsTimestamp(data []byte) bool {
	return bytes.HasPrefix(data, []byte(stamper.Prefix))
}

// Filter is a compiled expression. The zero value matches everything.
type Filter struct {
	prog    cel.Program
	enabled bool
}

// Compile parses and type-checks expr. An empty expression yields a filter
// that matches everything.
func Compile(expr string) (Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Filter{}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("index", cel.IntType),
		cel.Variable("size", cel.IntType),
		cel.Variable("text", cel.StringType),
		cel.Variable("timestamp", cel.BoolType),
		cel.Variable("evicted_at_ms", cel.IntType),
		cel.Variable("reason", cel.StringType),
		cel.Variable("now_ms", cel.IntType),
	)
	if err != nil {
		return Filter{}, err
	}
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return Filter{}, fmt.Errorf("filter: %w", iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return Filter{}, fmt.Errorf("filter: expression must be bool, got %s", ast.OutputType())
	}
	prog, err := env.Program(ast)
	if err != nil {
		return Filter{}, err
	}
	return Filter{prog: prog, enabled: true}, nil
}

// Match reports whether s satisfies the expression. Evaluation errors count
// as no match.
func (f Filter) Match(s Subject) bool {
	if !f.enabled {
		return true
	}
	out, _, err := f.prog.Eval(map[string]any{
		"index":         int64(s.Index),
		"size":          int64(len(s.Data)),
		"text":          string(s.Data),
		"timestamp":     IsTimestamp(s.Data),
		"evicted_at_ms": s.EvictedAtMs,
		"reason":        s.Reason,
		"now_ms":        time.Now().UnixMilli(),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
