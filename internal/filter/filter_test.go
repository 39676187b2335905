package filter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmptyMatchesAll(t *testing.T) {
	f, err := Compile("  ")
	require.NoError(t, err)
	require.True(t, f.Match(Subject{Data: []byte("x\n")}))
	require.True(t, Filter{}.Match(Subject{}))
}

func TestMatch(t *testing.T) {
	tests := []struct {
		expr string
		subj Subject
		want bool
	}{
		{`size > 3`, Subject{Data: []byte("abcd\n")}, true},
		{`size > 3`, Subject{Data: []byte("ab\n")}, false},
		{`text.startsWith("ls")`, Subject{Data: []byte("ls -la\n")}, true},
		{`timestamp`, Subject{Data: []byte("timestamp:Tue, 05 Mar 2024 09:07:03 -0500\n")}, true},
		{`!timestamp && index == 2`, Subject{Index: 2, Data: []byte("pwd\n")}, true},
		{`reason == "teardown" && evicted_at_ms > 0`, Subject{Reason: "teardown", EvictedAtMs: 5}, true},
		{`now_ms > 0`, Subject{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			f, err := Compile(tt.expr)
			require.NoError(t, err)
			require.Equal(t, tt.want, f.Match(tt.subj))
		})
	}
}

func TestCompileErrors(t *testing.T) {
	for _, expr := range []string{`size >`, `unknown_var == 1`, `size + 1`} {
		_, err := Compile(expr)
		require.Error(t, err, expr)
	}
}
