package scheduler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/yabu/internal/core/domain"
	"go.trai.ch/yabu/internal/engine/scheduler"
)

func chunks(t *testing.T, text string) []string {
	t.Helper()
	c := scheduler.NewChunker(text)
	var out []string
	for {
		chunk, ok, err := c.Next()
		require.NoError(t, err)
		if !ok {
			return out
		}
		out = append(out, chunk)
	}
}

func TestChunker(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "one chunk per line",
			text: "echo a\necho b\n",
			want: []string{"echo a\n", "echo b\n"},
		},
		{
			name: "blank lines are skipped",
			text: "  \n\n\techo a",
			want: []string{"echo a"},
		},
		{
			name: "block",
			text: "{\ncd x\nmake\n}\necho done\n",
			want: []string{"cd x\nmake\n", "echo done\n"},
		},
		{
			name: "block at end of script",
			text: "{\necho a\n}",
			want: []string{"echo a\n"},
		},
		{
			name: "nested block",
			text: "{\nif true; then {\necho x\n}\nfi\n}\n",
			want: []string{"if true; then {\necho x\n}\nfi\n"},
		},
		{
			name: "continuation lines",
			text: "| echo a\n| echo b\necho c\n",
			want: []string{" echo a\n echo b", "echo c\n"},
		},
		{
			name: "interpreter takes the rest",
			text: "#!/usr/bin/env python3\nprint(1)\nprint(2)\n",
			want: []string{"#!/usr/bin/env python3\nprint(1)\nprint(2)\n"},
		},
		{
			name: "empty script",
			text: " \n",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, chunks(t, tt.text))
		})
	}
}

func TestChunker_UnbalancedBlock(t *testing.T) {
	c := scheduler.NewChunker("echo a\n{\necho b\n")

	chunk, ok, err := c.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "echo a\n", chunk)

	_, ok, err = c.Next()
	require.ErrorContains(t, err, domain.ErrUnbalanced.Error())
	assert.False(t, ok)

	_, ok, err = c.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTruncateOutput(t *testing.T) {
	long := "L1\nL2\nL3\nL4\nL5\nL6\nL7\nL8\nL9\nL10\n"
	tests := []struct {
		name string
		out  string
		max  int
		want string
	}{
		{name: "empty", out: "", max: 3, want: ""},
		{name: "unlimited", out: long, max: 0, want: long},
		{name: "adds newline", out: "a\nb", max: 0, want: "a\nb\n"},
		{name: "short enough", out: "a\nb\n", max: 5, want: "a\nb\n"},
		{name: "head and tail", out: long, max: 2, want: "L1\nL2\n...\nL8\nL9\nL10\n"},
		{name: "unterminated tail", out: "a\nb\nc", max: 1, want: "a\n...\nb\nc\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(scheduler.TruncateOutput([]byte(tt.out), tt.max)))
		})
	}
}
