package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/yabu/internal/core/domain"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		text    string
		want    []string
		ok      bool
	}{
		{name: "suffix", pattern: "%.o", text: "foo.o", want: []string{"foo"}, ok: true},
		{name: "single stops at slash", pattern: "%.o", text: "dir/foo.o", ok: false},
		{name: "double crosses slash", pattern: "%%.o", text: "dir/foo.o", want: []string{"dir/foo"}, ok: true},
		{name: "two captures", pattern: "%/%.c", text: "src/main.c", want: []string{"src", "main"}, ok: true},
		{name: "back reference", pattern: "%/%1.c", text: "a/a.c", want: []string{"a"}, ok: true},
		{name: "back reference mismatch", pattern: "%/%1.c", text: "a/b.c", ok: false},
		{name: "literal tag", pattern: "%%%.x", text: "%.x", ok: true},
		{name: "empty capture", pattern: "lib%.a", text: "lib.a", want: []string{""}, ok: true},
		{name: "literal", pattern: "foo.o", text: "foo.o", ok: true},
		{name: "trailing text", pattern: "foo", text: "foo.o", ok: false},
		{name: "undefined reference", pattern: "%2.c", text: "a.c", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := domain.Match('%', tt.pattern, tt.text)
			assert.Equal(t, tt.ok, ok)
			if len(tt.want) > 0 {
				assert.Equal(t, tt.want, got)
			} else {
				assert.Empty(t, got)
			}
		})
	}
}

func TestExpandSubstrings(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		args    []string
		want    string
		wantErr error
	}{
		{name: "bare", in: "%.c", args: []string{"foo"}, want: "foo.c"},
		{name: "numbered", in: "%1-%2", args: []string{"a", "b"}, want: "a-b"},
		{name: "zero is one", in: "%0", args: []string{"a"}, want: "a"},
		{name: "escaped", in: "100%%", args: []string{"a"}, want: "100%"},
		{name: "bare with two args", in: "%.c", args: []string{"a", "b"}, wantErr: domain.ErrMissingDigit},
		{name: "out of range", in: "%3", args: []string{"a"}, wantErr: domain.ErrUndefined},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := domain.ExpandSubstrings('%', tt.in, tt.args)
			if tt.wantErr != nil {
				require.ErrorContains(t, err, tt.wantErr.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPatternPriority(t *testing.T) {
	assert.Equal(t, 99, domain.PatternPriority("%.o"))
	assert.Equal(t, 250, domain.PatternPriority("foo.o"))
	assert.Greater(t, domain.PatternPriority("foo.o"), domain.PatternPriority("%.o"))
}

func TestConfigureFor(t *testing.T) {
	rules := []domain.ConfigureRule{
		{Cfg: "+debug", Patterns: []string{"test/%"}},
		{Cfg: "-debug", Patterns: []string{"%%"}},
	}

	cfg, ok := domain.ConfigureFor(rules, "test/x")
	require.True(t, ok)
	assert.Equal(t, "+debug", cfg)

	cfg, ok = domain.ConfigureFor(rules, "src/y.o")
	require.True(t, ok)
	assert.Equal(t, "-debug", cfg)
}
