package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnescape(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`plain`, "plain"},
		{`a\tb`, "a\tb"},
		{`\x1b[0m`, "\x1b[0m"},
		{`\101\0`, "A\x00"},
		{`\e\f\r\n\a\b`, "\x1b\f\r\n\a\b"},
		{`\\\"`, `\"`},
		{`\q`, `\q`},
		{`trailing\`, `trailing\`},
		{`\x4`, `\x4`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, unescape(tt.in), tt.in)
	}
}

func TestEscape(t *testing.T) {
	assert.Equal(t, "plain name", escape("plain name"))
	assert.Equal(t, `a\x09b\x0a`, escape("a\tb\n"))
	assert.Equal(t, `c:\\dir`, escape(`c:\dir`))
	assert.Equal(t, "x\x7f", unescape(escape("x\x7f")))
}
