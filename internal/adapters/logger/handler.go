package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/muesli/termenv"
	"go.trai.ch/yabu/internal/ui/output"
	"go.trai.ch/yabu/internal/ui/style"
)

// PrettyHandler is a slog.Handler that prints one colored line per record,
// prefixed with the level icon. Attributes follow the message as key=value.
type PrettyHandler struct {
	out   *termenv.Output
	level slog.Leveler
	attrs []slog.Attr
	group string
}

// NewPrettyHandler creates a PrettyHandler writing to w (os.Stderr if nil).
func NewPrettyHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyHandler {
	if w == nil {
		w = os.Stderr
	}
	var level slog.Leveler = slog.LevelInfo
	if opts != nil && opts.Level != nil {
		level = opts.Level
	}
	return &PrettyHandler{out: output.New(w), level: level}
}

// Enabled reports whether the handler handles records at the given level.
func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats and writes the record.
//
//nolint:gocritic // slog.Handler interface requires slog.Record by value
func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	var color termenv.Color
	switch {
	case r.Level >= slog.LevelError:
		b.WriteString(style.Cross + " ")
		color = termenv.RGBColor(style.Hex(style.Red))
	case r.Level >= slog.LevelWarn:
		b.WriteString(style.Warning + " ")
		color = termenv.RGBColor(style.Hex(style.Yellow))
	default:
		color = termenv.RGBColor(style.Hex(style.Slate))
	}
	b.WriteString(r.Message)

	for _, a := range h.attrs {
		writeAttr(&b, h.group, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, h.group, a)
		return true
	})

	_, err := h.out.WriteString(h.out.String(b.String()).Foreground(color).String() + "\n")
	return err
}

// WithAttrs returns a handler that adds attrs to every record.
func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	nh.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &nh
}

// WithGroup returns a handler that qualifies attribute keys with name.
func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	nh := *h
	if h.group != "" {
		name = h.group + "." + name
	}
	nh.group = name
	return &nh
}

func writeAttr(b *strings.Builder, group string, a slog.Attr) {
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if group != "" {
		key = group + "." + key
	}
	val := a.Value.Resolve().String()
	if val == "" || strings.ContainsAny(val, " \t\n\"=") {
		val = strconv.Quote(val)
	}
	b.WriteString(" " + key + "=" + val)
}
