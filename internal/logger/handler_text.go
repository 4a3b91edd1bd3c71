package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

// ColorTextHandler implements slog.Handler with human-oriented text output:
//
//	[2025-01-02 15:04:05] [INFO] [backend] plugin installed phase=install duration_ms=0.412
//
// The plugin attribute, when present, is lifted into a bracketed tag.
// Group names prefix attribute keys with dots.
type ColorTextHandler struct {
	opts     *slog.HandlerOptions
	w        io.Writer
	mu       *sync.Mutex
	attrs    []slog.Attr
	prefix   string
	useColor bool
}

// NewColorTextHandler creates a new ColorTextHandler
func NewColorTextHandler(w io.Writer, opts *slog.HandlerOptions, useColor bool) *ColorTextHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &ColorTextHandler{
		opts:     opts,
		w:        w,
		mu:       &sync.Mutex{},
		useColor: useColor,
	}
}

// Enabled reports whether the handler handles records at the given level
func (h *ColorTextHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

// Handle formats and writes a log record
func (h *ColorTextHandler) Handle(_ context.Context, r slog.Record) error {
	var (
		pluginTag string
		fields    []byte
	)

	collect := func(a slog.Attr, prefix string) {
		if a.Equal(slog.Attr{}) {
			return
		}
		if prefix == "" && a.Key == KeyPlugin && pluginTag == "" {
			pluginTag = a.Value.Resolve().String()
			return
		}
		fields = h.appendAttr(fields, a, prefix)
	}

	for _, a := range h.attrs {
		collect(a, "")
	}
	r.Attrs(func(a slog.Attr) bool {
		collect(a, h.prefix)
		return true
	})

	buf := make([]byte, 0, 128+len(fields))
	buf = fmt.Appendf(buf, "[%s] [%s]", r.Time.Format("2006-01-02 15:04:05"), h.formatLevel(r.Level))
	if pluginTag != "" {
		buf = append(buf, ' ')
		buf = append(buf, h.colorize(colorBlue, "["+pluginTag+"]")...)
	}
	buf = append(buf, ' ')
	buf = append(buf, r.Message...)
	buf = append(buf, fields...)
	buf = append(buf, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf)
	return err
}

func (h *ColorTextHandler) colorize(color, s string) string {
	if !h.useColor {
		return s
	}
	return color + s + colorReset
}

func (h *ColorTextHandler) formatLevel(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return h.colorize(colorGray, "DEBUG")
	case level < slog.LevelWarn:
		return h.colorize(colorGreen, "INFO")
	case level < slog.LevelError:
		return h.colorize(colorYellow, "WARN")
	default:
		return h.colorize(colorRed, "ERROR")
	}
}

func (h *ColorTextHandler) appendAttr(buf []byte, a slog.Attr, prefix string) []byte {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		groupPrefix := prefix
		if a.Key != "" {
			groupPrefix = prefix + a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			buf = h.appendAttr(buf, ga, groupPrefix)
		}
		return buf
	}

	key := h.colorize(colorCyan, prefix+a.Key)
	return fmt.Appendf(buf, " %s=%s", key, formatValue(a.Value))
}

func formatValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		s := v.String()
		if strings.ContainsAny(s, " \t\n\"") {
			return strconv.Quote(s)
		}
		return s
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', 3, 64)
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", v.Any())
	}
}

// WithAttrs returns a new handler with additional attrs
func (h *ColorTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	clone.attrs = append(clone.attrs, h.attrs...)
	for _, a := range attrs {
		if h.prefix != "" {
			a.Key = h.prefix + a.Key
		}
		clone.attrs = append(clone.attrs, a)
	}
	return &clone
}

// WithGroup returns a new handler whose subsequent attrs are prefixed by name
func (h *ColorTextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}
