package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

// ConsoleHandler is a slog.Handler that formats logs as:
// [LEVEL] [component] [HH:MM:SS] message key=value key=value
type ConsoleHandler struct {
	w              io.Writer
	level          slog.Leveler
	mu             *sync.Mutex
	component      string
	showTimestamps bool
	useColors      bool
	prefix         string // dotted group path applied to attribute keys
	attrs          []slog.Attr
}

// NewConsoleHandler creates a new console handler
func NewConsoleHandler(w io.Writer, opts *slog.HandlerOptions) *ConsoleHandler {
	h := &ConsoleHandler{
		w:              w,
		level:          slog.LevelInfo,
		mu:             &sync.Mutex{},
		showTimestamps: true,
		useColors:      isTerminal(w),
	}

	if opts != nil && opts.Level != nil {
		h.level = opts.Level
	}

	return h
}

// isTerminal checks if the writer is a terminal (for color output)
func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

// Enabled reports whether the handler handles records at the given level.
func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats and writes a log record
func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	var buf strings.Builder

	// [LEVEL] with color
	if h.useColors {
		buf.WriteString(levelColor(r.Level))
	}
	buf.WriteString("[")
	buf.WriteString(levelString(r.Level))
	buf.WriteString("]")
	if h.useColors {
		buf.WriteString(colorReset)
	}

	if h.component != "" {
		buf.WriteString(" [")
		buf.WriteString(h.component)
		buf.WriteString("]")
	}

	// [HH:MM:SS] in gray
	if h.showTimestamps && !r.Time.IsZero() {
		if h.useColors {
			buf.WriteString(colorGray)
		}
		buf.WriteString(" [")
		buf.WriteString(r.Time.Format("15:04:05"))
		buf.WriteString("]")
		if h.useColors {
			buf.WriteString(colorReset)
		}
	}

	buf.WriteString(" ")
	buf.WriteString(r.Message)

	for _, attr := range h.attrs {
		appendAttr(&buf, "", attr)
	}
	r.Attrs(func(a slog.Attr) bool {
		if h.prefix == "" && a.Key == ComponentKey {
			return true
		}
		appendAttr(&buf, h.prefix, a)
		return true
	})

	buf.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, buf.String())
	return err
}

// appendAttr appends a key=value pair, flattening groups into dotted keys
func appendAttr(buf *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	key := a.Key
	if prefix != "" {
		key = prefix + "." + a.Key
	}

	if a.Value.Kind() == slog.KindGroup {
		// inline groups keep the parent prefix
		if a.Key == "" {
			key = prefix
		}
		for _, ga := range a.Value.Group() {
			appendAttr(buf, key, ga)
		}
		return
	}

	buf.WriteString(" ")
	buf.WriteString(key)
	buf.WriteString("=")
	val := fmt.Sprint(a.Value.Any())
	if strings.ContainsAny(val, " =\"") {
		val = fmt.Sprintf("%q", val)
	}
	buf.WriteString(val)
}

// WithAttrs returns a new handler with the given attributes added
func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := h.clone()
	for _, attr := range attrs {
		if h.prefix == "" && attr.Key == ComponentKey {
			clone.component = attr.Value.String()
			continue
		}
		if h.prefix != "" {
			attr = slog.Attr{Key: h.prefix + "." + attr.Key, Value: attr.Value}
		}
		clone.attrs = append(clone.attrs, attr)
	}
	return clone
}

// WithGroup returns a new handler whose later attributes are qualified by name
func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := h.clone()
	if clone.prefix == "" {
		clone.prefix = name
	} else {
		clone.prefix = clone.prefix + "." + name
	}
	return clone
}

func (h *ConsoleHandler) clone() *ConsoleHandler {
	attrs := make([]slog.Attr, len(h.attrs))
	copy(attrs, h.attrs)
	return &ConsoleHandler{
		w:              h.w,
		level:          h.level,
		mu:             h.mu,
		component:      h.component,
		showTimestamps: h.showTimestamps,
		useColors:      h.useColors,
		prefix:         h.prefix,
		attrs:          attrs,
	}
}

// levelColor returns the ANSI color code for a log level
func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return colorRed
	case level >= slog.LevelWarn:
		return colorYellow
	case level >= slog.LevelInfo:
		return colorCyan
	default:
		return colorGray
	}
}

// levelString returns a short, uppercase string for the log level
func levelString(level slog.Level) string {
	switch level {
	case slog.LevelDebug:
		return "DEBUG"
	case slog.LevelInfo:
		return "INFO"
	case slog.LevelWarn:
		return "WARN"
	case slog.LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", level)
	}
}
