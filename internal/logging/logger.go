package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Options controls logger construction.
type Options struct {
	// Level is the minimum level emitted (debug, info, warn, error).
	Level string
	// Format selects the handler: "console" for human-readable output,
	// "json" for structured logs.
	Format string
	// OutputPaths lists destinations for non-error logs. Supports
	// "stdout", "stderr", or file paths.
	OutputPaths []string
	// ErrorOutputPaths lists destinations for error-level logs.
	ErrorOutputPaths []string
	// Development enables source locations in JSON output.
	Development bool
}

// New builds a slog.Logger from the supplied options.
func New(opts Options) (*slog.Logger, error) {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	stdout, err := openWriters(defaultSlice(opts.OutputPaths, []string{"stdout"}))
	if err != nil {
		return nil, err
	}
	stderr, err := openWriters(defaultSlice(opts.ErrorOutputPaths, []string{"stderr"}))
	if err != nil {
		return nil, err
	}

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "console"
	}

	var handler slog.Handler
	switch format {
	case "console":
		handler = newConsoleHandler(stdout, stderr, level)
	case "json":
		handler = newJSONHandler(stdout, level, opts.Development)
	default:
		return nil, fmt.Errorf("unsupported log format %q", opts.Format)
	}

	return slog.New(handler), nil
}

func parseLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", raw)
	}
}

func defaultSlice(values []string, fallback []string) []string {
	if len(values) == 0 {
		return fallback
	}
	return values
}

func openWriters(paths []string) (io.Writer, error) {
	writers := make([]io.Writer, 0, len(paths))
	seen := make(map[string]struct{}, len(paths))
	for _, path := range paths {
		trimmed := strings.TrimSpace(path)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		switch trimmed {
		case "stdout":
			writers = append(writers, os.Stdout)
		case "stderr":
			writers = append(writers, os.Stderr)
		default:
			if err := os.MkdirAll(filepath.Dir(trimmed), 0o755); err != nil {
				return nil, fmt.Errorf("create log directory for %s: %w", trimmed, err)
			}
			file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return nil, fmt.Errorf("open log file %s: %w", trimmed, err)
			}
			writers = append(writers, file)
		}
	}
	if len(writers) == 0 {
		return io.Discard, nil
	}
	if len(writers) == 1 {
		return writers[0], nil
	}
	return io.MultiWriter(writers...), nil
}

func newJSONHandler(w io.Writer, level slog.Level, development bool) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: development,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.TimeKey:
				if t, ok := attr.Value.Any().(time.Time); ok {
					attr.Key = "ts"
					attr.Value = slog.StringValue(t.UTC().Format(time.RFC3339Nano))
				}
			case slog.LevelKey:
				attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
			case slog.SourceKey:
				if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
					attr.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
				}
			}
			return attr
		},
	})
}

// consoleHandler renders compact single-line output for terminals:
// timestamp, level label, optional component prefix, message, then
// remaining attributes as key=value pairs.
type consoleHandler struct {
	stdout io.Writer
	stderr io.Writer
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func newConsoleHandler(stdout, stderr io.Writer, level slog.Level) *consoleHandler {
	return &consoleHandler{stdout: stdout, stderr: stderr, level: level}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	attrs := make([]slog.Attr, 0, len(h.attrs)+record.NumAttrs())
	attrs = append(attrs, h.attrs...)
	record.Attrs(func(attr slog.Attr) bool {
		attrs = append(attrs, attr)
		return true
	})

	flat := make(map[string]slog.Value, len(attrs))
	order := make([]string, 0, len(attrs))
	for _, attr := range attrs {
		flattenAttr(h.groups, attr, flat, &order)
	}

	var b strings.Builder
	b.WriteString(record.Time.UTC().Format(time.RFC3339))
	b.WriteByte(' ')
	b.WriteString(levelLabel(record.Level))
	b.WriteByte(' ')
	if component, ok := flat[FieldComponent]; ok {
		b.WriteByte('[')
		b.WriteString(component.String())
		b.WriteString("] ")
	}
	b.WriteString(record.Message)

	for _, key := range order {
		if key == FieldComponent {
			continue
		}
		b.WriteByte(' ')
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(formatValue(flat[key]))
	}
	b.WriteByte('\n')

	out := h.stdout
	if record.Level >= slog.LevelError {
		out = h.stderr
	}
	_, err := io.WriteString(out, b.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := h.clone()
	clone.attrs = append(clone.attrs, attrs...)
	return clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if strings.TrimSpace(name) == "" {
		return h
	}
	clone := h.clone()
	clone.groups = append(clone.groups, name)
	return clone
}

func (h *consoleHandler) clone() *consoleHandler {
	return &consoleHandler{
		stdout: h.stdout,
		stderr: h.stderr,
		level:  h.level,
		attrs:  append([]slog.Attr(nil), h.attrs...),
		groups: append([]string(nil), h.groups...),
	}
}

func flattenAttr(groups []string, attr slog.Attr, into map[string]slog.Value, order *[]string) {
	if attr.Value.Kind() == slog.KindGroup {
		nested := append(append([]string(nil), groups...), attr.Key)
		for _, member := range attr.Value.Group() {
			flattenAttr(nested, member, into, order)
		}
		return
	}
	key := attr.Key
	if len(groups) > 0 {
		key = strings.Join(groups, ".") + "." + key
	}
	if _, exists := into[key]; !exists {
		*order = append(*order, key)
	}
	into[key] = attr.Value.Resolve()
}

func formatValue(value slog.Value) string {
	var text string
	switch value.Kind() {
	case slog.KindString:
		text = value.String()
	case slog.KindDuration:
		text = value.Duration().String()
	case slog.KindTime:
		text = value.Time().UTC().Format(time.RFC3339)
	default:
		text = fmt.Sprint(value.Any())
	}
	if needsQuotes(text) {
		return fmt.Sprintf("%q", text)
	}
	return text
}

func needsQuotes(text string) bool {
	if text == "" {
		return true
	}
	return strings.ContainsAny(text, " \t\n\"=")
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
