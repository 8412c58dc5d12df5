// Package logger builds the engine's slog loggers: JSON lines in production
// and a compact colored console format while developing.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/munajjam/munajjam/internal/domain"
)

const (
	formatJSON   = "json"
	formatPretty = "pretty"
)

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiBlue   = "\033[34m"
	ansiCyan   = "\033[36m"
	ansiBold   = "\033[1m"
	ansiDim    = "\033[2m"
)

// Similarity attributes are colored by band so weak ayahs stand out in a
// scrolling batch log.
var scoreKeys = map[string]bool{
	"similarity":     true,
	"avg_similarity": true,
	"score":          true,
}

// Logger is the process-wide logger handed out by the container.
type Logger struct {
	*slog.Logger
}

// Config selects the output format and level.
type Config struct {
	Writer io.Writer

	// Format is "json" or "pretty". Empty picks json in production.
	Format      string
	Environment string
	Level       slog.Level
	AddSource   bool

	// NoColor drops ANSI sequences from the pretty format. It is also set
	// when the NO_COLOR environment variable is non-empty.
	NoColor bool
}

// New builds a logger from cfg.
func New(cfg Config) *Logger {
	if cfg.Writer == nil {
		cfg.Writer = os.Stderr
	}
	if os.Getenv("NO_COLOR") != "" {
		cfg.NoColor = true
	}
	if cfg.Format == "" {
		cfg.Format = formatPretty
		if cfg.Environment == "production" {
			cfg.Format = formatJSON
		}
	}

	opts := &slog.HandlerOptions{Level: cfg.Level, AddSource: cfg.AddSource}
	if cfg.Format == formatJSON {
		opts.ReplaceAttr = trimSource
		return &Logger{Logger: slog.New(slog.NewJSONHandler(cfg.Writer, opts))}
	}

	h := NewPrettyHandler(cfg.Writer, opts)
	h.color = !cfg.NoColor
	return &Logger{Logger: slog.New(h)}
}

func trimSource(_ []string, a slog.Attr) slog.Attr {
	if src, ok := a.Value.Any().(*slog.Source); ok && a.Key == slog.SourceKey {
		src.File = filepath.Base(src.File)
	}
	return a
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// OrDiscard returns l, or a discarding logger when l is nil.
func OrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return Discard()
	}
	return l
}

// ParseLevel maps a config string to a level. Unknown values mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ForSurah scopes a logger to one surah of one recitation.
func ForSurah(l *slog.Logger, rec domain.Recitation, surah int) *slog.Logger {
	return OrDiscard(l).With(
		slog.String("recitation_id", rec.ID),
		slog.String("reciter", rec.ReciterName),
		slog.Int("surah", surah),
	)
}

// ForAttempt further scopes a surah logger to one retry attempt.
func ForAttempt(l *slog.Logger, rec domain.Recitation, surah, attempt int) *slog.Logger {
	return ForSurah(l, rec, surah).With(slog.Int("attempt", attempt))
}

// PrettyHandler writes one line per record:
//
//	15:04:05.000 INF message key=value ...
//
// Lines are written under a shared mutex so parallel surah workers never
// interleave.
type PrettyHandler struct {
	opts  *slog.HandlerOptions
	w     io.Writer
	mu    *sync.Mutex
	attrs []slog.Attr
	group string
	color bool
}

// NewPrettyHandler returns a plain handler writing to w. New turns color on
// unless it is disabled.
func NewPrettyHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &PrettyHandler{opts: opts, w: w, mu: &sync.Mutex{}}
}

func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	if h.opts.Level == nil {
		return level >= slog.LevelInfo
	}
	return level >= h.opts.Level.Level()
}

func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	buf := make([]byte, 0, 256)

	buf = h.paint(buf, ansiDim, r.Time.Format("15:04:05.000"))
	buf = append(buf, ' ')
	label, color := levelLabel(r.Level)
	buf = h.paint(buf, color, label)
	buf = append(buf, ' ')

	if h.opts.AddSource && r.PC != 0 {
		f, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		buf = h.paint(buf, ansiDim, filepath.Base(f.File)+":"+strconv.Itoa(f.Line))
		buf = append(buf, ' ')
	}
	buf = h.paint(buf, ansiBold, r.Message)

	for _, a := range h.attrs {
		buf = h.appendAttr(buf, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		buf = h.appendAttr(buf, slog.Attr{Key: h.group + a.Key, Value: a.Value})
		return true
	})
	buf = append(buf, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf)
	return err
}

func (h *PrettyHandler) appendAttr(buf []byte, a slog.Attr) []byte {
	buf = append(buf, ' ')
	buf = h.paint(buf, ansiCyan, a.Key+"=")

	val := a.Value.Resolve()
	color := ""
	if scoreKeys[a.Key[strings.LastIndexByte(a.Key, '.')+1:]] && val.Kind() == slog.KindFloat64 {
		color = scoreColor(val.Float64())
	}
	if a.Key == "error" {
		color = ansiRed
	}
	return h.paint(buf, color, formatValue(val))
}

func (h *PrettyHandler) paint(buf []byte, color, s string) []byte {
	if !h.color || color == "" {
		return append(buf, s...)
	}
	buf = append(buf, color...)
	buf = append(buf, s...)
	return append(buf, ansiReset...)
}

func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	clone.attrs = append(clone.attrs, h.attrs...)
	for _, a := range attrs {
		clone.attrs = append(clone.attrs, slog.Attr{Key: h.group + a.Key, Value: a.Value})
	}
	return &clone
}

func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.group = h.group + name + "."
	return &clone
}

func levelLabel(level slog.Level) (string, string) {
	switch {
	case level >= slog.LevelError:
		return "ERR", ansiRed
	case level >= slog.LevelWarn:
		return "WRN", ansiYellow
	case level >= slog.LevelInfo:
		return "INF", ansiGreen
	default:
		return "DBG", ansiBlue
	}
}

// scoreColor bands a similarity the way the quality report does.
func scoreColor(s float64) string {
	switch {
	case s >= 0.9:
		return ansiGreen
	case s >= 0.7:
		return ansiYellow
	default:
		return ansiRed
	}
}

func formatValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', 3, 64)
	case slog.KindString:
		s := v.String()
		if s == "" || strings.ContainsAny(s, " \t\"=") {
			return strconv.Quote(s)
		}
		return s
	default:
		return v.String()
	}
}
