// Package logging writes structured log lines for the tracker. Lines go to
// stderr by default so command output on stdout stays machine-readable.
package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
	"sync"
	"time"
)

// Level is the severity of a log line.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l < LevelDebug || l > LevelError {
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel accepts level names in any case; "warning" is an alias of warn.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug, nil
	case "INFO", "":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarn, nil
	case "ERROR":
		return LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level: %s", s)
}

// Fields are the structured attributes of a log line.
type Fields map[string]interface{}

// ApplicationLogger is the logger used throughout the tracker.
type ApplicationLogger interface {
	Debug(ctx context.Context, message string, fields Fields)
	Info(ctx context.Context, message string, fields Fields)
	Warn(ctx context.Context, message string, fields Fields)
	Error(ctx context.Context, message string, fields Fields)
	LogPerformance(ctx context.Context, operation string, duration time.Duration, fields Fields)
	WithComponent(component string) ApplicationLogger
}

// Config selects level, format and destination.
type Config struct {
	Level  string
	Format string // json, text
	Output string // stderr (default), stdout
	// Writer overrides Output when set.
	Writer io.Writer
}

// Entry is one line in json format.
type Entry struct {
	Timestamp     string                 `json:"timestamp"`
	Level         string                 `json:"level"`
	Message       string                 `json:"message"`
	Component     string                 `json:"component,omitempty"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	Asset         string                 `json:"asset,omitempty"`
	Fields        map[string]interface{} `json:"fields,omitempty"`
}

type sink struct {
	mu   sync.Mutex
	w    io.Writer
	json bool
	now  func() time.Time
}

type logger struct {
	level     Level
	component string
	out       *sink
}

// NewApplicationLogger builds a logger from config.
func NewApplicationLogger(config Config) (ApplicationLogger, error) {
	level, err := ParseLevel(config.Level)
	if err != nil {
		return nil, err
	}

	var asJSON bool
	switch config.Format {
	case "json":
		asJSON = true
	case "text", "":
	default:
		return nil, fmt.Errorf("invalid log format: %s", config.Format)
	}

	w := config.Writer
	if w == nil {
		switch config.Output {
		case "stderr", "":
			w = os.Stderr
		case "stdout":
			w = os.Stdout
		default:
			return nil, fmt.Errorf("invalid log output: %s", config.Output)
		}
	}

	return &logger{
		level: level,
		out:   &sink{w: w, json: asJSON, now: time.Now},
	}, nil
}

func (l *logger) Debug(ctx context.Context, message string, fields Fields) {
	l.log(ctx, LevelDebug, message, fields)
}

func (l *logger) Info(ctx context.Context, message string, fields Fields) {
	l.log(ctx, LevelInfo, message, fields)
}

func (l *logger) Warn(ctx context.Context, message string, fields Fields) {
	l.log(ctx, LevelWarn, message, fields)
}

func (l *logger) Error(ctx context.Context, message string, fields Fields) {
	l.log(ctx, LevelError, message, fields)
}

// LogPerformance logs how long an operation took, in milliseconds.
func (l *logger) LogPerformance(ctx context.Context, operation string, duration time.Duration, fields Fields) {
	merged := make(Fields, len(fields)+2)
	maps.Copy(merged, fields)
	merged["operation"] = operation
	merged["duration_ms"] = duration.Milliseconds()
	l.log(ctx, LevelInfo, operation+" finished", merged)
}

// WithComponent returns a logger that tags its lines with component and
// shares the destination of l.
func (l *logger) WithComponent(component string) ApplicationLogger {
	return &logger{level: l.level, component: component, out: l.out}
}

func (l *logger) log(ctx context.Context, level Level, message string, fields Fields) {
	if level < l.level {
		return
	}
	entry := Entry{
		Level:         level.String(),
		Message:       message,
		Component:     l.component,
		CorrelationID: CorrelationIDFromContext(ctx),
		Asset:         AssetFromContext(ctx),
	}
	if len(fields) > 0 {
		entry.Fields = fields
	}
	l.out.write(&entry)
}

func (s *sink) write(entry *Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.Timestamp = s.now().UTC().Format(time.RFC3339)
	if s.json {
		data, err := json.Marshal(entry)
		if err != nil {
			return
		}
		_, _ = s.w.Write(append(data, '\n'))
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %-5s ", entry.Timestamp, entry.Level)
	if entry.Component != "" {
		fmt.Fprintf(&b, "[%s] ", entry.Component)
	}
	b.WriteString(entry.Message)
	if entry.Asset != "" {
		fmt.Fprintf(&b, " asset=%s", entry.Asset)
	}
	for _, k := range slices.Sorted(maps.Keys(entry.Fields)) {
		fmt.Fprintf(&b, " %s=%s", k, textValue(entry.Fields[k]))
	}
	if entry.CorrelationID != "" {
		fmt.Fprintf(&b, " correlation_id=%s", entry.CorrelationID)
	}
	b.WriteByte('\n')
	_, _ = io.WriteString(s.w, b.String())
}

func textValue(v interface{}) string {
	s := fmt.Sprint(v)
	if s == "" || strings.ContainsAny(s, " \t\"=") {
		return fmt.Sprintf("%q", s)
	}
	return s
}
