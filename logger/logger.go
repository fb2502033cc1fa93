package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Logger is a zerolog logger with crudkit's field conventions.
type Logger struct {
	zl zerolog.Logger
}

// New builds a logger writing to cfg.Output.
func New(cfg *Config, service string) *Logger {
	w := io.Writer(os.Stderr)
	if strings.EqualFold(cfg.Output, "stdout") {
		w = os.Stdout
	}
	return NewWithWriter(cfg, w, service)
}

// NewWithWriter builds a logger writing to w. An unknown level falls back to
// info. JSON lines carry the service name as a field; console lines carry
// its first three letters as a tag.
func NewWithWriter(cfg *Config, w io.Writer, service string) *Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var zc zerolog.Context
	switch strings.ToLower(cfg.Format) {
	case FormatConsole, FormatPretty:
		zc = zerolog.New(consoleWriter(cfg.NoColor, w, service)).With()
	default:
		zc = zerolog.New(w).With()
		if service != "" {
			zc = zc.Str(FieldService, service)
		}
	}
	if cfg.Timestamp {
		zc = zc.Timestamp()
	}
	if cfg.Caller {
		zc = zc.Caller()
	}
	return &Logger{zl: zc.Logger().Level(level)}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

type requestIDKey struct{}

// ContextWithRequestID stores a request ID picked up by WithContext.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request ID stored by ContextWithRequestID.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}

// WithContext adds the request ID and the IDs of the active span in ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	zc := l.zl.With()
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		zc = zc.Str(FieldTraceID, sc.TraceID().String()).Str(FieldSpanID, sc.SpanID().String())
	}
	if id, ok := RequestIDFromContext(ctx); ok {
		zc = zc.Str(FieldRequestID, id)
	}
	return &Logger{zl: zc.Logger()}
}

// WithComponent tags every line with a component name.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{zl: l.zl.With().Str(FieldComponent, name).Logger()}
}

// WithFields adds fields to every line.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	return &Logger{zl: l.zl.With().Fields(fields).Logger()}
}

func (l *Logger) Debug(msg string, fields ...map[string]any) { emit(l.zl.Debug(), msg, fields) }
func (l *Logger) Info(msg string, fields ...map[string]any)  { emit(l.zl.Info(), msg, fields) }
func (l *Logger) Warn(msg string, fields ...map[string]any)  { emit(l.zl.Warn(), msg, fields) }
func (l *Logger) Error(msg string, fields ...map[string]any) { emit(l.zl.Error(), msg, fields) }

func emit(e *zerolog.Event, msg string, fields []map[string]any) {
	if e == nil {
		return
	}
	for _, f := range fields {
		e.Fields(f)
	}
	e.Msg(msg)
}

var levelTags = map[string]struct{ short, color string }{
	"TRACE": {"TRC", "90"},
	"DEBUG": {"DBG", "36"},
	"INFO":  {"INF", "32"},
	"WARN":  {"WRN", "33"},
	"ERROR": {"ERR", "31"},
	"FATAL": {"FTL", "35"},
}

func colorize(s, code string, noColor bool) string {
	if noColor || code == "" {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

// consoleWriter prints "15:04:05 [CRU][WRN] message key:value".
func consoleWriter(noColor bool, w io.Writer, service string) zerolog.ConsoleWriter {
	var tag string
	if len(service) >= 3 {
		tag = colorize("["+strings.ToUpper(service[:3])+"]", "34", noColor)
	}
	return zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
		NoColor:    noColor,
		FormatLevel: func(i any) string {
			lvl := levelTags[strings.ToUpper(fmt.Sprint(i))]
			if lvl.short == "" {
				lvl.short = strings.ToUpper(fmt.Sprint(i))
			}
			return tag + colorize("["+lvl.short+"]", lvl.color, noColor)
		},
		FormatFieldName: func(i any) string {
			return fmt.Sprint(i) + ":"
		},
	}
}
