package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func newJSON(buf *bytes.Buffer, level string) *Logger {
	return NewWithWriter(&Config{Level: level, Format: FormatJSON}, buf, "crudkit")
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("expected a log line, got nothing")
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("log line is not json: %v (%s)", err, line)
	}
	return m
}

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	newJSON(&buf, "info").Info("hello", Fields("k", "v"), Fields("n", 2))

	m := decodeLine(t, &buf)
	if m["message"] != "hello" {
		t.Errorf("expected message hello, got %v", m["message"])
	}
	if m["k"] != "v" || m["n"] != float64(2) {
		t.Errorf("expected fields from every map, got %v", m)
	}
	if m[FieldService] != "crudkit" {
		t.Errorf("expected service field, got %v", m[FieldService])
	}
	if _, ok := m["time"]; ok {
		t.Error("expected no timestamp without Timestamp")
	}
}

func TestLevels(t *testing.T) {
	tests := []struct {
		level   string
		logged  []string
		dropped []string
	}{
		{"debug", []string{"d", "i", "w", "e"}, nil},
		{"warn", []string{"w", "e"}, []string{"d", "i"}},
		{"not-a-level", []string{"i", "w", "e"}, []string{"d"}},
		{"disabled", nil, []string{"d", "i", "w", "e"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			l := newJSON(&buf, tt.level)
			l.Debug("d")
			l.Info("i")
			l.Warn("w")
			l.Error("e")

			got := map[string]bool{}
			for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
				if line == "" {
					continue
				}
				var m map[string]any
				if err := json.Unmarshal([]byte(line), &m); err != nil {
					t.Fatalf("bad line %q: %v", line, err)
				}
				got[m["message"].(string)] = true
			}
			for _, msg := range tt.logged {
				if !got[msg] {
					t.Errorf("expected %q to be logged", msg)
				}
			}
			for _, msg := range tt.dropped {
				if got[msg] {
					t.Errorf("expected %q to be dropped", msg)
				}
			}
		})
	}
}

func TestNop(t *testing.T) {
	Nop().WithComponent("x").Error("nothing happens", Fields("k", "v"))
}

func TestWithComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	newJSON(&buf, "info").WithComponent("crud").WithFields(Fields("adapter", "api")).Info("x")

	m := decodeLine(t, &buf)
	if m[FieldComponent] != "crud" || m["adapter"] != "api" {
		t.Errorf("expected component and adapter fields, got %v", m)
	}
}

func TestWithContext(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	spanID, _ := trace.SpanIDFromHex("0102030405060708")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))
	ctx = ContextWithRequestID(ctx, "req-1")

	var buf bytes.Buffer
	newJSON(&buf, "info").WithContext(ctx).Info("x")

	m := decodeLine(t, &buf)
	if m[FieldRequestID] != "req-1" {
		t.Errorf("expected request id, got %v", m[FieldRequestID])
	}
	if m[FieldTraceID] != traceID.String() || m[FieldSpanID] != spanID.String() {
		t.Errorf("expected trace and span ids, got %v/%v", m[FieldTraceID], m[FieldSpanID])
	}
}

func TestWithContext_Empty(t *testing.T) {
	var buf bytes.Buffer
	newJSON(&buf, "info").WithContext(context.Background()).Info("x")

	m := decodeLine(t, &buf)
	for _, k := range []string{FieldRequestID, FieldTraceID, FieldSpanID} {
		if _, ok := m[k]; ok {
			t.Errorf("expected no %s field, got %v", k, m[k])
		}
	}
}

func TestRequestIDFromContext(t *testing.T) {
	if _, ok := RequestIDFromContext(context.Background()); ok {
		t.Error("expected no request id on empty context")
	}
	if _, ok := RequestIDFromContext(ContextWithRequestID(context.Background(), "")); ok {
		t.Error("expected an empty request id to count as absent")
	}
	id, ok := RequestIDFromContext(ContextWithRequestID(context.Background(), "abc"))
	if !ok || id != "abc" {
		t.Errorf("expected abc, got %q (%v)", id, ok)
	}
}

func TestConsoleFormat(t *testing.T) {
	tests := []struct {
		name    string
		service string
		want    string
	}{
		{"service tag", "crudctl", "[CRU][WRN]"},
		{"short service", "ab", "[WRN]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := NewWithWriter(&Config{Level: "info", Format: FormatConsole, NoColor: true}, &buf, tt.service)
			l.Warn("careful", Fields("status_code", 503))

			out := buf.String()
			if !strings.Contains(out, tt.want) {
				t.Errorf("expected %q in %q", tt.want, out)
			}
			if !strings.Contains(out, "careful") || !strings.Contains(out, "status_code:503") {
				t.Errorf("expected message and field, got %q", out)
			}
			if strings.Contains(out, "\033[") {
				t.Errorf("expected no escape codes with NoColor, got %q", out)
			}
		})
	}
}

func TestGlobalLogger(t *testing.T) {
	prev := GetGlobalLogger()
	t.Cleanup(func() { SetGlobalLogger(prev) })

	var buf bytes.Buffer
	SetGlobalLogger(newJSON(&buf, "info"))

	Info("global")
	if !strings.Contains(buf.String(), "global") {
		t.Errorf("expected package-level Info to use the global logger, got %s", buf.String())
	}
}

func TestGet(t *testing.T) {
	prev := GetGlobalLogger()
	t.Cleanup(func() { SetGlobalLogger(prev) })

	var first bytes.Buffer
	SetGlobalLogger(newJSON(&first, "info"))
	a := Get("httpclient")
	if Get("httpclient") != a {
		t.Error("expected Get to return the same logger for a name")
	}
	a.Info("x")
	if m := decodeLine(t, &first); m[FieldComponent] != "httpclient" {
		t.Errorf("expected component httpclient, got %v", m[FieldComponent])
	}

	var second bytes.Buffer
	SetGlobalLogger(newJSON(&second, "info"))
	Get("httpclient").Info("y")
	if !strings.Contains(second.String(), `"y"`) {
		t.Errorf("expected Get to follow the replaced global logger, got %q", second.String())
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()

	want := Config{Level: "info", Format: FormatConsole, Output: "stderr", Timestamp: true}
	if *cfg != want {
		t.Errorf("expected %+v, got %+v", want, *cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected defaults to validate, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Level: "debug", Format: FormatJSON, Output: "stdout"}, false},
		{"pretty", Config{Level: "disabled", Format: FormatPretty, Output: "stderr"}, false},
		{"bad level", Config{Level: "loud", Format: FormatJSON, Output: "stdout"}, true},
		{"bad format", Config{Level: "info", Format: "xml", Output: "stdout"}, true},
		{"bad output", Config{Level: "info", Format: FormatJSON, Output: "file"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFields(t *testing.T) {
	m := Fields("a", 1, "b", "two", 3, "ignored", "dangling")

	if len(m) != 2 {
		t.Errorf("expected 2 fields, got %d: %v", len(m), m)
	}
	if m["a"] != 1 || m["b"] != "two" {
		t.Errorf("unexpected fields: %v", m)
	}
}
