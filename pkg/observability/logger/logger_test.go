package logger

import (
	"context"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":   DebugLevel,
		"info":    InfoLevel,
		"warn":    WarnLevel,
		"warning": WarnLevel,
		"error":   ErrorLevel,
	}
	for raw, want := range cases {
		got, err := ParseLogLevel(raw)
		if err != nil || got != want {
			t.Errorf("ParseLogLevel(%q) = %v, %v; want %v", raw, got, err, want)
		}
	}

	if _, err := ParseLogLevel("verbose"); err == nil {
		t.Error("expected an error for an unknown level")
	}
}

func TestParseLogFormat(t *testing.T) {
	cases := map[string]LogFormat{
		"json":    JSONFormat,
		"text":    TextFormat,
		"console": TextFormat,
	}
	for raw, want := range cases {
		got, err := ParseLogFormat(raw)
		if err != nil || got != want {
			t.Errorf("ParseLogFormat(%q) = %v, %v; want %v", raw, got, err, want)
		}
	}

	if _, err := ParseLogFormat("xml"); err == nil {
		t.Error("expected an error for an unknown format")
	}
}

func TestJobNameContextRoundTrip(t *testing.T) {
	ctx := ContextWithJobName(context.Background(), "billing_CloseDay")
	if got := JobNameFromContext(ctx); got != "billing_CloseDay" {
		t.Errorf("expected billing_CloseDay, got %q", got)
	}

	if got := JobNameFromContext(context.Background()); got != "" {
		t.Errorf("expected empty job name, got %q", got)
	}
	if got := JobNameFromContext(nil); got != "" {
		t.Errorf("expected empty job name for nil context, got %q", got)
	}
}

func TestNewZapLogger(t *testing.T) {
	for _, format := range []LogFormat{JSONFormat, TextFormat} {
		log, err := NewZapLogger(Config{Level: DebugLevel, Format: format})
		if err != nil {
			t.Fatalf("new logger (%s): %v", format, err)
		}
		log.Debug("debug line", "key", "value")
		log.With("job", "billing_CloseDay").Info("info line")
		log.WithContext(ContextWithJobName(context.Background(), "billing_CloseDay")).Warn("warn line")
	}
}
