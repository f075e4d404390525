package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Level != LevelInfo {
		t.Errorf("Default level = %s, want info", cfg.Level)
	}
	if cfg.Pretty {
		t.Error("Default pretty should be false")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input LogLevel
		want  zerolog.Level
	}{
		{LevelDebug, zerolog.DebugLevel},
		{LevelInfo, zerolog.InfoLevel},
		{LevelWarn, zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{LevelError, zerolog.ErrorLevel},
		{"bogus", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewLoggerCarriesComponent(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Output: buf})

	logger := NewLogger("paginator")
	logger.Info().Msg("page fetched")

	out := buf.String()
	if !strings.Contains(out, "paginator") {
		t.Errorf("Output missing component field: %q", out)
	}
	if !strings.Contains(out, "page fetched") {
		t.Errorf("Output missing message: %q", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelWarn, Output: buf})

	logger := NewLogger("client")
	logger.Debug().Msg("dropped debug")
	logger.Warn().Msg("kept warn")

	out := buf.String()
	if strings.Contains(out, "dropped debug") {
		t.Error("Debug message should be filtered out at warn level")
	}
	if !strings.Contains(out, "kept warn") {
		t.Error("Warn message should pass at warn level")
	}
}
