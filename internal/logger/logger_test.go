package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/jwebster45206/story-graph/internal/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		env      string
		wantJSON bool
	}{
		{"production logs json", "production", true},
		{"development logs text", "development", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := New(&config.Config{Environment: tt.env, LogLevel: slog.LevelInfo}, &buf)
			WithError(WithRequestID(l, "req-1"), errors.New("boom")).Info("hello")

			out := buf.String()
			isJSON := json.Valid(bytes.TrimSpace(buf.Bytes()))
			if isJSON != tt.wantJSON {
				t.Errorf("output json = %v, want %v: %s", isJSON, tt.wantJSON, out)
			}
			if !strings.Contains(out, "req-1") || !strings.Contains(out, "boom") {
				t.Errorf("output missing attributes: %s", out)
			}
		})
	}
}

func TestNew_Level(t *testing.T) {
	var buf bytes.Buffer
	l := New(&config.Config{LogLevel: slog.LevelWarn}, &buf)
	l.Info("quiet")
	if buf.Len() != 0 {
		t.Errorf("info logged at warn level: %s", buf.String())
	}
	WithSession(l, "abc").Warn("loud")
	if !strings.Contains(buf.String(), "session_id=abc") {
		t.Errorf("output = %s", buf.String())
	}
}
