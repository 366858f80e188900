package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		cfg     Config
		wantErr bool
	}{
		{Config{}, false},
		{Config{Level: "debug", Format: "console"}, false},
		{Config{Level: "WARN", Format: "json"}, false},
		{Config{Level: "loud"}, true},
		{Config{Format: "xml"}, true},
	}

	for _, tt := range tests {
		_, err := New(tt.cfg)
		if (err != nil) != tt.wantErr {
			t.Errorf("New(%+v) error = %v, wantErr %v", tt.cfg, err, tt.wantErr)
		}
	}
}

func TestNewWriter(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWriter(&buf, "info")
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}

	log.Debug("hidden")
	log.Info("month done")
	_ = log.Sync()

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("Expected debug message to be filtered")
	}
	if !strings.Contains(out, `"msg":"month done"`) {
		t.Errorf("Expected info message in output, got %q", out)
	}
	if !strings.Contains(out, `"timestamp"`) {
		t.Errorf("Expected timestamp key in output, got %q", out)
	}
}
