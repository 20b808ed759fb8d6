package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Render.DPI != 300 {
		t.Errorf("Render.DPI = %d, want 300", cfg.Render.DPI)
	}
	if cfg.Export.DPI != 300 {
		t.Errorf("Export.DPI = %d, want 300", cfg.Export.DPI)
	}
	if cfg.OCR.Backend != "tesseract" {
		t.Errorf("OCR.Backend = %q, want tesseract", cfg.OCR.Backend)
	}
	if len(cfg.Labels) != 5 || cfg.Labels[0] != "A" || cfg.Labels[4] != "E" {
		t.Errorf("Labels = %v, want A..E", cfg.Labels)
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Setenv("PAGEMARK_TEST_KEY", "secret123")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"env reference", "${PAGEMARK_TEST_KEY}", "secret123"},
		{"embedded", "key=${PAGEMARK_TEST_KEY}!", "key=secret123!"},
		{"no reference", "plain-value", "plain-value"},
		{"empty", "", ""},
		{"unset var", "${PAGEMARK_DOES_NOT_EXIST}", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveEnvVars(tt.input); got != tt.want {
				t.Errorf("ResolveEnvVars(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	content := string(data)

	if !strings.HasPrefix(content, "# Pagemark configuration") {
		t.Error("config file missing header comment")
	}
	for _, want := range []string{"render:", "export:", "ocr:", "${MISTRAL_API_KEY}"} {
		if !strings.Contains(content, want) {
			t.Errorf("config file missing %q", want)
		}
	}
}
