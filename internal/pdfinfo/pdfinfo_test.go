package pdfinfo

import "testing"

func TestStem(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/exams/2026/math.pdf", "math"},
		{"math.pdf", "math"},
		{"/exams/math.2026.pdf", "math.2026"},
		{"noext", "noext"},
	}
	for _, tt := range tests {
		if got := Stem(tt.path); got != tt.want {
			t.Errorf("Stem(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestRead_MissingFile(t *testing.T) {
	if _, err := Read("/does/not/exist.pdf"); err == nil {
		t.Error("expected an error for a missing file")
	}
}
