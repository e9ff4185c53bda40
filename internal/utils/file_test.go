package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidateInputFile(t *testing.T) {
	dir := t.TempDir()
	small := filepath.Join(dir, "job.txt")
	if err := os.WriteFile(small, []byte("hello"), 0600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		maxSize int64
		wantErr bool
	}{
		{"ok", small, 0, false},
		{"within limit", small, 5, false},
		{"over limit", small, 4, true},
		{"missing", filepath.Join(dir, "nope.txt"), 0, true},
		{"directory", dir, 0, true},
		{"empty name", "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateInputFile(tt.path, tt.maxSize)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateInputFile() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFileKinds(t *testing.T) {
	tests := []struct {
		name     string
		text     bool
		document bool
	}{
		{"resume.DOCX", false, true},
		{"resume.pdf", false, true},
		{"job.txt", true, false},
		{"notes.md", true, false},
		{"image.png", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTextFile(tt.name); got != tt.text {
				t.Errorf("IsTextFile(%q) = %v", tt.name, got)
			}
			if got := IsDocumentFile(tt.name); got != tt.document {
				t.Errorf("IsDocumentFile(%q) = %v", tt.name, got)
			}
		})
	}
}

func TestFormatFileSize(t *testing.T) {
	tests := map[int64]string{
		512:      "512 B",
		1536:     "1.5 KB",
		10 << 20: "10.0 MB",
	}
	for size, want := range tests {
		if got := FormatFileSize(size); got != want {
			t.Errorf("FormatFileSize(%d) = %q, want %q", size, got, want)
		}
	}
}

func TestEnsureParentDir(t *testing.T) {
	target := filepath.Join(t.TempDir(), "a", "b", "out.json")
	if err := EnsureParentDir(target); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Dir(target)); err != nil {
		t.Errorf("parent not created: %v", err)
	}
}
