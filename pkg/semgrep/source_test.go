package semgrep

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileFindingSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "semgrep.json")
	if err := os.WriteFile(path, []byte(sampleReport), 0o644); err != nil {
		t.Fatal(err)
	}

	source := &FileFindingSource{Path: path}
	report, err := source.LoadFindings()
	if err != nil {
		t.Fatalf("LoadFindings: %v", err)
	}
	if len(report.Results) != 3 {
		t.Errorf("expected 3 results, got %d", len(report.Results))
	}
}

func TestFileFindingSourceMissing(t *testing.T) {
	source := &FileFindingSource{Path: filepath.Join(t.TempDir(), "nope.json")}
	if _, err := source.LoadFindings(); err == nil {
		t.Error("expected an error for a missing findings file")
	}
}

func TestDirSourceTextCaches(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.py")
	if err := os.WriteFile(path, []byte("first"), 0o644); err != nil {
		t.Fatal(err)
	}

	loader := NewDirSourceText(dir)
	text, err := loader.Load("app.py")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if text != "first" {
		t.Errorf("unexpected content %q", text)
	}

	// The cache holds until invalidated, even when the file changes.
	if err := os.WriteFile(path, []byte("second"), 0o644); err != nil {
		t.Fatal(err)
	}
	text, err = loader.Load("app.py")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if text != "first" {
		t.Errorf("expected cached content, got %q", text)
	}

	loader.Invalidate()
	text, err = loader.Load("app.py")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if text != "second" {
		t.Errorf("expected fresh content after invalidation, got %q", text)
	}
}

func TestDirSourceTextMissingFile(t *testing.T) {
	loader := NewDirSourceText(t.TempDir())
	if _, err := loader.Load("missing.py"); err == nil {
		t.Error("expected an error for a missing source file")
	}
}
