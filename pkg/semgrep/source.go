package semgrep

import (
	"fmt"
	"os"
	"path/filepath"
)

// FindingSource loads the scanner's findings. Injected into the analysis
// runner so the core is testable without real files.
type FindingSource interface {
	LoadFindings() (*Report, error)
}

// SourceText resolves the original text of a scanned file, addressed the
// same way the findings address it.
type SourceText interface {
	Load(path string) (string, error)
}

// FileFindingSource reads a semgrep JSON report from disk.
type FileFindingSource struct {
	Path string
}

// LoadFindings opens and decodes the report file.
func (s *FileFindingSource) LoadFindings() (*Report, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("opening findings file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// DirSourceText reads scanned files relative to a root directory, caching
// contents for the life of a run. Offsets in findings are byte positions
// into these files.
type DirSourceText struct {
	root  string
	cache map[string]string
}

// NewDirSourceText creates a loader rooted at the given directory.
func NewDirSourceText(root string) *DirSourceText {
	return &DirSourceText{
		root:  root,
		cache: make(map[string]string),
	}
}

// Load returns the full text of the scanned file at the given
// report-relative path.
func (s *DirSourceText) Load(path string) (string, error) {
	if text, ok := s.cache[path]; ok {
		return text, nil
	}
	data, err := os.ReadFile(filepath.Join(s.root, path))
	if err != nil {
		return "", fmt.Errorf("reading source file %s: %w", path, err)
	}
	text := string(data)
	s.cache[path] = text
	return text, nil
}

// Invalidate drops cached file contents. Watch mode calls this before
// re-running analysis so edits are picked up.
func (s *DirSourceText) Invalidate() {
	s.cache = make(map[string]string)
}
