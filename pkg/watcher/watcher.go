// Package watcher re-triggers analysis when the scanner's findings file or
// the scanned sources change on disk.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"taintlens/pkg/logging"
)

// ChangeType represents the type of file change detected
type ChangeType int

const (
	ChangeTypeFindings ChangeType = iota
	ChangeTypeSource
)

// ChangeEvent represents a batch of file system changes
type ChangeEvent struct {
	Type      ChangeType
	Paths     []string
	Timestamp time.Time
}

// FileWatcher watches the findings file and the scanned source tree.
type FileWatcher struct {
	watcher      *fsnotify.Watcher
	findingsPath string
	sourceRoot   string
	events       chan ChangeEvent
}

// NewFileWatcher creates a watcher over the findings file and source root.
func NewFileWatcher(findingsPath, sourceRoot string) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	abs, err := filepath.Abs(findingsPath)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("resolving findings path: %w", err)
	}

	return &FileWatcher{
		watcher:      watcher,
		findingsPath: abs,
		sourceRoot:   sourceRoot,
		events:       make(chan ChangeEvent, 100),
	}, nil
}

// Start begins watching for file changes
func (fw *FileWatcher) Start(ctx context.Context) error {
	// fsnotify watches directories; the findings file is matched by name
	// inside its parent.
	if err := fw.watcher.Add(filepath.Dir(fw.findingsPath)); err != nil {
		logging.Warn("failed to watch findings directory", "error", err)
	}

	if err := fw.watchSourceTree(); err != nil {
		logging.Warn("failed to watch source tree", "error", err)
	}

	logging.Info("watching for changes", "findings", fw.findingsPath, "sourceRoot", fw.sourceRoot)

	go fw.processEvents(ctx)
	return nil
}

// watchSourceTree adds every directory under the source root, skipping
// hidden directories and dependency trees.
func (fw *FileWatcher) watchSourceTree() error {
	count := 0
	err := filepath.Walk(fw.sourceRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip files we can't access
		}
		if !info.IsDir() {
			return nil
		}

		name := info.Name()
		if path != fw.sourceRoot && (strings.HasPrefix(name, ".") || name == "node_modules" || name == "vendor") {
			return filepath.SkipDir
		}

		if err := fw.watcher.Add(path); err != nil {
			logging.Warn("failed to watch directory", "path", path, "error", err)
			return nil
		}
		count++
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk source root: %w", err)
	}

	logging.Info("monitoring source directories", "count", count)
	return nil
}

// processEvents batches file system events by type before emitting them.
func (fw *FileWatcher) processEvents(ctx context.Context) {
	var findingsChanges []string
	var sourceChanges []string

	flushTimer := time.NewTimer(100 * time.Millisecond)
	flushTimer.Stop()

	flush := func() {
		if len(findingsChanges) > 0 {
			fw.events <- ChangeEvent{
				Type:      ChangeTypeFindings,
				Paths:     findingsChanges,
				Timestamp: time.Now(),
			}
			findingsChanges = nil
		}
		if len(sourceChanges) > 0 {
			fw.events <- ChangeEvent{
				Type:      ChangeTypeSource,
				Paths:     sourceChanges,
				Timestamp: time.Now(),
			}
			sourceChanges = nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			fw.watcher.Close()
			close(fw.events)
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			// Write and create events matter; chmod noise does not.
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}

			abs, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}

			if abs == fw.findingsPath {
				findingsChanges = append(findingsChanges, event.Name)
				flushTimer.Reset(100 * time.Millisecond)
			} else if !strings.HasPrefix(filepath.Base(event.Name), ".") {
				sourceChanges = append(sourceChanges, event.Name)
				flushTimer.Reset(100 * time.Millisecond)
			}

		case <-flushTimer.C:
			flush()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

// Events returns the channel of change events
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}

// Stop stops the file watcher
func (fw *FileWatcher) Stop() error {
	return fw.watcher.Close()
}
