package corekb

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// FileSource serves the astrology knowledge core from a local file. The file
// is read lazily on first use, not at import time, and a watcher reloads it
// when it changes on disk — that is the reload policy.
type FileSource struct {
	path   string
	logger *slog.Logger

	once    sync.Once
	initErr error

	mu      sync.RWMutex
	text    string
	watcher *fsnotify.Watcher
}

// NewFileSource constructs a lazy file-backed source.
func NewFileSource(path string, logger *slog.Logger) *FileSource {
	return &FileSource{path: path, logger: logger.With("component", "corekb.file")}
}

// Text returns the knowledge core, loading it on first call.
func (s *FileSource) Text(_ context.Context) (string, error) {
	s.once.Do(s.load)
	if s.initErr != nil {
		return "", s.initErr
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.text, nil
}

func (s *FileSource) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		s.initErr = fmt.Errorf("read knowledge core %s: %w", s.path, err)
		return
	}
	s.text = string(data)
	s.logger.Info("knowledge core loaded", "path", s.path, "bytes", len(data))

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Warn("knowledge core watcher unavailable, reloads disabled", "error", err)
		return
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		s.logger.Warn("knowledge core watch failed, reloads disabled", "error", err)
		watcher.Close()
		return
	}
	s.watcher = watcher
	go s.watch(watcher)
}

func (s *FileSource) watch(watcher *fsnotify.Watcher) {
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Name != s.path || !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}
			data, err := os.ReadFile(s.path)
			if err != nil {
				s.logger.Warn("knowledge core reload failed", "error", err)
				continue
			}
			s.mu.Lock()
			s.text = string(data)
			s.mu.Unlock()
			s.logger.Info("knowledge core reloaded", "bytes", len(data))
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("knowledge core watcher error", "error", err)
		}
	}
}

// Close stops the reload watcher.
func (s *FileSource) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}
