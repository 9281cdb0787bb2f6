package service

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/tejashwikalptaru/tunecore/internal/domain"
)

// Watch keeps the library in sync with dirs until ctx is done.
// New or rewritten audio files are resolved and added, removed or renamed ones are
// dropped. Directories created below a watched root are watched as well.
// The returned channel is closed once the watcher has shut down.
func (s *LibraryService) Watch(ctx context.Context, dirs ...string) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, domain.NewServiceError("LibraryService", "Watch", "cannot create watcher", err)
	}

	for _, dir := range dirs {
		if err := s.watchTree(watcher, dir); err != nil {
			_ = watcher.Close()
			return nil, err
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				s.handleFSEvent(watcher, event)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("watcher error", slog.Any("error", err))
			}
		}
	}()

	s.logger.Info("watching library folders", slog.Any("dirs", dirs))
	return done, nil
}

func (s *LibraryService) watchTree(watcher *fsnotify.Watcher, root string) error {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return domain.NewServiceError("LibraryService", "Watch", root, domain.ErrDirectoryNotFound)
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := watcher.Add(path); err != nil {
			return domain.NewServiceError("LibraryService", "Watch", "cannot watch "+path, err)
		}
		return nil
	})
}

func (s *LibraryService) handleFSEvent(watcher *fsnotify.Watcher, event fsnotify.Event) {
	switch {
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		s.RemoveTrack(event.Name)

	case event.Has(fsnotify.Create) || event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil {
			return
		}
		if info.IsDir() {
			if err := s.watchTree(watcher, event.Name); err != nil {
				s.logger.Warn("cannot watch new folder", slog.String("path", event.Name), slog.Any("error", err))
			}
			return
		}
		if !domain.IsSupportedAudioFile(event.Name) {
			return
		}
		if s.index.Has(event.Name) {
			if _, err := s.ReloadMetadata(event.Name); err != nil {
				s.logger.Debug("metadata reload failed", slog.String("path", event.Name), slog.Any("error", err))
			}
			return
		}
		if s.scanFile(event.Name) {
			s.publishChanged()
		}
	}
}
