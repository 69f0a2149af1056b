package storage

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ownWriteGrace hides the events caused by Save itself.
const ownWriteGrace = time.Second

// Watch calls changed whenever the games file is modified by someone else,
// at most once per debounce interval. It blocks until ctx is done.
func (s *Store) Watch(ctx context.Context, debounce time.Duration, changed func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "creating file watcher")
	}
	defer w.Close()

	// Watch the directory: editors and Save replace the file by rename.
	dir := filepath.Dir(s.path)
	if err := w.Add(dir); err != nil {
		return errors.Wrapf(err, "watching %s", dir)
	}
	target := filepath.Clean(s.path)

	var pending bool
	ticker := time.NewTicker(debounce)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if time.Since(time.Unix(0, s.lastSave.Load())) < ownWriteGrace {
				continue
			}
			pending = true
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("file watcher error", zap.Error(err))
		case <-ticker.C:
			if pending {
				pending = false
				s.logger.Debug("games file changed on disk")
				changed()
			}
		}
	}
}
