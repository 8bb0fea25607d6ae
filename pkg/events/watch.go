package events

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"desaweb/pkg/logger"
)

// settle is how long a file must stay quiet before its change is reported.
const settle = 300 * time.Millisecond

// WatchFile publishes MirrorChanged on bus whenever path, or one of its
// SQLite side files (-wal, -shm, -journal), is written. Bursts of writes are
// reported once. It blocks until ctx ends.
func WatchFile(ctx context.Context, path string, bus Bus) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		return err
	}
	base := filepath.Base(path)
	logger.WithField("path", path).Info("watching mirror file")

	var pending time.Time
	ticker := time.NewTicker(settle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.HasPrefix(filepath.Base(ev.Name), base) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				pending = time.Now()
			}
		case <-ticker.C:
			if !pending.IsZero() && time.Since(pending) > settle {
				pending = time.Time{}
				if err := bus.Publish(ctx, Event{Type: MirrorChanged, ID: base}); err != nil {
					logger.WithField("path", path).Warnf("publish mirror change: %v", err)
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.WithField("path", path).Warnf("watch error: %v", err)
		}
	}
}
