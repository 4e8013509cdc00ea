package content

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dkessler/homepage/log"
)

const debounceDelay = 300 * time.Millisecond

// Watch re-indexes the content tree whenever a file under it changes.
// Bursts of events (editor save dances, git checkouts) are debounced
// into one reindex. Blocks until the context is cancelled.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	for _, dir := range []string{s.dir, filepath.Join(s.dir, "posts")} {
		if err := watcher.Add(dir); err != nil {
			return err
		}
	}
	log.Info("content.watch: watching " + s.dir)

	debounce := time.NewTimer(debounceDelay)
	if !debounce.Stop() {
		<-debounce.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			log.Debugf("content.watch: %s", event)
			debounce.Reset(debounceDelay)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warnf("content.watch: %s", err)

		case <-debounce.C:
			if err := s.Reindex(ctx); err != nil {
				log.Errorf("content.watch.reindex: %s", err)
			}
		}
	}
}
