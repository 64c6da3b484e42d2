package batch

import (
	"context"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watch monitors the given input files and calls onChange with the path of
// each file that is written or recreated. It runs until ctx is cancelled.
// Paths that cannot be added are logged and skipped so one missing file does
// not take down the watch on the others.
func Watch(ctx context.Context, paths []string, onChange func(path string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	watched := 0
	for _, p := range paths {
		if err := watcher.Add(p); err != nil {
			slog.Warn("batch: cannot watch input", "path", p, "err", err)
			continue
		}
		watched++
	}
	if watched == 0 {
		slog.Warn("batch: no watchable inputs; file-change re-analysis disabled")
		<-ctx.Done()
		return nil
	}

	slog.Info("batch: watching inputs for changes", "files", watched)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Spreadsheet editors and atomic saves surface as write or
			// create; chmod and remove are noise.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			slog.Info("batch: input changed", "path", event.Name)
			onChange(event.Name)

			// Re-add the file in case an atomic save replaced the inode.
			_ = watcher.Add(event.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("batch: watcher error", "err", err)
		}
	}
}
