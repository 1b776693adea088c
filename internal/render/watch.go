package render

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"mastohuman/internal/logging"
)

// debounceWindow coalesces rapid editor saves into one rebuild.
const debounceWindow = 500 * time.Millisecond

// Watch monitors a disk templates directory and calls rebuild whenever a
// template or stylesheet changes. Blocks until the context is cancelled.
// rebuild errors are logged, not fatal; the watch keeps running so a broken
// intermediate save doesn't kill the session.
func Watch(ctx context.Context, dir string, rebuild func() error) error {
	if dir == "" {
		return fmt.Errorf("watch requires a configured templates_dir")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	logging.Render("Watching templates directory: %s", dir)

	var timer *time.Timer
	pending := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !strings.HasSuffix(event.Name, ".html") && !strings.HasSuffix(event.Name, ".css") {
				continue
			}
			logging.RenderDebug("Template change: %s (%s)", event.Name, event.Op)
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceWindow, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Get(logging.CategoryRender).Warn("Watcher error: %v", err)

		case <-pending:
			if err := rebuild(); err != nil {
				logging.Get(logging.CategoryRender).Error("Rebuild failed: %v", err)
			} else {
				logging.Render("Site rebuilt after template change")
			}
		}
	}
}
