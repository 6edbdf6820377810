package catalog

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch reloads the catalog whenever either document changes on disk, until
// the context is cancelled. The offline content manager rewrites the files
// whole (write to temp, rename), so a single reload per event is enough.
func (c *Catalog) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(c.dir); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isCatalogFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			c.log.Debug("catalog file changed", zap.String("file", event.Name), zap.String("op", event.Op.String()))
			if err := c.Load(); err != nil {
				c.log.Warn("catalog reload failed", zap.Error(err))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.log.Warn("catalog watcher error", zap.Error(err))
		}
	}
}

func isCatalogFile(path string) bool {
	name := filepath.Base(path)
	return name == ScenariosFile || name == TemplatesFile
}
