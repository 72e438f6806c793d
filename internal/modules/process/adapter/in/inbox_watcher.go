package in

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	hclog "github.com/hashicorp/go-hclog"

	"retort/internal/modules/process/dto"
)

const (
	processedDir = "processed"
	failedDir    = "failed"
)

type Importer interface {
	Import(ctx context.Context, input dto.ImportInput) (dto.ImportOutput, error)
}

// InboxWatcher imports logger files dropped into <root>/<session-id>/.
// Handled files are moved to processed/ or failed/ next to where they landed.
type InboxWatcher struct {
	root     string
	importer Importer
	logger   hclog.Logger
	settle   time.Duration
}

func NewInboxWatcher(root string, importer Importer, logger hclog.Logger) *InboxWatcher {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &InboxWatcher{root: root, importer: importer, logger: logger, settle: 500 * time.Millisecond}
}

// WithSettle sets how long a file must stay quiet before it is imported.
func (w *InboxWatcher) WithSettle(d time.Duration) *InboxWatcher {
	w.settle = d
	return w
}

// Sweep imports every file already waiting in the inbox.
func (w *InboxWatcher) Sweep(ctx context.Context) (int, error) {
	sessions, err := os.ReadDir(w.root)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read inbox: %w", err)
	}
	handled := 0
	for _, dir := range sessions {
		if !dir.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(w.root, dir.Name()))
		if err != nil {
			return handled, fmt.Errorf("read inbox %s: %w", dir.Name(), err)
		}
		for _, f := range files {
			path := filepath.Join(w.root, dir.Name(), f.Name())
			if f.IsDir() || !importable(path) {
				continue
			}
			w.handle(ctx, path)
			handled++
		}
	}
	return handled, nil
}

// Run sweeps the inbox, then watches it until ctx is cancelled.
func (w *InboxWatcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.root, 0o755); err != nil {
		return fmt.Errorf("create inbox: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(w.root); err != nil {
		return err
	}
	entries, err := os.ReadDir(w.root)
	if err != nil {
		return fmt.Errorf("read inbox: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			if err := watcher.Add(filepath.Join(w.root, e.Name())); err != nil {
				return err
			}
		}
	}
	if _, err := w.Sweep(ctx); err != nil {
		w.logger.Error("inbox sweep failed", "error", err)
	}
	w.logger.Info("watching inbox", "path", w.root)

	pending := map[string]time.Time{}
	ticker := time.NewTicker(w.settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if filepath.Dir(event.Name) == filepath.Clean(w.root) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watcher.Add(event.Name)
					w.logger.Debug("watching session inbox", "path", event.Name)
				}
				continue
			}
			if importable(event.Name) {
				pending[event.Name] = time.Now()
			}

		case now := <-ticker.C:
			for path, seen := range pending {
				if now.Sub(seen) < w.settle {
					continue
				}
				delete(pending, path)
				w.handle(ctx, path)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("inbox watcher error", "error", err)
		}
	}
}

func (w *InboxWatcher) handle(ctx context.Context, path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	sessionID := filepath.Base(filepath.Dir(path))
	out, err := w.importer.Import(ctx, dto.ImportInput{SessionID: sessionID, Path: path})
	target := processedDir
	if err != nil {
		target = failedDir
		w.logger.Warn("inbox import failed", "session", sessionID, "file", filepath.Base(path), "error", err)
	} else {
		w.logger.Info("inbox import", "session", sessionID, "file", filepath.Base(path), "imported", out.Imported, "failed", out.Failed)
	}
	for _, msg := range out.Errors {
		w.logger.Debug("rejected row", "session", sessionID, "file", filepath.Base(path), "detail", msg)
	}
	if err := moveInto(path, target); err != nil {
		w.logger.Error("inbox file not moved", "file", path, "error", err)
	}
}

func importable(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".json":
		return !strings.HasPrefix(filepath.Base(path), ".")
	default:
		return false
	}
}

func moveInto(path, sub string) error {
	dir := filepath.Join(filepath.Dir(path), sub)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.Rename(path, filepath.Join(dir, filepath.Base(path)))
}
