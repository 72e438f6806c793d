package in_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	processin "retort/internal/modules/process/adapter/in"
	"retort/internal/modules/process/dto"
)

type recordingImporter struct {
	mu    sync.Mutex
	calls []dto.ImportInput
	fail  bool
}

func (r *recordingImporter) Import(_ context.Context, input dto.ImportInput) (dto.ImportOutput, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, input)
	if r.fail {
		return dto.ImportOutput{SessionID: input.SessionID}, errors.New("boom")
	}
	return dto.ImportOutput{SessionID: input.SessionID, Imported: 2}, nil
}

func (r *recordingImporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestInboxSweepImportsAndMovesFiles(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "sess-1", "logger.csv"), "minute,suhu,tekanan\n0,100,1\n")
	writeFile(t, filepath.Join(root, "sess-1", "notes.txt"), "ignored")
	writeFile(t, filepath.Join(root, "sess-2", "bulk.json"), `{"readings":[]}`)

	importer := &recordingImporter{}
	handled, err := processin.NewInboxWatcher(root, importer, nil).Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if handled != 2 || importer.count() != 2 {
		t.Fatalf("expected 2 imports, handled=%d calls=%d", handled, importer.count())
	}
	if importer.calls[0].SessionID != "sess-1" || importer.calls[1].SessionID != "sess-2" {
		t.Fatalf("unexpected session routing %+v", importer.calls)
	}
	if _, err := os.Stat(filepath.Join(root, "sess-1", "processed", "logger.csv")); err != nil {
		t.Fatalf("expected processed file: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "sess-1", "notes.txt")); err != nil {
		t.Fatalf("non-import file must stay: %v", err)
	}
}

func TestInboxSweepMovesFailedImports(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "sess-1", "broken.csv"), "x\n")

	if _, err := processin.NewInboxWatcher(root, &recordingImporter{fail: true}, nil).Sweep(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "sess-1", "failed", "broken.csv")); err != nil {
		t.Fatalf("expected failed file: %v", err)
	}
}

func TestInboxSweepMissingRoot(t *testing.T) {
	t.Parallel()
	handled, err := processin.NewInboxWatcher(filepath.Join(t.TempDir(), "absent"), &recordingImporter{}, nil).Sweep(context.Background())
	if err != nil || handled != 0 {
		t.Fatalf("expected empty sweep, got %d %v", handled, err)
	}
}

func TestInboxWatcherPicksUpDroppedFiles(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "sess-7"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	importer := &recordingImporter{}
	watcher := processin.NewInboxWatcher(root, importer, nil).WithSettle(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watcher.Run(ctx) }()

	// give the watcher time to register before dropping the file
	time.Sleep(200 * time.Millisecond)
	writeFile(t, filepath.Join(root, "sess-7", "run.csv"), "minute,suhu,tekanan\n0,121,1\n")

	deadline := time.Now().Add(5 * time.Second)
	for importer.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
	if importer.count() != 1 || importer.calls[0].SessionID != "sess-7" {
		t.Fatalf("expected one import for sess-7, got %+v", importer.calls)
	}
}
