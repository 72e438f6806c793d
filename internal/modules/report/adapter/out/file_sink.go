package out

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"retort/internal/modules/report/domain"
	reportout "retort/internal/modules/report/port/out"
)

// FileSink writes artifacts under a base directory using the archive key as a relative path.
type FileSink struct {
	baseDir string
}

var _ reportout.Sink = FileSink{}

func NewFileSink(baseDir string) FileSink {
	return FileSink{baseDir: baseDir}
}

func (s FileSink) Put(_ context.Context, key string, artifact domain.Artifact) (string, error) {
	path := filepath.Join(s.baseDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, artifact.Body, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("finalize report: %w", err)
	}
	return path, nil
}
