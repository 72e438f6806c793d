package out

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"retort/internal/modules/report/domain"
	reportout "retort/internal/modules/report/port/out"
)

// FileManifestStore reads exporter manifests from <vault>/plugins/plugins.json.
// Relative binary paths are resolved against the plugins directory.
type FileManifestStore struct {
	dir  string
	path string
}

func NewFileManifestStore(vaultPath string) reportout.ManifestStore {
	dir := filepath.Join(vaultPath, "plugins")
	return &FileManifestStore{dir: dir, path: filepath.Join(dir, "plugins.json")}
}

func (s *FileManifestStore) Load(_ context.Context) ([]domain.Manifest, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.Manifest{}, nil
		}
		return nil, fmt.Errorf("read exporter manifests: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return []domain.Manifest{}, nil
	}
	var manifests []domain.Manifest
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&manifests); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	for i := range manifests {
		m := &manifests[i]
		if m.Binary != "" && !filepath.IsAbs(m.Binary) {
			m.Binary = filepath.Join(s.dir, m.Binary)
		}
		for j, f := range m.Formats {
			m.Formats[j] = strings.ToLower(strings.TrimSpace(f))
		}
	}
	return manifests, nil
}
