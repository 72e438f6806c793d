package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	hclog "github.com/hashicorp/go-hclog"

	"retort/internal/modules/report/domain"
	"retort/internal/modules/report/dto"
	reportout "retort/internal/modules/report/port/out"
)

const builtinRenderer = "builtin"

type ReportService struct {
	renderers map[string]reportout.Renderer
	store     reportout.ManifestStore
	host      reportout.PluginHost
	sink      reportout.Sink
	inspector reportout.Inspector
	prefix    string
	logger    hclog.Logger
}

type Options struct {
	Renderers []reportout.Renderer
	Manifests reportout.ManifestStore
	Host      reportout.PluginHost
	Sink      reportout.Sink
	Inspector reportout.Inspector
	// KeyPrefix is the first segment of archive keys.
	KeyPrefix string
	Logger    hclog.Logger
}

func NewReportService(opts Options) *ReportService {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	renderers := make(map[string]reportout.Renderer, len(opts.Renderers))
	for _, r := range opts.Renderers {
		renderers[r.Format()] = r
	}
	return &ReportService{
		renderers: renderers,
		store:     opts.Manifests,
		host:      opts.Host,
		sink:      opts.Sink,
		inspector: opts.Inspector,
		prefix:    opts.KeyPrefix,
		logger:    logger,
	}
}

// Render validates input, renders it with a built-in renderer or the first
// enabled plugin that declares the format, then hands the artifact to the sink.
func (s *ReportService) Render(ctx context.Context, input domain.Input, format string) (domain.Artifact, string, string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if err := input.Validate(); err != nil {
		return domain.Artifact{}, "", "", err
	}
	artifact, renderer, err := s.render(ctx, input, format)
	if err != nil {
		return domain.Artifact{}, "", "", err
	}
	location := ""
	if s.sink != nil {
		key := domain.ArchiveKey(s.prefix, input.Batch.ProcessDate, input.Batch.SessionID, input.ParamsKey, artifact.Extension)
		location, err = s.sink.Put(ctx, key, artifact)
		if err != nil {
			return domain.Artifact{}, "", "", fmt.Errorf("store report: %w", err)
		}
	}
	s.logger.Info("report rendered", "session", input.Batch.SessionID, "format", format, "renderer", renderer, "bytes", len(artifact.Body), "location", location)
	return artifact, renderer, location, nil
}

func (s *ReportService) render(ctx context.Context, input domain.Input, format string) (domain.Artifact, string, error) {
	if r, ok := s.renderers[format]; ok {
		artifact, err := r.Render(ctx, input)
		if err != nil {
			return domain.Artifact{}, "", fmt.Errorf("render %s: %w", format, err)
		}
		return artifact, builtinRenderer, nil
	}
	manifest, err := s.pluginFor(ctx, format)
	if err != nil {
		return domain.Artifact{}, "", err
	}
	artifact, err := s.host.Render(ctx, manifest, format, input)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.Artifact{}, "", fmt.Errorf("%w: %s", domain.ErrPluginTimeout, manifest.Name)
		}
		return domain.Artifact{}, "", fmt.Errorf("plugin %s render %s: %w", manifest.Name, format, err)
	}
	if artifact.Format == "" {
		artifact.Format = format
	}
	if artifact.Extension == "" {
		artifact.Extension = format
	}
	return artifact, manifest.Name, nil
}

func (s *ReportService) pluginFor(ctx context.Context, format string) (domain.Manifest, error) {
	if s.store == nil || s.host == nil {
		return domain.Manifest{}, fmt.Errorf("%w: %s", domain.ErrFormatUnsupported, format)
	}
	manifests, err := s.loadValidated(ctx)
	if err != nil {
		return domain.Manifest{}, err
	}
	var disabled string
	for _, m := range manifests {
		if !m.Supports(format) {
			continue
		}
		if !m.Enabled {
			disabled = m.Name
			continue
		}
		if err := checksumMatches(m.Binary, m.SHA256); err != nil {
			return domain.Manifest{}, err
		}
		return m, nil
	}
	if disabled != "" {
		return domain.Manifest{}, fmt.Errorf("%w: %s", domain.ErrPluginDisabled, disabled)
	}
	return domain.Manifest{}, fmt.Errorf("%w: %s", domain.ErrFormatUnsupported, format)
}

// Formats lists built-in formats followed by formats offered by enabled plugins.
func (s *ReportService) Formats(ctx context.Context) ([]dto.FormatInfo, error) {
	out := make([]dto.FormatInfo, 0, len(s.renderers))
	for format := range s.renderers {
		out = append(out, dto.FormatInfo{Format: format, Renderer: builtinRenderer})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Format < out[j].Format })
	if s.store == nil {
		return out, nil
	}
	manifests, err := s.loadValidated(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range manifests {
		if !m.Enabled {
			continue
		}
		for _, f := range m.Formats {
			if _, builtin := s.renderers[f]; builtin {
				continue
			}
			out = append(out, dto.FormatInfo{Format: f, Renderer: m.Name})
		}
	}
	return out, nil
}

func (s *ReportService) Inspect(ctx context.Context, path string) (domain.Inspection, error) {
	if s.inspector == nil {
		return domain.Inspection{}, fmt.Errorf("%w: pdf inspection unavailable", domain.ErrFormatUnsupported)
	}
	return s.inspector.Inspect(ctx, path)
}

func (s *ReportService) List(ctx context.Context) ([]dto.PluginInfo, error) {
	if s.store == nil {
		return []dto.PluginInfo{}, nil
	}
	manifests, err := s.loadValidated(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.PluginInfo, 0, len(manifests))
	for _, m := range manifests {
		out = append(out, dto.PluginInfo{Name: m.Name, Version: m.Version, Enabled: m.Enabled, Binary: m.Binary, Formats: m.Formats})
	}
	return out, nil
}

func (s *ReportService) Doctor(ctx context.Context) ([]dto.DoctorResult, error) {
	if s.store == nil {
		return []dto.DoctorResult{}, nil
	}
	manifests, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	results := make([]dto.DoctorResult, 0, len(manifests))
	for _, m := range manifests {
		result := dto.DoctorResult{Name: m.Name}
		result.APICompatible = domain.CheckAPIVersion(m.Version) == nil
		if err := m.Validate(); err != nil {
			result.Error = err.Error()
			results = append(results, result)
			continue
		}
		binaryOK := fileExists(m.Binary)
		result.BinaryReachable = binaryOK
		checksumOK := false
		if binaryOK {
			checksumOK = checksumMatches(m.Binary, m.SHA256) == nil
		}
		result.ChecksumValid = checksumOK
		if binaryOK && checksumOK && m.Enabled && s.host != nil {
			if err := s.host.CheckLifecycle(ctx, m); err != nil {
				result.Error = err.Error()
			} else {
				result.LifecycleOK = true
			}
		}
		if !binaryOK {
			result.Error = fmt.Sprintf("binary does not exist: %s", m.Binary)
		}
		if binaryOK && !checksumOK {
			result.Error = "checksum mismatch"
		}
		results = append(results, result)
	}
	return results, nil
}

func (s *ReportService) loadValidated(ctx context.Context) ([]domain.Manifest, error) {
	manifests, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	seenNames := map[string]struct{}{}
	for _, manifest := range manifests {
		if err := manifest.Validate(); err != nil {
			return nil, fmt.Errorf("plugin %q: %w", manifest.Name, err)
		}
		if _, ok := seenNames[manifest.Name]; ok {
			return nil, fmt.Errorf("duplicate plugin name: %s", manifest.Name)
		}
		seenNames[manifest.Name] = struct{}{}
	}
	return manifests, nil
}

func checksumMatches(path string, expected string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read plugin binary: %w", err)
	}
	hash := sha256.Sum256(payload)
	actual := hex.EncodeToString(hash[:])
	if actual != expected {
		return fmt.Errorf("%w: %s", domain.ErrChecksumMismatch, filepath.Base(path))
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
