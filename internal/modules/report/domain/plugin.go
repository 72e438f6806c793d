package domain

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/Masterminds/semver/v3"
)

// ExporterAPIConstraint is the range of exporter API versions this host speaks.
const ExporterAPIConstraint = ">=1.0.0, <2.0.0"

var (
	ErrPluginDisabled    = errors.New("plugin is disabled")
	ErrChecksumMismatch  = errors.New("plugin checksum mismatch")
	ErrPluginTimeout     = errors.New("plugin timeout")
	ErrFormatUnsupported = errors.New("report format not supported")
	ErrIncompatibleAPI   = errors.New("plugin api version not supported")
)

var (
	sha256Pattern = regexp.MustCompile(`^[a-f0-9]{64}$`)
	formatPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)
	apiRange      = mustConstraint(ExporterAPIConstraint)
)

func mustConstraint(raw string) *semver.Constraints {
	c, err := semver.NewConstraint(raw)
	if err != nil {
		panic(err)
	}
	return c
}

type Manifest struct {
	Name    string   `json:"name"`
	Version string   `json:"version"`
	Binary  string   `json:"binary"`
	SHA256  string   `json:"sha256"`
	Enabled bool     `json:"enabled"`
	Formats []string `json:"formats"`
}

func (m Manifest) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("plugin name is required")
	}
	if err := CheckAPIVersion(m.Version); err != nil {
		return err
	}
	if m.Binary == "" {
		return fmt.Errorf("plugin binary path is required")
	}
	if !sha256Pattern.MatchString(m.SHA256) {
		return fmt.Errorf("plugin sha256 must be lowercase 64-char hex")
	}
	if len(m.Formats) == 0 {
		return fmt.Errorf("plugin formats are required")
	}
	seen := map[string]struct{}{}
	for _, f := range m.Formats {
		if !formatPattern.MatchString(f) {
			return fmt.Errorf("invalid format name: %q", f)
		}
		if _, ok := seen[f]; ok {
			return fmt.Errorf("duplicate format: %s", f)
		}
		seen[f] = struct{}{}
	}
	return nil
}

func (m Manifest) Supports(format string) bool {
	for _, f := range m.Formats {
		if f == format {
			return true
		}
	}
	return false
}

// CheckAPIVersion accepts a semantic version inside ExporterAPIConstraint.
func CheckAPIVersion(version string) error {
	if version == "" {
		return fmt.Errorf("plugin version is required")
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("plugin version %q: %w", version, err)
	}
	if !apiRange.Check(v) {
		return fmt.Errorf("%w: %s not in %s", ErrIncompatibleAPI, v, ExporterAPIConstraint)
	}
	return nil
}

type Metadata struct {
	Name    string
	Version string
	Formats []string
}
