package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	FileName           = "retort.yaml"
	DefaultMaxReadings = 120
	DefaultLogLevel    = "warn"
)

type Config struct {
	VaultPath   string        `yaml:"-"`
	Store       StoreConfig   `yaml:"store"`
	Engine      EngineConfig  `yaml:"engine"`
	Hold        HoldConfig    `yaml:"hold"`
	Cache       CacheConfig   `yaml:"cache"`
	Archive     ArchiveConfig `yaml:"archive"`
	Operators   []string      `yaml:"operators"`
	MaxReadings int           `yaml:"max_readings"`
	LogLevel    string        `yaml:"log_level"`
	// Facility is printed under the report title.
	Facility string `yaml:"facility"`
}

type StoreConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
}

// EngineConfig holds the lethality parameters applied when a caller does not pass its own.
type EngineConfig struct {
	ReferenceTemperature float64 `yaml:"reference_temperature"`
	ZValue               float64 `yaml:"z_value"`
	ActivationThreshold  float64 `yaml:"activation_threshold"`
	IntervalMinutes      float64 `yaml:"interval_minutes"`
}

type HoldConfig struct {
	MinimumTemperature     float64 `yaml:"minimum_temperature"`
	MinimumDurationMinutes float64 `yaml:"minimum_duration_minutes"`
}

type CacheConfig struct {
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

type ArchiveConfig struct {
	S3Bucket   string `yaml:"s3_bucket"`
	S3Prefix   string `yaml:"s3_prefix"`
	S3Region   string `yaml:"s3_region"`
	S3Endpoint string `yaml:"s3_endpoint"`
}

func Default(vaultPath string) Config {
	return Config{
		VaultPath: vaultPath,
		Store: StoreConfig{
			Driver: "sqlite",
			Path:   filepath.Join(vaultPath, ".retort", "retort.db"),
		},
		// Mirrors the lethality domain defaults; config_test keeps the two in step.
		Engine: EngineConfig{
			ReferenceTemperature: 121.1,
			ZValue:               10,
			ActivationThreshold:  90,
			IntervalMinutes:      1,
		},
		Hold: HoldConfig{
			MinimumTemperature:     121.1,
			MinimumDurationMinutes: 3,
		},
		Archive:     ArchiveConfig{S3Prefix: "reports"},
		MaxReadings: DefaultMaxReadings,
		LogLevel:    DefaultLogLevel,
	}
}

// New returns the defaults for vaultPath overlaid with <vault>/retort.yaml when present.
func New(vaultPath string) (Config, error) {
	if vaultPath == "" {
		return Config{}, fmt.Errorf("vault path is required")
	}
	cfg := Default(vaultPath)
	raw, err := os.ReadFile(filepath.Join(vaultPath, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := cfg.overlay(raw); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) overlay(raw []byte) error {
	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config: %w", err)
	}
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	if c.Store.Path != "" && !filepath.IsAbs(c.Store.Path) {
		c.Store.Path = filepath.Join(c.VaultPath, c.Store.Path)
	}
	return c.Validate()
}

func (c Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for sqlite")
		}
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("unsupported store driver %q", c.Store.Driver)
	}
	if c.MaxReadings <= 0 {
		return fmt.Errorf("max_readings must be positive")
	}
	return nil
}
