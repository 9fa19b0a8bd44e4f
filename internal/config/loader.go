// Package config loads the metal-serial run configuration from YAML with
// environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/metal-test/metal/internal/constants"
)

// Loader resolves configuration and cache locations.
type Loader struct {
	homeDir string
}

// NewLoader creates a config loader.
// The base directory is resolved in this order:
//  1. METAL_SERIAL_HOME environment variable.
//  2. User home directory (~/).
//  3. The system temporary directory.
func NewLoader() *Loader {
	if dir := os.Getenv("METAL_SERIAL_HOME"); dir != "" {
		return &Loader{homeDir: dir}
	}
	if home, err := os.UserHomeDir(); err == nil {
		return &Loader{homeDir: home}
	}
	return &Loader{homeDir: os.TempDir()}
}

// CacheDir is the default serial info cache directory.
func (l *Loader) CacheDir() string {
	return filepath.Join(l.homeDir, constants.DefaultDir, constants.CacheDir)
}

// Load reads path, or ./metal-serial.yaml when path is empty. A missing
// default file yields the defaults; a missing explicit file is an error.
// Environment overrides are applied last, then the result is validated.
func (l *Loader) Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = constants.ConfigFile
	}

	cfg := Default()
	//nolint:gosec // G304: Path is supplied by the user.
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := MergeFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = l.CacheDir()
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Save writes cfg as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	//nolint:gosec // G306: Run configuration is not sensitive.
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
