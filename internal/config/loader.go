// SPDX-License-Identifier: EPL-2.0

package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and
// validates the result. An empty document yields the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.LogMaxSizeMB < 0 {
		errs = append(errs, fmt.Errorf("server.log_max_size_mb must not be negative, got %d", cfg.Server.LogMaxSizeMB))
	}
	if cfg.Server.LogMaxBackups < 0 {
		errs = append(errs, fmt.Errorf("server.log_max_backups must not be negative, got %d", cfg.Server.LogMaxBackups))
	}

	rec := cfg.Recording
	if strings.ContainsAny(rec.FilePrefix, `/\`) {
		errs = append(errs, fmt.Errorf("recording.file_prefix %q must not contain path separators", rec.FilePrefix))
	}
	if rec.LevelInterval < 0 {
		errs = append(errs, fmt.Errorf("recording.level_interval must not be negative, got %s", rec.LevelInterval))
	}
	if rec.MaxBufferSeconds < 0 {
		errs = append(errs, fmt.Errorf("recording.max_buffer_seconds must not be negative, got %d", rec.MaxBufferSeconds))
	}
	if rec.Weights.System < 0 || rec.Weights.Mic < 0 {
		errs = append(errs, fmt.Errorf("recording.weights must not be negative, got system=%g mic=%g", rec.Weights.System, rec.Weights.Mic))
	}

	src := cfg.Sources
	switch src.System.Mode {
	case "", ModeLoopback, ModeCapture:
	default:
		errs = append(errs, fmt.Errorf("sources.system.mode %q is invalid; valid values: loopback, capture", src.System.Mode))
	}
	if !src.System.IsEnabled() && !src.Mic.IsEnabled() {
		errs = append(errs, errors.New("sources: at least one of system or mic must be enabled"))
	}
	if src.System.File != "" && src.System.Device != "" {
		errs = append(errs, errors.New("sources.system: device and file are mutually exclusive"))
	}
	if src.Mic.File != "" && src.Mic.Device != "" {
		errs = append(errs, errors.New("sources.mic: device and file are mutually exclusive"))
	}

	return errors.Join(errs...)
}
