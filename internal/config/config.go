// SPDX-License-Identifier: EPL-2.0

// Package config defines the duorec configuration file.
package config

import (
	"log/slog"
	"time"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Slog maps l to a slog level. Unknown values map to Info.
func (l LogLevel) Slog() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	}
	return slog.LevelInfo
}

// SystemMode selects how the system source is captured.
type SystemMode string

const (
	// ModeLoopback records what the default output device is playing.
	ModeLoopback SystemMode = "loopback"
	// ModeCapture records from a capture device, such as a monitor source
	// or a virtual cable.
	ModeCapture SystemMode = "capture"
)

// Config is the root of the configuration file.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Recording RecordingConfig `yaml:"recording"`
	Sources   SourcesConfig   `yaml:"sources"`
}

// ServerConfig configures the control server and logging.
type ServerConfig struct {
	// ListenAddr is the TCP address of the control server. Default: "127.0.0.1:7070".
	ListenAddr string `yaml:"listen_addr"`

	LogLevel LogLevel `yaml:"log_level"`

	// LogFile enables rotating file logging instead of stderr.
	LogFile string `yaml:"log_file"`

	// LogMaxSizeMB is the size at which the log file rotates. Default: 10.
	LogMaxSizeMB int `yaml:"log_max_size_mb"`

	// LogMaxBackups is the number of rotated files kept. Default: 3.
	LogMaxBackups int `yaml:"log_max_backups"`
}

// RecordingConfig configures sessions.
type RecordingConfig struct {
	// OutputDir receives the WAV files. Default: the working directory.
	OutputDir string `yaml:"output_dir"`

	// FilePrefix starts every file name. Default: "recording".
	FilePrefix string `yaml:"file_prefix"`

	// LevelInterval is the minimum spacing of level events. Default: 50ms.
	LevelInterval time.Duration `yaml:"level_interval"`

	// Metering enables level events. Default: true.
	Metering *bool `yaml:"metering"`

	// MaxBufferSeconds bounds each source buffer. Zero keeps them unbounded.
	MaxBufferSeconds int `yaml:"max_buffer_seconds"`

	Weights WeightsConfig `yaml:"weights"`
}

// WeightsConfig holds the mix weight of each source. When both are zero
// the sources are mixed equally.
type WeightsConfig struct {
	System float32 `yaml:"system"`
	Mic    float32 `yaml:"mic"`
}

// SourcesConfig selects the capture sources.
type SourcesConfig struct {
	System SystemSourceConfig `yaml:"system"`
	Mic    MicSourceConfig    `yaml:"mic"`
}

// SystemSourceConfig configures the system-audio source.
type SystemSourceConfig struct {
	// Enabled defaults to true.
	Enabled *bool      `yaml:"enabled"`
	Mode    SystemMode `yaml:"mode"`

	// Device is a case-insensitive substring of the device name. Empty
	// selects the default device.
	Device string `yaml:"device"`

	// File replays an audio file in place of a device.
	File string `yaml:"file"`
}

// MicSourceConfig configures the microphone source.
type MicSourceConfig struct {
	Enabled *bool  `yaml:"enabled"`
	Device  string `yaml:"device"`
	File    string `yaml:"file"`
}

// IsEnabled reports whether the system source is on.
func (s SystemSourceConfig) IsEnabled() bool { return s.Enabled == nil || *s.Enabled }

// IsEnabled reports whether the mic source is on.
func (s MicSourceConfig) IsEnabled() bool { return s.Enabled == nil || *s.Enabled }

// MeteringEnabled reports whether level events are emitted.
func (r RecordingConfig) MeteringEnabled() bool { return r.Metering == nil || *r.Metering }

// Default values applied by [ApplyDefaults].
const (
	DefaultListenAddr    = "127.0.0.1:7070"
	DefaultFilePrefix    = "recording"
	DefaultLevelInterval = 50 * time.Millisecond
	DefaultLogMaxSizeMB  = 10
	DefaultLogMaxBackups = 3
)

// ApplyDefaults fills in every unset field.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Server.LogMaxSizeMB == 0 {
		cfg.Server.LogMaxSizeMB = DefaultLogMaxSizeMB
	}
	if cfg.Server.LogMaxBackups == 0 {
		cfg.Server.LogMaxBackups = DefaultLogMaxBackups
	}
	if cfg.Recording.OutputDir == "" {
		cfg.Recording.OutputDir = "."
	}
	if cfg.Recording.FilePrefix == "" {
		cfg.Recording.FilePrefix = DefaultFilePrefix
	}
	if cfg.Recording.LevelInterval == 0 {
		cfg.Recording.LevelInterval = DefaultLevelInterval
	}
	if cfg.Sources.System.Mode == "" {
		cfg.Sources.System.Mode = ModeLoopback
	}
}
