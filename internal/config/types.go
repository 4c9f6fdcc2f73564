// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package config loads camsync settings with precedence flags > environment
// (CAMSYNC_*) > YAML file > defaults.
package config

import "time"

// Config is the fully resolved configuration.
type Config struct {
	DBDir       string `yaml:"db_dir"`
	Roster      string `yaml:"roster"`
	LogLevel    string `yaml:"log_level"`
	Concurrency int    `yaml:"concurrency"`

	Ledger    LedgerConfig    `yaml:"ledger"`
	FFmpeg    FFmpegConfig    `yaml:"ffmpeg"`
	Media     MediaConfig     `yaml:"media"`
	Align     AlignConfig     `yaml:"align"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Watch     WatchConfig     `yaml:"watch"`

	Version string `yaml:"-"`
}

type LedgerConfig struct {
	// Backend is "file" (plain text ledgers next to Sessions/) or "sqlite".
	Backend string `yaml:"backend"`
}

type FFmpegConfig struct {
	Bin        string `yaml:"bin"`
	FFprobeBin string `yaml:"ffprobe_bin"`
}

// MediaConfig sets the common frame rate and composite canvas.
type MediaConfig struct {
	TargetFPS float64 `yaml:"target_fps"`
	Width     int     `yaml:"width"`
	Height    int     `yaml:"height"`
}

// AlignConfig tunes the audio cross-correlation.
type AlignConfig struct {
	SampleRate     int           `yaml:"sample_rate"`
	AnalyzeSeconds float64       `yaml:"analyze_seconds"`
	MaxLag         time.Duration `yaml:"max_lag"`
}

type MetricsConfig struct {
	// Textfile is written in Prometheus text format when a batch finishes; empty disables.
	Textfile string `yaml:"textfile"`
}

type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// Overrides carries values set explicitly on the command line; nil fields are unset.
type Overrides struct {
	DBDir       *string
	Roster      *string
	LogLevel    *string
	Concurrency *int
	Ledger      *string
	FFmpegBin   *string
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		LogLevel:    "info",
		Concurrency: 1,
		Ledger:      LedgerConfig{Backend: "file"},
		FFmpeg:      FFmpegConfig{Bin: "ffmpeg"},
		Media:       MediaConfig{TargetFPS: 60, Width: 1920, Height: 1080},
		Align:       AlignConfig{SampleRate: 8000, AnalyzeSeconds: 300, MaxLag: 60 * time.Second},
		Telemetry:   TelemetryConfig{Exporter: "grpc", Endpoint: "localhost:4317", SamplingRate: 1.0},
		Watch:       WatchConfig{Debounce: 2 * time.Second},
	}
}
