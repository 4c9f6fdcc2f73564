// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

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

// EnvPrefix prefixes every environment key.
const EnvPrefix = "CAMSYNC_"

// Loader resolves configuration with precedence flags > ENV > file > defaults.
type Loader struct {
	configPath string
	version    string
	// ConsumedEnvKeys records every key looked up, for diagnostics.
	ConsumedEnvKeys map[string]struct{}
}

func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// Load applies defaults, the YAML file (strict), the environment and then ov, and
// validates the result.
func (l *Loader) Load(ov Overrides) (Config, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}
	l.mergeEnv(&cfg)
	applyOverrides(&cfg, ov)

	cfg.FFmpeg.FFprobeBin = ResolveFFprobeBin(cfg.FFmpeg.FFprobeBin, cfg.FFmpeg.Bin)
	if cfg.FFmpeg.FFprobeBin == "" {
		cfg.FFmpeg.FFprobeBin = "ffprobe"
	}
	if cfg.DBDir != "" {
		if abs, err := filepath.Abs(cfg.DBDir); err == nil {
			cfg.DBDir = abs
		}
	}
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes path over cfg. Unknown keys are rejected.
func (l *Loader) loadFile(path string, cfg *Config) error {
	path = filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("strict config parse error: %w: %w", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

func (l *Loader) key(name string) string {
	k := EnvPrefix + name
	l.ConsumedEnvKeys[k] = struct{}{}
	return k
}

func (l *Loader) mergeEnv(cfg *Config) {
	cfg.DBDir = ParseString(l.key("DB_DIR"), cfg.DBDir)
	cfg.Roster = ParseString(l.key("ROSTER"), cfg.Roster)
	cfg.LogLevel = ParseString(l.key("LOG_LEVEL"), cfg.LogLevel)
	cfg.Concurrency = ParseInt(l.key("CONCURRENCY"), cfg.Concurrency)
	cfg.Ledger.Backend = ParseString(l.key("LEDGER_BACKEND"), cfg.Ledger.Backend)

	cfg.FFmpeg.Bin = ParseString(l.key("FFMPEG_BIN"), cfg.FFmpeg.Bin)
	cfg.FFmpeg.FFprobeBin = ParseString(l.key("FFPROBE_BIN"), cfg.FFmpeg.FFprobeBin)

	cfg.Media.TargetFPS = ParseFloat(l.key("TARGET_FPS"), cfg.Media.TargetFPS)
	cfg.Media.Width = ParseInt(l.key("CANVAS_WIDTH"), cfg.Media.Width)
	cfg.Media.Height = ParseInt(l.key("CANVAS_HEIGHT"), cfg.Media.Height)

	cfg.Align.SampleRate = ParseInt(l.key("ALIGN_SAMPLE_RATE"), cfg.Align.SampleRate)
	cfg.Align.AnalyzeSeconds = ParseFloat(l.key("ALIGN_ANALYZE_SECONDS"), cfg.Align.AnalyzeSeconds)
	cfg.Align.MaxLag = ParseDuration(l.key("ALIGN_MAX_LAG"), cfg.Align.MaxLag)

	cfg.Metrics.Textfile = ParseString(l.key("METRICS_TEXTFILE"), cfg.Metrics.Textfile)

	cfg.Telemetry.Enabled = ParseBool(l.key("TELEMETRY_ENABLED"), cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = ParseString(l.key("TELEMETRY_EXPORTER"), cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = ParseString(l.key("TELEMETRY_ENDPOINT"), cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = ParseFloat(l.key("TELEMETRY_SAMPLING_RATE"), cfg.Telemetry.SamplingRate)

	cfg.Watch.Debounce = ParseDuration(l.key("WATCH_DEBOUNCE"), cfg.Watch.Debounce)
}

func applyOverrides(cfg *Config, ov Overrides) {
	if ov.DBDir != nil {
		cfg.DBDir = *ov.DBDir
	}
	if ov.Roster != nil {
		cfg.Roster = *ov.Roster
	}
	if ov.LogLevel != nil {
		cfg.LogLevel = *ov.LogLevel
	}
	if ov.Concurrency != nil {
		cfg.Concurrency = *ov.Concurrency
	}
	if ov.Ledger != nil {
		cfg.Ledger.Backend = *ov.Ledger
	}
	if ov.FFmpegBin != nil {
		cfg.FFmpeg.Bin = *ov.FFmpegBin
	}
}
