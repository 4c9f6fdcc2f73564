// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"github.com/ManuGH/camsync/internal/validate"
)

// Validate checks the resolved configuration. DBDir and Roster are checked for
// existence only when set; commands that need them enforce presence themselves.
func Validate(cfg Config) error {
	v := validate.New()

	if cfg.DBDir != "" {
		v.Directory("DBDir", cfg.DBDir)
	}
	v.File("Roster", cfg.Roster)
	v.OneOf("LogLevel", cfg.LogLevel, []string{"trace", "debug", "info", "warn", "error"})
	v.Range("Concurrency", cfg.Concurrency, 1, 64)
	v.OneOf("Ledger.Backend", cfg.Ledger.Backend, []string{"file", "sqlite"})
	v.NotEmpty("FFmpeg.Bin", cfg.FFmpeg.Bin)

	v.PositiveFloat("Media.TargetFPS", cfg.Media.TargetFPS)
	v.Positive("Media.Width", cfg.Media.Width)
	v.Positive("Media.Height", cfg.Media.Height)

	v.Positive("Align.SampleRate", cfg.Align.SampleRate)
	v.PositiveFloat("Align.AnalyzeSeconds", cfg.Align.AnalyzeSeconds)
	if cfg.Align.MaxLag <= 0 {
		v.AddError("Align.MaxLag", "must be positive", cfg.Align.MaxLag)
	}

	if cfg.Telemetry.Enabled {
		v.OneOf("Telemetry.Exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.NotEmpty("Telemetry.Endpoint", cfg.Telemetry.Endpoint)
		if cfg.Telemetry.SamplingRate < 0 || cfg.Telemetry.SamplingRate > 1 {
			v.AddError("Telemetry.SamplingRate", "must be between 0 and 1", cfg.Telemetry.SamplingRate)
		}
	}
	if cfg.Watch.Debounce < 0 {
		v.AddError("Watch.Debounce", "cannot be negative", cfg.Watch.Debounce)
	}
	return v.Err()
}
