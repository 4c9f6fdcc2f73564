// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package media declares the narrow capabilities the pipeline needs from a media engine
// (probe, transcode, trim, composite, snapshot) and from the alignment collaborator.
// Implementations live under internal/infra; the pipeline only sees these interfaces so
// the subprocess engine can be swapped for a library binding without touching
// orchestration code.
package media
