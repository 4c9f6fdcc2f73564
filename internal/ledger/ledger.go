// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package ledger records which sessions completed or failed a batch stage so a rerun
// can resume where the previous one stopped. Entries are append-only.
package ledger

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Stage selects which pair of ledgers is used.
type Stage string

const (
	StageSync Stage = "sync"
	StageCut  Stage = "cut"
)

// Backend names.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Entry is one completed session. Offset is only meaningful for the sync stage and is
// nil when no pair alignment was computed.
type Entry struct {
	ID     string
	Offset *int64
}

// Ledger is the persistence contract used by the batch driver.
type Ledger interface {
	HasCompleted(id string) (bool, error)
	MarkCompleted(e Entry) error
	MarkFailed(id string) error
	Completed() ([]Entry, error)
	Failed() ([]string, error)
	Close() error
}

// Files returns the completed and failed ledger paths for a stage under dbDir.
func Files(dbDir string, stage Stage) (completed, failed string) {
	switch stage {
	case StageCut:
		return filepath.Join(dbDir, "cut_sessions.txt"), filepath.Join(dbDir, "failed_cut_sessions.txt")
	default:
		return filepath.Join(dbDir, "synced_sessions.txt"), filepath.Join(dbDir, "failed_sessions.txt")
	}
}

// SQLitePath is the store used by the sqlite backend.
func SQLitePath(dbDir string) string {
	return filepath.Join(dbDir, "ledger.sqlite")
}

// Open returns the ledger for stage using the named backend ("" selects file).
func Open(backend, dbDir string, stage Stage) (Ledger, error) {
	switch strings.ToLower(backend) {
	case "", BackendFile:
		completed, failed := Files(dbDir, stage)
		return NewFile(completed, failed, stage == StageSync), nil
	case BackendSQLite:
		return OpenSQLite(SQLitePath(dbDir), stage)
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", backend)
	}
}
