// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package ledger

import (
	"bufio"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/gofrs/flock"

	"github.com/ManuGH/camsync/internal/log"
)

// File is the plain-text ledger: one session per line, "id" or "id,offsetMs".
// Appends are serialized by a process mutex plus an exclusive lock file so concurrent
// workers and concurrent invocations never interleave lines.
type File struct {
	completed  string
	failed     string
	withOffset bool

	mu   sync.Mutex
	lock *flock.Flock
}

var _ Ledger = (*File)(nil)

// NewFile creates a ledger over the two paths. withOffset selects the "id,offset"
// format for completed entries.
func NewFile(completed, failed string, withOffset bool) *File {
	return &File{
		completed:  completed,
		failed:     failed,
		withOffset: withOffset,
		lock:       flock.New(completed + ".lock"),
	}
}

// HasCompleted reports whether id has a completed line. Ids match exactly.
func (f *File) HasCompleted(id string) (bool, error) {
	entries, err := f.Completed()
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.ID == id {
			return true, nil
		}
	}
	return false, nil
}

func (f *File) MarkCompleted(e Entry) error {
	line := e.ID
	if f.withOffset {
		line += ","
		if e.Offset != nil {
			line += strconv.FormatInt(*e.Offset, 10)
		}
	}
	return f.append(f.completed, line)
}

func (f *File) MarkFailed(id string) error {
	return f.append(f.failed, id)
}

func (f *File) Completed() ([]Entry, error) {
	lines, err := f.read(f.completed)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(lines))
	for _, line := range lines {
		id, rest, hasOffset := strings.Cut(line, ",")
		e := Entry{ID: strings.TrimSpace(id)}
		if rest = strings.TrimSpace(rest); hasOffset && rest != "" {
			e.Offset = f.parseOffset(e.ID, rest)
		}
		out = append(out, e)
	}
	return out, nil
}

// parseOffset accepts integer or float milliseconds. Anything else ("None", "nan")
// keeps the session completed without an offset.
func (f *File) parseOffset(id, text string) *int64 {
	if v, err := strconv.ParseInt(text, 10, 64); err == nil {
		return &v
	}
	if v, err := strconv.ParseFloat(text, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
		ms := int64(math.Round(v))
		return &ms
	}
	logger := log.WithComponent("ledger")
	logger.Warn().
		Str("event", "ledger.offset_unparsed").
		Str("path", f.completed).
		Str("session_id", id).
		Str("offset", text).
		Msg("ledger offset is not a number, treating as unknown")
	return nil
}

func (f *File) Failed() ([]string, error) {
	return f.read(f.failed)
}

func (f *File) Close() error { return nil }

func (f *File) append(path, line string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.lock.Lock(); err != nil {
		return fmt.Errorf("lock ledger: %w", err)
	}
	defer func() { _ = f.lock.Unlock() }()

	fh, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	// one write per line keeps each append atomic with respect to other writers.
	if _, err := fh.WriteString(line + "\n"); err != nil {
		_ = fh.Close()
		return err
	}
	if err := fh.Sync(); err != nil {
		_ = fh.Close()
		return err
	}
	return fh.Close()
}

func (f *File) read(path string) ([]string, error) {
	fh, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	var out []string
	sc := bufio.NewScanner(fh)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			out = append(out, line)
		}
	}
	return out, sc.Err()
}
