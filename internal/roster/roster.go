// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package roster reads the session metadata table into typed rows. Column access by
// header name happens only here; the pipeline sees Row values.
package roster

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ManuGH/camsync/internal/domain/session"
)

// ErrMetadata marks a roster that cannot be read or is structurally malformed.
var ErrMetadata = errors.New("roster metadata error")

// Header names, compared case-insensitively after trimming.
const (
	ColID           = "ID"
	ColEligible     = "Auto"
	ColManualOffset = "offset_mother-baby_(ms)"
	ColSessionDate  = "Session_date_(YYYY-HH-DD)"
	ColSessionHour  = "Session_hour_(HH:MM)"
)

// sensorColumns are physiological recordings tracked only for the missing report.
var sensorColumns = []string{"polar_mother", "polar_baby"}

// Row is one validated roster entry.
type Row struct {
	ID       string
	Eligible bool
	// ManualOffsetMS is set when an operator already recorded the pair offset by hand.
	ManualOffsetMS *int64
	// PhaseSpans holds the raw "start-end" text per phase name; absent phases are missing.
	PhaseSpans map[string]string
	// Missing lists cameras the operator marked as not recorded ("n").
	Missing        []session.Role
	MissingSensors []string
	Date           string
	Hour           string
}

// HasPhases reports whether all four phases were annotated.
func (r Row) HasPhases() bool {
	for _, name := range session.PhaseNames {
		if strings.TrimSpace(r.PhaseSpans[name]) == "" {
			return false
		}
	}
	return true
}

// Phases parses the annotated spans in canonical order.
func (r Row) Phases() ([]session.Phase, error) {
	out := make([]session.Phase, 0, len(session.PhaseNames))
	for _, name := range session.PhaseNames {
		span, ok := r.PhaseSpans[name]
		if !ok || strings.TrimSpace(span) == "" {
			return nil, fmt.Errorf("session %s: phase %s not annotated", r.ID, name)
		}
		p, err := session.ParsePhase(name, span)
		if err != nil {
			return nil, fmt.Errorf("session %s: %w", r.ID, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// Read loads path, selecting the format by extension (.xlsx, .xlsm or .csv).
func Read(path string) ([]Row, error) {
	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		records, err = readXLSX(path)
	case ".csv":
		records, err = readCSV(path)
	default:
		return nil, fmt.Errorf("%w: unsupported roster format %q", ErrMetadata, filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMetadata, path, err)
	}
	rows, err := parse(records)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMetadata, path, err)
	}
	return rows, nil
}

type header map[string]int

func newHeader(cells []string) header {
	h := make(header, len(cells))
	for i, c := range cells {
		key := strings.ToLower(strings.TrimSpace(c))
		if _, dup := h[key]; !dup && key != "" {
			h[key] = i
		}
	}
	return h
}

func (h header) has(col string) bool {
	_, ok := h[strings.ToLower(col)]
	return ok
}

func (h header) get(rec []string, col string) string {
	i, ok := h[strings.ToLower(col)]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func parse(records [][]string) ([]Row, error) {
	if len(records) == 0 {
		return nil, errors.New("empty roster")
	}
	h := newHeader(records[0])
	if !h.has(ColID) {
		return nil, fmt.Errorf("missing %q column", ColID)
	}

	seen := make(map[string]int)
	rows := make([]Row, 0, len(records)-1)
	for n, rec := range records[1:] {
		line := n + 2
		id := normalizeID(h.get(rec, ColID))
		if id == "" {
			continue
		}
		if prev, dup := seen[id]; dup {
			return nil, fmt.Errorf("row %d: duplicate session id %s (first on row %d)", line, id, prev)
		}
		seen[id] = line

		row := Row{
			ID:         id,
			Eligible:   !isNo(h.get(rec, ColEligible)),
			PhaseSpans: make(map[string]string, len(session.PhaseNames)),
			Date:       h.get(rec, ColSessionDate),
			Hour:       h.get(rec, ColSessionHour),
		}
		offset, err := parseOffset(h.get(rec, ColManualOffset))
		if err != nil {
			return nil, fmt.Errorf("row %d: %s: %w", line, ColManualOffset, err)
		}
		row.ManualOffsetMS = offset

		for _, name := range session.PhaseNames {
			if span := phaseSpan(h, rec, name); span != "" {
				row.PhaseSpans[name] = span
			}
		}
		for _, role := range session.Roles {
			if isNo(h.get(rec, string(role))) {
				row.Missing = append(row.Missing, role)
			}
		}
		for _, col := range sensorColumns {
			if isNo(h.get(rec, col)) {
				row.MissingSensors = append(row.MissingSensors, col)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// phaseSpan accepts either a single "<phase>" column holding "start-end" or a
// "<phase>_start" / "<phase>_end" pair.
func phaseSpan(h header, rec []string, name string) string {
	if v := h.get(rec, name); v != "" {
		return v
	}
	start, end := h.get(rec, name+"_start"), h.get(rec, name+"_end")
	if start == "" && end == "" {
		return ""
	}
	return start + "-" + end
}

func isNo(v string) bool {
	return strings.EqualFold(strings.TrimSpace(v), "n")
}

// normalizeID strips the ".0" spreadsheets add to numeric ids.
func normalizeID(v string) string {
	if f, err := strconv.ParseFloat(v, 64); err == nil && f == math.Trunc(f) && !strings.ContainsAny(v, "eE") {
		return strconv.FormatInt(int64(f), 10)
	}
	return v
}

func parseOffset(v string) (*int64, error) {
	if v == "" || strings.EqualFold(v, "nan") {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("not a number: %q", v)
	}
	ms := int64(math.Round(f))
	return &ms, nil
}
