// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package report summarises roster coverage and ledger progress.
package report

import (
	"fmt"
	"io"

	"github.com/ManuGH/camsync/internal/ledger"
	"github.com/ManuGH/camsync/internal/roster"
)

// StageProgress counts ledger outcomes against the eligible roster rows.
type StageProgress struct {
	Completed int
	Failed    int
	Pending   int
	// FailedIDs lists sessions whose latest outcome is failed.
	FailedIDs []string
}

// Summary is the full report.
type Summary struct {
	Rows     int
	Eligible int
	Manual   int // rows with a hand-recorded offset
	Sync     StageProgress
	Cut      StageProgress
	Offsets  OffsetStats
	Missing  []MissingEntry
}

// Build reads both ledgers and correlates them with rows.
func Build(rows []roster.Row, syncLedger, cutLedger ledger.Ledger) (*Summary, error) {
	s := &Summary{Rows: len(rows), Missing: MissingEntries(rows)}

	syncDone, err := syncLedger.Completed()
	if err != nil {
		return nil, fmt.Errorf("read sync ledger: %w", err)
	}
	syncFailed, err := syncLedger.Failed()
	if err != nil {
		return nil, fmt.Errorf("read sync ledger: %w", err)
	}
	cutDone, err := cutLedger.Completed()
	if err != nil {
		return nil, fmt.Errorf("read cut ledger: %w", err)
	}
	cutFailed, err := cutLedger.Failed()
	if err != nil {
		return nil, fmt.Errorf("read cut ledger: %w", err)
	}
	s.Offsets = ComputeOffsetStats(syncDone)

	syncSet := idSet(syncDone)
	cutSet := idSet(cutDone)
	syncFailedSet := stringSet(syncFailed)
	cutFailedSet := stringSet(cutFailed)

	for _, r := range rows {
		if !r.Eligible {
			continue
		}
		s.Eligible++
		if r.ManualOffsetMS != nil {
			s.Manual++
		}
		tally(&s.Sync, r.ID, syncSet, syncFailedSet, r.ManualOffsetMS != nil)
		tally(&s.Cut, r.ID, cutSet, cutFailedSet, false)
	}
	return s, nil
}

func tally(p *StageProgress, id string, done, failed map[string]bool, exempt bool) {
	switch {
	case done[id]:
		p.Completed++
	case failed[id]:
		p.Failed++
		p.FailedIDs = append(p.FailedIDs, id)
	case !exempt:
		p.Pending++
	}
}

func idSet(entries []ledger.Entry) map[string]bool {
	out := make(map[string]bool, len(entries))
	for _, e := range entries {
		out[e.ID] = true
	}
	return out
}

func stringSet(ids []string) map[string]bool {
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

// WriteText prints a human-readable summary.
func (s *Summary) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w,
		"rows: %d (eligible %d, manual offset %d)\n"+
			"sync: completed %d, failed %d, pending %d\n"+
			"cut:  completed %d, failed %d, pending %d\n"+
			"offsets: n=%d (without offset %d) mean=%.1fms sd=%.1fms median=%.1fms range=[%.0f, %.0f]ms\n"+
			"missing recordings: %d\n",
		s.Rows, s.Eligible, s.Manual,
		s.Sync.Completed, s.Sync.Failed, s.Sync.Pending,
		s.Cut.Completed, s.Cut.Failed, s.Cut.Pending,
		s.Offsets.Count, s.Offsets.Missing, s.Offsets.MeanMS, s.Offsets.StdMS, s.Offsets.MedianMS, s.Offsets.MinMS, s.Offsets.MaxMS,
		len(s.Missing),
	)
	return err
}
