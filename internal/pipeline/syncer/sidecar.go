package syncer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ManuGH/camsync/internal/domain/session"
	"github.com/ManuGH/camsync/internal/fsutil"
)

// sidecarVersion is bumped when the alignment.json layout changes incompatibly.
const sidecarVersion = 1

type sidecar struct {
	Version    int                 `json:"version"`
	SessionID  string              `json:"session_id"`
	Alignments []session.Alignment `json:"alignments"`
}

// LoadAlignments reads synced/alignment.json. A missing file yields no alignments.
func LoadAlignments(layout session.Layout) ([]session.Alignment, error) {
	data, err := os.ReadFile(layout.AlignmentSidecar())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var sc sidecar
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", layout.AlignmentSidecar(), err)
	}
	if sc.Version != sidecarVersion {
		return nil, fmt.Errorf("unsupported alignment sidecar version %d", sc.Version)
	}
	return sc.Alignments, nil
}

func saveAlignments(layout session.Layout, id string, alignments []session.Alignment) error {
	data, err := json.MarshalIndent(sidecar{
		Version:    sidecarVersion,
		SessionID:  id,
		Alignments: alignments,
	}, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if existing, err := os.ReadFile(layout.AlignmentSidecar()); err == nil && bytes.Equal(existing, data) {
		return nil
	}
	return fsutil.WriteFile(layout.AlignmentSidecar(), data)
}

func lookup(alignments []session.Alignment, target session.Role) (session.Alignment, bool) {
	for _, a := range alignments {
		if a.Target == target {
			return a, true
		}
	}
	return session.Alignment{}, false
}

// upsert replaces the alignment for a.Target, or appends it.
func upsert(alignments []session.Alignment, a session.Alignment) []session.Alignment {
	for i := range alignments {
		if alignments[i].Target == a.Target {
			out := append([]session.Alignment(nil), alignments...)
			out[i] = a
			return out
		}
	}
	return append(append([]session.Alignment(nil), alignments...), a)
}
