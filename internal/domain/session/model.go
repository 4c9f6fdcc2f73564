// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package session holds the data model shared by every pipeline stage: camera roles,
// the per-session directory layout, phases and alignment results.
package session

import (
	"fmt"
	"path/filepath"
)

// Role binds a camera channel to its fixed position in the observation setup.
type Role string

const (
	RolePrimary   Role = "mother" // primary subject
	RoleSecondary Role = "baby"   // secondary subject
	RoleWideA     Role = "window" // wide angle, first auxiliary camera
	RoleWideB     Role = "door"   // wide angle, second auxiliary camera
)

// Roles lists every channel role in discovery order.
var Roles = []Role{RolePrimary, RoleSecondary, RoleWideA, RoleWideB}

// IsWideAngle reports whether the role is one of the auxiliary tape-capture cameras.
func (r Role) IsWideAngle() bool {
	return r == RoleWideA || r == RoleWideB
}

func (r Role) String() string { return string(r) }

// Status is the processing state of a session within one invocation.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Channel tracks one camera through the pipeline. Paths are populated progressively;
// an empty path means the stage has not produced (or cannot produce) that artifact.
type Channel struct {
	Role       Role
	Raw        string
	Normalized string
	Synced     string
}

// Input returns the best available pre-sync path for the channel.
func (c Channel) Input() string {
	if c.Normalized != "" {
		return c.Normalized
	}
	return c.Raw
}

// Session is one recorded observation episode rooted at Sessions/<id>.
type Session struct {
	ID       string
	Dir      string
	Channels map[Role]*Channel
	Status   Status
}

// New returns a pending session with no discovered channels.
func New(id, dir string) *Session {
	return &Session{
		ID:       id,
		Dir:      dir,
		Channels: make(map[Role]*Channel),
		Status:   StatusPending,
	}
}

// Available lists the discovered roles in canonical order.
func (s *Session) Available() []Role {
	out := make([]Role, 0, len(s.Channels))
	for _, r := range Roles {
		if _, ok := s.Channels[r]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Has reports whether the role was discovered for this session.
func (s *Session) Has(r Role) bool {
	_, ok := s.Channels[r]
	return ok
}

// SyncedPaths returns role -> synced path for channels that reached the synced stage.
func (s *Session) SyncedPaths() map[Role]string {
	out := make(map[Role]string, len(s.Channels))
	for r, ch := range s.Channels {
		if ch.Synced != "" {
			out[r] = ch.Synced
		}
	}
	return out
}

// Layout resolves the on-disk locations of one session's artifacts.
type Layout struct {
	Dir string
}

func (l Layout) OriginalDir() string  { return filepath.Join(l.Dir, "original") }
func (l Layout) SyncedDir() string    { return filepath.Join(l.Dir, "synced") }
func (l Layout) ProcessedDir() string { return filepath.Join(l.Dir, "processed") }
func (l Layout) VisualizeDir() string { return filepath.Join(l.Dir, "visualize") }

// Normalized is the 60 fps container produced for a wide-angle channel.
func (l Layout) Normalized(r Role) string {
	return filepath.Join(l.OriginalDir(), string(r)+".mp4")
}

// Synced is the aligned output for a channel.
func (l Layout) Synced(r Role) string {
	return filepath.Join(l.SyncedDir(), string(r)+".mp4")
}

// SyncPreview is the stacked preview rendered for an aligned pair.
func (l Layout) SyncPreview(ref, target Role) string {
	return filepath.Join(l.SyncedDir(), fmt.Sprintf("session_%s_%s.mp4", ref, target))
}

// AlignmentSidecar stores the offsets computed while syncing this session.
func (l Layout) AlignmentSidecar() string {
	return filepath.Join(l.SyncedDir(), "alignment.json")
}

// Cut is the per-phase trim of a synced channel.
func (l Layout) Cut(r Role, phase string) string {
	return filepath.Join(l.ProcessedDir(), fmt.Sprintf("%s_%s.mp4", r, phase))
}

// PairStack is the mother-over-baby composite for a phase.
func (l Layout) PairStack(phase string) string {
	return filepath.Join(l.VisualizeDir(), fmt.Sprintf("%s-%s_%s.mp4", RolePrimary, RoleSecondary, phase))
}

// QuadGrid is the 2x2 composite for a phase.
func (l Layout) QuadGrid(phase string) string {
	return filepath.Join(l.VisualizeDir(), fmt.Sprintf("session_%s.mp4", phase))
}

// Thumbnail is the still frame stored next to the session.
func (l Layout) Thumbnail() string {
	return filepath.Join(l.Dir, "thumbnail.png")
}

// Alignment records the outcome of syncing one channel against a reference.
// OffsetMS is nil when no alignment was computed (pass-through copy).
type Alignment struct {
	Reference Role   `json:"reference"`
	Target    Role   `json:"target"`
	OffsetMS  *int64 `json:"offset_ms"`
}
