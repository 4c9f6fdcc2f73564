// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package inventory discovers which camera channels were recorded for a session.
package inventory

import (
	"path/filepath"

	"github.com/ManuGH/camsync/internal/domain/session"
	"github.com/ManuGH/camsync/internal/fsutil"
)

// candidates lists, per role, the raw file names accepted under original/, in order of
// preference. Wide-angle cameras record to AVCHD tape-capture files; an already
// converted container is accepted when the .MTS was archived elsewhere.
var candidates = map[session.Role][]string{
	session.RolePrimary:   {"mother.mp4"},
	session.RoleSecondary: {"baby.mp4"},
	session.RoleWideA:     {"window.MTS", "window.mp4"},
	session.RoleWideB:     {"door.MTS", "door.mp4"},
}

// Inventory maps each role to its raw path; absent roles have no entry.
type Inventory map[session.Role]string

// Roles lists the discovered roles in canonical order.
func (inv Inventory) Roles() []session.Role {
	out := make([]session.Role, 0, len(inv))
	for _, r := range session.Roles {
		if _, ok := inv[r]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Discover checks sessionDir/original for every role. A session without any camera is
// a valid, empty inventory.
func Discover(sessionDir string) Inventory {
	inv := make(Inventory, len(session.Roles))
	originalDir := session.Layout{Dir: sessionDir}.OriginalDir()
	for _, role := range session.Roles {
		for _, name := range candidates[role] {
			p := filepath.Join(originalDir, name)
			if fsutil.Exists(p) {
				inv[role] = p
				break
			}
		}
	}
	return inv
}

// Apply registers the discovered channels on s.
func (inv Inventory) Apply(s *session.Session) {
	for role, raw := range inv {
		s.Channels[role] = &session.Channel{Role: role, Raw: raw}
	}
}
