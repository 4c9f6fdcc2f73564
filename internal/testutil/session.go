package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ManuGH/camsync/internal/domain/session"
)

// rawNames mirrors the file names the inventory looks for.
var rawNames = map[session.Role]string{
	session.RolePrimary:   "mother.mp4",
	session.RoleSecondary: "baby.mp4",
	session.RoleWideA:     "window.MTS",
	session.RoleWideB:     "door.MTS",
}

// MakeSession creates Sessions/<id>/original with raw files for roles under db.
func MakeSession(t *testing.T, db, id string, roles ...session.Role) string {
	t.Helper()
	dir := filepath.Join(db, "Sessions", id)
	if err := os.MkdirAll(filepath.Join(dir, "original"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, r := range roles {
		p := filepath.Join(dir, "original", rawNames[r])
		if err := os.WriteFile(p, []byte("raw:"+string(r)), 0o644); err != nil {
			t.Fatalf("write raw: %v", err)
		}
	}
	return dir
}
