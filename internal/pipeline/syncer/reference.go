package syncer

import "github.com/ManuGH/camsync/internal/domain/session"

// AuxReferencePriority is the order in which already-synced channels are tried as the
// reference for a wide-angle camera.
var AuxReferencePriority = []session.Role{
	session.RoleSecondary,
	session.RolePrimary,
	session.RoleWideA,
}

// ChooseReference returns the first role in priority that is present in available.
func ChooseReference(available map[session.Role]bool, priority []session.Role) (session.Role, bool) {
	for _, r := range priority {
		if available[r] {
			return r, true
		}
	}
	return "", false
}
