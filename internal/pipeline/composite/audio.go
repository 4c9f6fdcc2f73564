package composite

import "github.com/ManuGH/camsync/internal/domain/session"

// AudioPriority is the order in which real channels are tried as the grid's audio.
var AudioPriority = []session.Role{
	session.RoleSecondary,
	session.RolePrimary,
	session.RoleWideA,
	session.RoleWideB,
}

// GridOrder places channels top-left, top-right, bottom-left, bottom-right.
var GridOrder = []session.Role{
	session.RolePrimary,
	session.RoleWideA,
	session.RoleSecondary,
	session.RoleWideB,
}

// ChooseAudio returns the first role in priority that is present in available.
func ChooseAudio(available map[session.Role]bool, priority []session.Role) (session.Role, bool) {
	for _, r := range priority {
		if available[r] {
			return r, true
		}
	}
	return "", false
}
