// Package version carries build metadata injected via -ldflags.
package version

import "fmt"

var (
	// Version is the release tag; overridden at build time.
	Version = "v0.4.0"

	// Commit is the git short hash of the build.
	Commit = "unknown"

	// Date is the build timestamp.
	Date = "unknown"
)

// String renders the one-line version banner.
func String() string {
	return fmt.Sprintf("camsync %s (commit %s, built %s)", Version, Commit, Date)
}
