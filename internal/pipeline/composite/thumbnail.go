package composite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ManuGH/camsync/internal/domain/session"
	"github.com/ManuGH/camsync/internal/fsutil"
)

// ErrNoStillface is returned when the stillface grid has not been rendered yet.
var ErrNoStillface = errors.New("stillface grid not found")

// ThumbnailDir is the database-level folder collecting one image per session.
func ThumbnailDir(dbDir string) string {
	return filepath.Join(dbDir, "Thumbnails")
}

// Thumbnail grabs the middle frame of the stillface grid into the session folder and
// the database-wide Thumbnails folder.
func (c *Compositor) Thumbnail(ctx context.Context, dbDir string, s *session.Session) error {
	layout := session.Layout{Dir: s.Dir}
	src := layout.QuadGrid(session.PhaseStillface)
	if !fsutil.Exists(src) {
		return fmt.Errorf("session %s: %w", s.ID, ErrNoStillface)
	}

	local := layout.Thumbnail()
	if !fsutil.Exists(local) {
		duration, err := c.engine.ProbeDuration(ctx, src)
		if err != nil {
			return err
		}
		at := time.Duration(duration / 2 * float64(time.Second))
		if err := c.engine.Snapshot(ctx, src, local, at); err != nil {
			return fmt.Errorf("thumbnail %s: %w", s.ID, err)
		}
	}

	overview := filepath.Join(ThumbnailDir(dbDir), s.ID+".png")
	if err := fsutil.CopyFile(local, overview); err != nil {
		return fmt.Errorf("thumbnail overview %s: %w", s.ID, err)
	}
	c.logger.Info().
		Str("event", "composite.thumbnail_saved").
		Str("session_id", s.ID).
		Str("path", overview).
		Msg("thumbnail saved")
	return nil
}
