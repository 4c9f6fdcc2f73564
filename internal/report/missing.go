package report

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/ManuGH/camsync/internal/fsutil"
	"github.com/ManuGH/camsync/internal/roster"
)

// MissingFilesReport is the file name written next to the roster.
const MissingFilesReport = "missing_files_report.csv"

// MissingEntry is one recording the operator marked as not captured.
type MissingEntry struct {
	ID      string
	Date    string
	Hour    string
	Missing string // e.g. "camera {window}" or "HRV {polar_baby}"
}

// MissingEntries lists every camera and sensor marked "n" in the roster, in row order.
func MissingEntries(rows []roster.Row) []MissingEntry {
	var out []MissingEntry
	for _, r := range rows {
		for _, role := range r.Missing {
			out = append(out, MissingEntry{ID: r.ID, Date: r.Date, Hour: r.Hour, Missing: fmt.Sprintf("camera {%s}", role)})
		}
		for _, sensor := range r.MissingSensors {
			out = append(out, MissingEntry{ID: r.ID, Date: r.Date, Hour: r.Hour, Missing: fmt.Sprintf("HRV {%s}", sensor)})
		}
	}
	return out
}

// WriteMissingCSV writes entries atomically to path.
func WriteMissingCSV(path string, entries []MissingEntry) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"ID", "session_date", "session_hour", "missing"}); err != nil {
		return err
	}
	for _, e := range entries {
		if err := w.Write([]string{e.ID, e.Date, e.Hour, e.Missing}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return fsutil.WriteFile(path, buf.Bytes())
}
