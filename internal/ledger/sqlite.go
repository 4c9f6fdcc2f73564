package ledger

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ManuGH/camsync/internal/persistence/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS ledger_entries (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	stage       TEXT    NOT NULL,
	session_id  TEXT    NOT NULL,
	outcome     TEXT    NOT NULL CHECK (outcome IN ('completed', 'failed')),
	offset_ms   INTEGER,
	recorded_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ledger_stage_outcome ON ledger_entries (stage, outcome, session_id);
`

// SQLite keeps both ledgers of every stage in one embedded database. Rows are only
// ever inserted.
type SQLite struct {
	db    *sql.DB
	stage Stage
}

var _ Ledger = (*SQLite)(nil)

// OpenSQLite opens (creating if needed) the store at path.
func OpenSQLite(path string, stage Stage) (*SQLite, error) {
	db, err := sqlite.Open(path, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ledger schema: %w", err)
	}
	return &SQLite{db: db, stage: stage}, nil
}

func (l *SQLite) HasCompleted(id string) (bool, error) {
	var n int
	err := l.db.QueryRow(
		`SELECT COUNT(1) FROM ledger_entries WHERE stage = ? AND outcome = 'completed' AND session_id = ?`,
		string(l.stage), id,
	).Scan(&n)
	return n > 0, err
}

func (l *SQLite) MarkCompleted(e Entry) error {
	var offset sql.NullInt64
	if e.Offset != nil {
		offset = sql.NullInt64{Int64: *e.Offset, Valid: true}
	}
	return l.insert(e.ID, "completed", offset)
}

func (l *SQLite) MarkFailed(id string) error {
	return l.insert(id, "failed", sql.NullInt64{})
}

func (l *SQLite) insert(id, outcome string, offset sql.NullInt64) error {
	_, err := l.db.Exec(
		`INSERT INTO ledger_entries (stage, session_id, outcome, offset_ms, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		string(l.stage), id, outcome, offset, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("ledger insert %s %s: %w", outcome, id, err)
	}
	return nil
}

func (l *SQLite) Completed() ([]Entry, error) {
	rows, err := l.db.Query(
		`SELECT session_id, offset_ms FROM ledger_entries WHERE stage = ? AND outcome = 'completed' ORDER BY seq`,
		string(l.stage),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e      Entry
			offset sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &offset); err != nil {
			return nil, err
		}
		if offset.Valid {
			v := offset.Int64
			e.Offset = &v
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (l *SQLite) Failed() ([]string, error) {
	rows, err := l.db.Query(
		`SELECT session_id FROM ledger_entries WHERE stage = ? AND outcome = 'failed' ORDER BY seq`,
		string(l.stage),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (l *SQLite) Close() error { return l.db.Close() }
