// Package journal persists hook calls to a SQLite database so runs can be
// inspected after the fact with `cueline history`.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/warpdl/cueline/internal/session"
	"github.com/warpdl/cueline/pkg/logger"
	_ "modernc.org/sqlite"
)

// ErrClosed is returned when recording into a closed journal.
var ErrClosed = errors.New("journal is closed")

const schema = `
CREATE TABLE IF NOT EXISTS hooks (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    run           TEXT    NOT NULL,
    seq           INTEGER NOT NULL,
    source        TEXT    NOT NULL,
    kind          TEXT    NOT NULL,
    at_time       REAL    NOT NULL,
    start_offset  REAL    NOT NULL,
    play_duration REAL    NOT NULL,
    context_time  REAL    NOT NULL,
    position      REAL    NOT NULL,
    recorded      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS hooks_run ON hooks (run, seq);
`

// Entry is a stored hook call.
type Entry struct {
	ID       int64
	Run      string
	Recorded time.Time
	session.Hook
}

// Run summarizes one recorded run.
type Run struct {
	Name  string
	Hooks int
	First time.Time
	Last  time.Time
}

// Journal writes the hooks of one run.
type Journal struct {
	db  *sql.DB
	run string
	log logger.Logger
	// now is swapped in tests.
	now func() time.Time
}

// NewRunName returns a run name derived from t.
func NewRunName(t time.Time) string {
	return t.UTC().Format("20060102T150405.000Z")
}

// Open opens or creates the journal at path and records into run. An empty
// run name is derived from the current time.
func Open(path, run string, log logger.Logger) (*Journal, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error: cannot open journal: %w", err)
	}
	// one connection keeps in-memory databases and write order consistent
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("error: cannot create journal schema: %w", err)
	}
	if run == "" {
		run = NewRunName(time.Now())
	}
	return &Journal{db: db, run: run, log: log, now: time.Now}, nil
}

// RunName returns the name hooks are recorded under.
func (j *Journal) RunName() string { return j.run }

// Record stores h.
func (j *Journal) Record(h session.Hook) error {
	if j.db == nil {
		return ErrClosed
	}
	_, err := j.db.Exec(`
        INSERT INTO hooks (run, seq, source, kind, at_time, start_offset, play_duration, context_time, position, recorded)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `, j.run, h.Seq, h.Source, h.Kind, h.Time, h.Offset, h.Duration, h.Context, h.Position, j.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("error: failed to record hook: %w", err)
	}
	return nil
}

// Observe records h and logs failures. It lets a Journal observe a session.
func (j *Journal) Observe(h session.Hook) {
	if err := j.Record(h); err != nil {
		j.log.Error("journal: %s", err.Error())
	}
}

// Entries returns the hooks of run in order. An empty run returns every
// stored hook.
func (j *Journal) Entries(ctx context.Context, run string) ([]Entry, error) {
	if j.db == nil {
		return nil, ErrClosed
	}
	query := `
        SELECT id, run, seq, source, kind, at_time, start_offset, play_duration, context_time, position, recorded
        FROM hooks`
	var args []any
	if run != "" {
		query += ` WHERE run = ?`
		args = append(args, run)
	}
	query += ` ORDER BY id ASC`

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error: failed to query journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e        Entry
			recorded int64
		)
		if err := rows.Scan(&e.ID, &e.Run, &e.Seq, &e.Source, &e.Kind, &e.Time, &e.Offset,
			&e.Duration, &e.Context, &e.Position, &recorded); err != nil {
			return nil, fmt.Errorf("error: failed to scan journal row: %w", err)
		}
		e.Recorded = time.UnixMilli(recorded)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error: failed to iterate journal rows: %w", err)
	}
	return entries, nil
}

// Runs lists the recorded runs, oldest first.
func (j *Journal) Runs(ctx context.Context) ([]Run, error) {
	if j.db == nil {
		return nil, ErrClosed
	}
	rows, err := j.db.QueryContext(ctx, `
        SELECT run, COUNT(*), MIN(recorded), MAX(recorded)
        FROM hooks
        GROUP BY run
        ORDER BY MIN(id) ASC
    `)
	if err != nil {
		return nil, fmt.Errorf("error: failed to query journal runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r           Run
			first, last int64
		)
		if err := rows.Scan(&r.Name, &r.Hooks, &first, &last); err != nil {
			return nil, fmt.Errorf("error: failed to scan journal run: %w", err)
		}
		r.First = time.UnixMilli(first)
		r.Last = time.UnixMilli(last)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error: failed to iterate journal runs: %w", err)
	}
	return runs, nil
}

// Close closes the database. Closing twice is a no-op.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	err := j.db.Close()
	j.db = nil
	return err
}

var _ session.Observer = (*Journal)(nil)
