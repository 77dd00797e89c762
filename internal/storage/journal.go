package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/vovakirdan/screenstate/internal/screen"
)

// Source tells how an interval reached the totals.
type Source string

const (
	SourceTransition Source = "transition" // Completed state transition
	SourceProactive  Source = "proactive"  // Saved ahead of a suspension signal
)

const datetimeLayout = "2006-01-02 15:04:05"

// JournalEntry is one accumulated interval.
type JournalEntry struct {
	ID      int64
	State   screen.DeviceState
	Seconds float64
	Source  Source
	EndedAt time.Time
}

// StateSummary aggregates journal entries for a single state.
type StateSummary struct {
	State    screen.DeviceState
	Count    int
	Seconds  float64
	LastSeen time.Time
}

// Journal manages the SQLite database of accumulated intervals.
type Journal struct {
	db *sql.DB
}

// OpenJournal creates or opens a journal database at the given path.
// It creates the parent directories if needed and runs migrations.
func OpenJournal(dbPath string) (*Journal, error) {
	dbPath, err := ExpandHome(dbPath)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}

	return j, nil
}

// migrate creates the database schema if it doesn't exist.
func (j *Journal) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS intervals (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			state TEXT NOT NULL,
			seconds REAL NOT NULL,
			source TEXT NOT NULL,
			ended_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_intervals_state ON intervals(state);
		CREATE INDEX IF NOT EXISTS idx_intervals_ended_at ON intervals(ended_at);
	`

	_, err := j.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// Record appends an interval. Returns the ID of the inserted row.
func (j *Journal) Record(e JournalEntry) (int64, error) {
	if e.EndedAt.IsZero() {
		e.EndedAt = time.Now()
	}
	if e.Source == "" {
		e.Source = SourceTransition
	}

	result, err := j.db.Exec(
		"INSERT INTO intervals (state, seconds, source, ended_at) VALUES (?, ?, ?, ?)",
		e.State.String(), e.Seconds, string(e.Source), e.EndedAt.UTC().Format(datetimeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot record interval: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: cannot get inserted ID: %w", err)
	}
	return id, nil
}

// Recent returns the most recent intervals, newest first.
func (j *Journal) Recent(limit int) ([]JournalEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := j.db.Query(
		`SELECT id, state, seconds, source, ended_at
		 FROM intervals
		 ORDER BY id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query intervals: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// RecentByState returns the most recent intervals for a single state.
func (j *Journal) RecentByState(state screen.DeviceState, limit int) ([]JournalEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := j.db.Query(
		`SELECT id, state, seconds, source, ended_at
		 FROM intervals
		 WHERE state = ?
		 ORDER BY id DESC
		 LIMIT ?`,
		state.String(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query intervals: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]JournalEntry, error) {
	var entries []JournalEntry
	for rows.Next() {
		var e JournalEntry
		var state, source string
		var endedAt any
		if err := rows.Scan(&e.ID, &state, &e.Seconds, &source, &endedAt); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		e.State, _ = screen.ParseState(state)
		e.Source = Source(source)
		e.EndedAt = parseDatetime(endedAt)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return entries, nil
}

// SummaryByState aggregates all intervals per state.
func (j *Journal) SummaryByState() (map[screen.DeviceState]StateSummary, error) {
	rows, err := j.db.Query(
		`SELECT state, COUNT(*), COALESCE(SUM(seconds), 0), MAX(ended_at)
		 FROM intervals
		 GROUP BY state`,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot summarize intervals: %w", err)
	}
	defer rows.Close()

	summary := make(map[screen.DeviceState]StateSummary)
	for rows.Next() {
		var s StateSummary
		var state string
		var lastSeen any
		if err := rows.Scan(&state, &s.Count, &s.Seconds, &lastSeen); err != nil {
			return nil, fmt.Errorf("storage: cannot scan summary row: %w", err)
		}
		st, ok := screen.ParseState(state)
		if !ok {
			continue
		}
		s.State = st
		s.LastSeen = parseDatetime(lastSeen)
		summary[st] = s
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return summary, nil
}

// Clear deletes every recorded interval.
func (j *Journal) Clear() error {
	if _, err := j.db.Exec("DELETE FROM intervals"); err != nil {
		return fmt.Errorf("storage: cannot clear intervals: %w", err)
	}
	return nil
}

// parseDatetime handles both time.Time and string column values.
func parseDatetime(v any) time.Time {
	switch v := v.(type) {
	case time.Time:
		return v
	case string:
		if parsed, err := time.Parse(datetimeLayout, v); err == nil {
			return parsed
		}
		if parsed, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return parsed
		}
	}
	return time.Time{}
}
