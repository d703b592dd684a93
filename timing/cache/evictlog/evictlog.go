// Package evictlog records cache evictions into a SQLite database.
package evictlog

import (
	"database/sql"
	"fmt"

	// Registers the sqlite3 driver.
	_ "github.com/mattn/go-sqlite3"

	"github.com/sarchlab/emissary/timing/cache"
)

const schema = `
CREATE TABLE IF NOT EXISTS evictions (
	run_id     TEXT    NOT NULL,
	seq        INTEGER NOT NULL,
	cpu        INTEGER NOT NULL,
	set_id     INTEGER NOT NULL,
	way        INTEGER NOT NULL,
	victim_tag INTEGER NOT NULL,
	new_tag    INTEGER NOT NULL,
	dirty      INTEGER NOT NULL,
	PRIMARY KEY (run_id, seq)
);
`

const insertEviction = `
INSERT INTO evictions (run_id, seq, cpu, set_id, way, victim_tag, new_tag, dirty)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

// DefaultBatchSize is the number of evictions buffered per transaction.
const DefaultBatchSize = 4096

// Log writes evictions of one run to a SQLite database. Rows are buffered
// and written in batches; Close flushes what is left.
type Log struct {
	db        *sql.DB
	runID     string
	seq       uint64
	batchSize int
	pending   []cache.Eviction
	closed    bool
}

// Open opens or creates the database at path. Evictions recorded through
// the returned Log are tagged with runID.
func Open(path, runID string) (*Log, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open eviction log: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create eviction table: %w", err)
	}

	return &Log{
		db:        db,
		runID:     runID,
		batchSize: DefaultBatchSize,
	}, nil
}

// SetBatchSize changes how many evictions are buffered before a write.
func (l *Log) SetBatchSize(n int) {
	if n < 1 {
		n = 1
	}
	l.batchSize = n
}

// RunID returns the run the log records.
func (l *Log) RunID() string {
	return l.runID
}

// Record buffers one eviction. It implements cache.EvictionRecorder.
func (l *Log) Record(e cache.Eviction) error {
	l.pending = append(l.pending, e)
	if len(l.pending) >= l.batchSize {
		return l.Flush()
	}
	return nil
}

// Flush writes all buffered evictions in one transaction.
func (l *Log) Flush() error {
	if len(l.pending) == 0 {
		return nil
	}

	tx, err := l.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin eviction batch: %w", err)
	}

	stmt, err := tx.Prepare(insertEviction)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to prepare eviction insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	seq := l.seq
	for _, e := range l.pending {
		_, err := stmt.Exec(l.runID, seq, e.CPU, e.Set, e.Way,
			int64(e.VictimTag), int64(e.NewTag), e.Dirty)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert eviction %d: %w", seq, err)
		}
		seq++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit eviction batch: %w", err)
	}

	l.seq = seq
	l.pending = l.pending[:0]

	return nil
}

// Count returns the number of evictions stored for runID.
func (l *Log) Count(runID string) (int, error) {
	var n int
	err := l.db.QueryRow(
		`SELECT COUNT(*) FROM evictions WHERE run_id = ?`, runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count evictions: %w", err)
	}
	return n, nil
}

// Evictions returns the stored evictions of runID in recording order.
func (l *Log) Evictions(runID string) ([]cache.Eviction, error) {
	rows, err := l.db.Query(`
		SELECT cpu, set_id, way, victim_tag, new_tag, dirty
		FROM evictions WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query evictions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var evictions []cache.Eviction
	for rows.Next() {
		var (
			e              cache.Eviction
			victim, newTag int64
		)
		if err := rows.Scan(&e.CPU, &e.Set, &e.Way, &victim, &newTag, &e.Dirty); err != nil {
			return nil, fmt.Errorf("failed to read eviction: %w", err)
		}
		e.VictimTag = uint64(victim)
		e.NewTag = uint64(newTag)
		evictions = append(evictions, e)
	}

	return evictions, rows.Err()
}

// Close flushes pending evictions and closes the database. Calling it again
// does nothing.
func (l *Log) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true

	flushErr := l.Flush()
	if err := l.db.Close(); err != nil {
		return fmt.Errorf("failed to close eviction log: %w", err)
	}
	return flushErr
}
