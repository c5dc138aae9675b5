package store

import (
	"context"
	"database/sql"

	"github.com/mnj/dupdupninja-v2/internal/dderr"
)

// Metadata is the singleton fileset_meta row (spec.md §3).
type Metadata struct {
	Name           string
	Description    string
	Notes          string
	Status         string
	SchemaVersion  int
}

// GetMetadata reads the singleton fileset_meta row.
func (s *Store) GetMetadata(ctx context.Context) (Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var m Metadata
	err := s.db.QueryRowContext(ctx,
		"SELECT name, description, notes, status, schema_version FROM fileset_meta WHERE rowid = 1",
	).Scan(&m.Name, &m.Description, &m.Notes, &m.Status, &m.SchemaVersion)
	if err != nil {
		return Metadata{}, dderr.Wrap(dderr.Internal, err, "read fileset metadata")
	}
	return m, nil
}

// SetMetadata updates the mutable fields of the singleton fileset_meta
// row (schema_version is managed by migrate, not by callers).
func (s *Store) SetMetadata(ctx context.Context, name, description, notes, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"UPDATE fileset_meta SET name = ?, description = ?, notes = ?, status = ? WHERE rowid = 1",
		name, description, notes, status,
	)
	if err != nil {
		return dderr.Wrap(dderr.Internal, err, "update fileset metadata")
	}
	return nil
}

// ScanRun is one row of the append-only scan_run table (spec.md §3).
type ScanRun struct {
	ID            int64
	Root          string
	StartedAtMs   int64
	FinishedAtMs  *int64
	Outcome       string
	FilesSeen     int64
	FilesHashed   int64
	FilesSkipped  int64
	BytesSeen     int64
}

// StartScanRun inserts a new scan_run row with no outcome yet recorded
// and returns its id.
func (s *Store) StartScanRun(ctx context.Context, root string, startedAtMs int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO scan_run (root, started_at_ms, outcome) VALUES (?, ?, 'running')",
		root, startedAtMs,
	)
	if err != nil {
		return 0, dderr.Wrap(dderr.Internal, err, "insert scan_run row")
	}
	return res.LastInsertId()
}

// FinishScanRun records the final outcome and counters for a scan_run
// row, per spec.md §4.E/§7 ("a scan_run row is written with outcome
// cancelled|completed|failed").
func (s *Store) FinishScanRun(ctx context.Context, id int64, finishedAtMs int64, outcome string, filesSeen, filesHashed, filesSkipped, bytesSeen int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`UPDATE scan_run SET finished_at_ms = ?, outcome = ?, files_seen = ?, files_hashed = ?, files_skipped = ?, bytes_seen = ?
		 WHERE id = ?`,
		finishedAtMs, outcome, filesSeen, filesHashed, filesSkipped, bytesSeen, id,
	)
	if err != nil {
		return dderr.Wrap(dderr.Internal, err, "finish scan_run row")
	}
	return nil
}

// nullInt64Ptr converts a sql.NullInt64 into a *int64.
func nullInt64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}
