package store

import (
	"context"

	"github.com/mnj/dupdupninja-v2/internal/dderr"
)

// FileRow is one row of the `file` table (spec.md §3), before its id is
// assigned by CommitBatch.
type FileRow struct {
	Path         string
	SizeBytes    int64
	FileType     string
	Blake3Hex    string
	Sha256Hex    string
	MtimeMs      int64
	IngestedAtMs int64
}

// ImageHashRow is one row of the `image_hash` table.
type ImageHashRow struct {
	AHash, DHash, PHash uint64
	Width, Height       int
}

// SnapshotRow is one row of the `snapshot` table. Hash fields are nil
// when per-snapshot hashing failed, per spec.md §4.D.
type SnapshotRow struct {
	Idx                 int
	Cnt                 int
	AtMs                int64
	DurationMs          *int64
	AHash, DHash, PHash *uint64
}

// StagedFile is the "staged row set" spec.md §4.E describes: a file row
// plus its optional image_hash row and zero or more snapshot rows,
// produced by one worker and handed to the commit queue.
type StagedFile struct {
	File      FileRow
	Image     *ImageHashRow
	Snapshots []SnapshotRow
}

// CommitBatch inserts a batch of staged file rows inside one
// transaction, following internal/store/sqlite.go's SaveJobs
// prepared-statement-in-a-transaction pattern. file.id assignment is
// monotonic in commit order, per spec.md §4.E's determinism
// requirement — callers must serialize calls to CommitBatch (the scan
// coordinator's single writer goroutine does this).
func (s *Store) CommitBatch(ctx context.Context, staged []StagedFile) ([]int64, error) {
	if len(staged) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, dderr.Wrap(dderr.Internal, err, "begin commit transaction")
	}
	defer func() { _ = tx.Rollback() }()

	fileStmt, err := tx.Prepare(`
		INSERT INTO file (path, size_bytes, file_type, blake3_hex, sha256_hex, mtime_ms, ingested_at_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, dderr.Wrap(dderr.Internal, err, "prepare file insert")
	}
	defer fileStmt.Close()

	imageStmt, err := tx.Prepare(`
		INSERT INTO image_hash (file_id, ahash, dhash, phash, width, height)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, dderr.Wrap(dderr.Internal, err, "prepare image_hash insert")
	}
	defer imageStmt.Close()

	snapshotStmt, err := tx.Prepare(`
		INSERT INTO snapshot (file_id, idx, cnt, at_ms, duration_ms, ahash, dhash, phash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, dderr.Wrap(dderr.Internal, err, "prepare snapshot insert")
	}
	defer snapshotStmt.Close()

	ids := make([]int64, len(staged))
	for i, row := range staged {
		res, err := fileStmt.Exec(row.File.Path, row.File.SizeBytes, row.File.FileType,
			row.File.Blake3Hex, row.File.Sha256Hex, row.File.MtimeMs, row.File.IngestedAtMs)
		if err != nil {
			return nil, dderr.Wrap(dderr.Internal, err, "insert file row")
		}
		fileID, err := res.LastInsertId()
		if err != nil {
			return nil, dderr.Wrap(dderr.Internal, err, "read inserted file id")
		}
		ids[i] = fileID

		if row.Image != nil {
			if _, err := imageStmt.Exec(fileID, int64(row.Image.AHash), int64(row.Image.DHash), int64(row.Image.PHash),
				row.Image.Width, row.Image.Height); err != nil {
				return nil, dderr.Wrap(dderr.Internal, err, "insert image_hash row")
			}
		}

		for _, snap := range row.Snapshots {
			if _, err := snapshotStmt.Exec(fileID, snap.Idx, snap.Cnt, snap.AtMs,
				nullableInt64(snap.DurationMs), nullableUint64(snap.AHash),
				nullableUint64(snap.DHash), nullableUint64(snap.PHash)); err != nil {
				return nil, dderr.Wrap(dderr.Internal, err, "insert snapshot row")
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, dderr.Wrap(dderr.Internal, err, "commit batch")
	}
	return ids, nil
}

func nullableInt64(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableUint64(v *uint64) interface{} {
	if v == nil {
		return nil
	}
	// SQLite integers are signed 64-bit; store the bit pattern so
	// round-tripping through sql.NullInt64 preserves every bit, matching
	// the 64-bit unsigned hashes of spec.md §3.
	return int64(*v)
}

// DeleteFileByPath deletes the matching `file` row; ON DELETE CASCADE
// removes its image_hash and snapshot children, per spec.md §4.F.
func (s *Store) DeleteFileByPath(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM file WHERE path = ?", path)
	if err != nil {
		return dderr.Wrap(dderr.Internal, err, "delete file by path")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return dderr.Wrap(dderr.Internal, err, "read rows affected")
	}
	if n == 0 {
		return dderr.New(dderr.InvalidArgument, "no file at path: "+path)
	}
	return nil
}
