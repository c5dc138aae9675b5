package store

import (
	"context"
	"database/sql"

	"github.com/mnj/dupdupninja-v2/internal/dderr"
)

// FileRecord is a fully hydrated `file` row, used by both the row
// listing and the grouping queries in internal/query.
type FileRecord struct {
	ID           int64
	Path         string
	SizeBytes    int64
	FileType     string
	Blake3Hex    string
	Sha256Hex    string
	MtimeMs      int64
	IngestedAtMs int64
}

// ListRows returns file rows ordered by path, optionally restricted to
// files that participate in an exact-duplicate group (duplicatesOnly),
// for the `fileset_list_rows` ABI entry point (spec.md §6).
func (s *Store) ListRows(ctx context.Context, duplicatesOnly bool, limit, offset int) ([]FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, path, size_bytes, file_type, blake3_hex, sha256_hex, mtime_ms, ingested_at_ms FROM file`
	if duplicatesOnly {
		query += ` WHERE (size_bytes, blake3_hex) IN (
			SELECT size_bytes, blake3_hex FROM file GROUP BY size_bytes, blake3_hex HAVING COUNT(*) >= 2
		)`
	}
	query += ` ORDER BY path ASC`

	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dderr.Wrap(dderr.Internal, err, "list file rows")
	}
	defer rows.Close()

	var out []FileRecord
	for rows.Next() {
		var r FileRecord
		if err := rows.Scan(&r.ID, &r.Path, &r.SizeBytes, &r.FileType, &r.Blake3Hex, &r.Sha256Hex, &r.MtimeMs, &r.IngestedAtMs); err != nil {
			return nil, dderr.Wrap(dderr.Internal, err, "scan file row")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// AllFiles returns every file row unpaginated, for building the exact
// and similar group indexes in internal/query.
func (s *Store) AllFiles(ctx context.Context) ([]FileRecord, error) {
	return s.ListRows(ctx, false, 0, 0)
}

// HashedImage is one image_hash row joined with its file's path, for
// similar-group index construction.
type HashedImage struct {
	FileID              int64
	Path                string
	AHash, DHash, PHash uint64
	Width, Height       int
}

// AllImageHashes returns every image_hash row joined to its file path.
func (s *Store) AllImageHashes(ctx context.Context) ([]HashedImage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT ih.file_id, f.path, ih.ahash, ih.dhash, ih.phash, ih.width, ih.height
		FROM image_hash ih JOIN file f ON f.id = ih.file_id
	`)
	if err != nil {
		return nil, dderr.Wrap(dderr.Internal, err, "list image hashes")
	}
	defer rows.Close()

	var out []HashedImage
	for rows.Next() {
		var h HashedImage
		var a, d, p int64
		if err := rows.Scan(&h.FileID, &h.Path, &a, &d, &p, &h.Width, &h.Height); err != nil {
			return nil, dderr.Wrap(dderr.Internal, err, "scan image hash row")
		}
		h.AHash, h.DHash, h.PHash = uint64(a), uint64(d), uint64(p)
		out = append(out, h)
	}
	return out, rows.Err()
}

// HashedSnapshot is one snapshot row joined with its file's path, for
// similar-group index construction. Hash fields are nil when per-
// snapshot hashing failed.
type HashedSnapshot struct {
	FileID              int64
	Path                string
	Idx, Cnt            int
	AtMs                int64
	DurationMs          *int64
	AHash, DHash, PHash *uint64
}

// AllSnapshots returns every snapshot row that has a pHash, joined to
// its file path — rows with null hashes cannot participate in
// similar-group clustering, per spec.md §4.G.
func (s *Store) AllSnapshots(ctx context.Context) ([]HashedSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT sn.file_id, f.path, sn.idx, sn.cnt, sn.at_ms, sn.duration_ms, sn.ahash, sn.dhash, sn.phash
		FROM snapshot sn JOIN file f ON f.id = sn.file_id
		WHERE sn.phash IS NOT NULL
	`)
	if err != nil {
		return nil, dderr.Wrap(dderr.Internal, err, "list snapshots")
	}
	defer rows.Close()

	var out []HashedSnapshot
	for rows.Next() {
		var h HashedSnapshot
		var duration sql.NullInt64
		var a, d, p sql.NullInt64
		if err := rows.Scan(&h.FileID, &h.Path, &h.Idx, &h.Cnt, &h.AtMs, &duration, &a, &d, &p); err != nil {
			return nil, dderr.Wrap(dderr.Internal, err, "scan snapshot row")
		}
		h.DurationMs = nullInt64Ptr(duration)
		if a.Valid {
			v := uint64(a.Int64)
			h.AHash = &v
		}
		if d.Valid {
			v := uint64(d.Int64)
			h.DHash = &v
		}
		if p.Valid {
			v := uint64(p.Int64)
			h.PHash = &v
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// SnapshotsByPath returns every snapshot row for the file at path, for
// the `fileset_list_snapshots_by_path` ABI entry point.
func (s *Store) SnapshotsByPath(ctx context.Context, path string) ([]HashedSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT sn.file_id, f.path, sn.idx, sn.cnt, sn.at_ms, sn.duration_ms, sn.ahash, sn.dhash, sn.phash
		FROM snapshot sn JOIN file f ON f.id = sn.file_id
		WHERE f.path = ?
		ORDER BY sn.idx ASC
	`, path)
	if err != nil {
		return nil, dderr.Wrap(dderr.Internal, err, "list snapshots by path")
	}
	defer rows.Close()

	var out []HashedSnapshot
	for rows.Next() {
		var h HashedSnapshot
		var duration sql.NullInt64
		var a, d, p sql.NullInt64
		if err := rows.Scan(&h.FileID, &h.Path, &h.Idx, &h.Cnt, &h.AtMs, &duration, &a, &d, &p); err != nil {
			return nil, dderr.Wrap(dderr.Internal, err, "scan snapshot row")
		}
		h.DurationMs = nullInt64Ptr(duration)
		if a.Valid {
			v := uint64(a.Int64)
			h.AHash = &v
		}
		if d.Valid {
			v := uint64(d.Int64)
			h.DHash = &v
		}
		if p.Valid {
			v := uint64(p.Int64)
			h.PHash = &v
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
