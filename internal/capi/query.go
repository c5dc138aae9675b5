package capi

import (
	"context"

	"github.com/mnj/dupdupninja-v2/internal/query"
	"github.com/mnj/dupdupninja-v2/internal/store"
)

// FileRow mirrors the ABI's row shape for `fileset_list_rows` (spec.md §6).
type FileRow struct {
	ID           int64
	Path         string
	SizeBytes    int64
	FileType     string
	Blake3Hex    string
	Sha256Hex    string
	MtimeMs      int64
	IngestedAtMs int64
}

// ExactGroup and ExactRow mirror `fileset_list_exact_groups`'s result
// shape (spec.md §4.G/§6): a flat row list plus groups carrying offsets
// into it.
type ExactGroup struct {
	Label     string
	RowsStart int
	RowsLen   int
}

type ExactRow struct {
	FileID            int64
	Path              string
	SizeBytes         int64
	Blake3Hex         string
	ConfidencePercent float64
}

// SimilarGroup and SimilarRow mirror `fileset_list_similar_groups`'s
// result shape (spec.md §4.G/§6).
type SimilarGroup struct {
	Label     string
	RowsStart int
	RowsLen   int
}

type SimilarRow struct {
	FileID            int64
	Path              string
	SnapshotIdx       *int
	PHashDistance     int
	DHashDistance     *int
	AHashDistance     *int
	ConfidencePercent float64
}

// SnapshotRow mirrors `fileset_list_snapshots_by_path`'s row shape.
// AHash/DHash/PHash are nil when that snapshot's hashing failed.
type SnapshotRow struct {
	Idx         int
	Count       int
	TimestampMs int64
	DurationMs  *int64
	AHash       *uint64
	DHash       *uint64
	PHash       *uint64
}

// ListRows implements `fileset_list_rows`.
func ListRows(dbPath string, duplicatesOnly bool, limit, offset int) ([]FileRow, Status) {
	s, err := openStore(dbPath)
	if err != nil {
		return nil, statusFor(err)
	}
	records, err := s.ListRows(context.Background(), duplicatesOnly, limit, offset)
	if err != nil {
		return nil, statusFor(err)
	}
	rows := make([]FileRow, len(records))
	for i, r := range records {
		rows[i] = FileRow{
			ID:           r.ID,
			Path:         r.Path,
			SizeBytes:    r.SizeBytes,
			FileType:     r.FileType,
			Blake3Hex:    r.Blake3Hex,
			Sha256Hex:    r.Sha256Hex,
			MtimeMs:      r.MtimeMs,
			IngestedAtMs: r.IngestedAtMs,
		}
	}
	return rows, StatusOk
}

// ListExactGroups implements `fileset_list_exact_groups`.
func ListExactGroups(dbPath string, limit, offset int) ([]ExactGroup, []ExactRow, Status) {
	s, err := openStore(dbPath)
	if err != nil {
		return nil, nil, statusFor(err)
	}
	groups, rows, err := query.ExactGroups(context.Background(), s, limit, offset)
	if err != nil {
		return nil, nil, statusFor(err)
	}
	outGroups := make([]ExactGroup, len(groups))
	for i, g := range groups {
		outGroups[i] = ExactGroup{Label: g.Label, RowsStart: g.RowsStart, RowsLen: g.RowsLen}
	}
	outRows := make([]ExactRow, len(rows))
	for i, r := range rows {
		outRows[i] = ExactRow{
			FileID:            r.FileID,
			Path:              r.Path,
			SizeBytes:         r.SizeBytes,
			Blake3Hex:         r.Blake3Hex,
			ConfidencePercent: r.ConfidencePercent,
		}
	}
	return outGroups, outRows, StatusOk
}

// ListSimilarGroups implements `fileset_list_similar_groups`.
func ListSimilarGroups(dbPath string, limit, offset, phashMax, dhashMax, ahashMax int) ([]SimilarGroup, []SimilarRow, Status) {
	s, err := openStore(dbPath)
	if err != nil {
		return nil, nil, statusFor(err)
	}
	groups, rows, err := query.SimilarGroups(context.Background(), s, limit, offset, phashMax, dhashMax, ahashMax)
	if err != nil {
		return nil, nil, statusFor(err)
	}
	outGroups := make([]SimilarGroup, len(groups))
	for i, g := range groups {
		outGroups[i] = SimilarGroup{Label: g.Label, RowsStart: g.RowsStart, RowsLen: g.RowsLen}
	}
	outRows := make([]SimilarRow, len(rows))
	for i, r := range rows {
		outRows[i] = SimilarRow{
			FileID:            r.FileID,
			Path:              r.Path,
			SnapshotIdx:       r.SnapshotIdx,
			PHashDistance:     r.PHashDistance,
			DHashDistance:     r.DHashDistance,
			AHashDistance:     r.AHashDistance,
			ConfidencePercent: r.ConfidencePercent,
		}
	}
	return outGroups, outRows, StatusOk
}

// ListSnapshotsByPath implements `fileset_list_snapshots_by_path`.
func ListSnapshotsByPath(dbPath, path string) ([]SnapshotRow, Status) {
	if path == "" {
		return nil, StatusInvalidArgument
	}
	s, err := openStore(dbPath)
	if err != nil {
		return nil, statusFor(err)
	}
	snaps, err := s.SnapshotsByPath(context.Background(), path)
	if err != nil {
		return nil, statusFor(err)
	}
	rows := make([]SnapshotRow, len(snaps))
	for i, sn := range snaps {
		rows[i] = snapshotRowFrom(sn)
	}
	return rows, StatusOk
}

func snapshotRowFrom(sn store.HashedSnapshot) SnapshotRow {
	return SnapshotRow{
		Idx:         sn.Idx,
		Count:       sn.Cnt,
		TimestampMs: sn.AtMs,
		DurationMs:  sn.DurationMs,
		AHash:       sn.AHash,
		DHash:       sn.DHash,
		PHash:       sn.PHash,
	}
}
