package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mnj/dupdupninja-v2/internal/dderr"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.ddn")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestOpenCreatesFilesetMetaRow(t *testing.T) {
	s, _ := openTestStore(t)

	meta, err := s.GetMetadata(context.Background())
	if err != nil {
		t.Fatalf("GetMetadata: %v", err)
	}
	if meta.SchemaVersion != currentSchemaVersion {
		t.Errorf("SchemaVersion = %d, want %d", meta.SchemaVersion, currentSchemaVersion)
	}
	if meta.Status != "new" {
		t.Errorf("Status = %q, want \"new\"", meta.Status)
	}
}

func TestOpenSameDatabaseTwiceReturnsDbLocked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locked.ddn")
	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	defer s1.Close()

	_, err = Open(path)
	if !dderr.Is(err, dderr.DbLocked) {
		t.Fatalf("expected DbLocked on second open, got %v", err)
	}
}

func TestCommitBatchAssignsMonotonicIDs(t *testing.T) {
	s, _ := openTestStore(t)

	staged := []StagedFile{
		{File: FileRow{Path: "/a.jpg", SizeBytes: 10, FileType: "image", Blake3Hex: "aa", Sha256Hex: "bb", MtimeMs: 1, IngestedAtMs: 2}},
		{File: FileRow{Path: "/b.jpg", SizeBytes: 20, FileType: "image", Blake3Hex: "cc", Sha256Hex: "dd", MtimeMs: 1, IngestedAtMs: 2}},
	}
	ids, err := s.CommitBatch(context.Background(), staged)
	if err != nil {
		t.Fatalf("CommitBatch: %v", err)
	}
	if len(ids) != 2 || ids[1] <= ids[0] {
		t.Fatalf("expected monotonic ids, got %v", ids)
	}
}

func TestCommitBatchWithImageAndSnapshotRows(t *testing.T) {
	s, _ := openTestStore(t)

	dur := int64(10000)
	ah, dh, ph := uint64(1), uint64(2), uint64(3)
	staged := []StagedFile{
		{
			File:  FileRow{Path: "/img.jpg", SizeBytes: 10, FileType: "image", Blake3Hex: "aa", Sha256Hex: "bb", MtimeMs: 1, IngestedAtMs: 2},
			Image: &ImageHashRow{AHash: 1, DHash: 2, PHash: 3, Width: 100, Height: 50},
		},
		{
			File: FileRow{Path: "/vid.mp4", SizeBytes: 30, FileType: "video", Blake3Hex: "ee", Sha256Hex: "ff", MtimeMs: 1, IngestedAtMs: 2},
			Snapshots: []SnapshotRow{
				{Idx: 0, Cnt: 1, AtMs: 5000, DurationMs: &dur, AHash: &ah, DHash: &dh, PHash: &ph},
			},
		},
	}
	if _, err := s.CommitBatch(context.Background(), staged); err != nil {
		t.Fatalf("CommitBatch: %v", err)
	}

	images, err := s.AllImageHashes(context.Background())
	if err != nil {
		t.Fatalf("AllImageHashes: %v", err)
	}
	if len(images) != 1 || images[0].PHash != 3 {
		t.Fatalf("unexpected image hashes: %+v", images)
	}

	snaps, err := s.SnapshotsByPath(context.Background(), "/vid.mp4")
	if err != nil {
		t.Fatalf("SnapshotsByPath: %v", err)
	}
	if len(snaps) != 1 || snaps[0].PHash == nil || *snaps[0].PHash != 3 {
		t.Fatalf("unexpected snapshots: %+v", snaps)
	}
}

func TestDeleteFileByPathCascades(t *testing.T) {
	s, _ := openTestStore(t)

	staged := []StagedFile{
		{
			File:  FileRow{Path: "/img.jpg", SizeBytes: 10, FileType: "image", Blake3Hex: "aa", Sha256Hex: "bb", MtimeMs: 1, IngestedAtMs: 2},
			Image: &ImageHashRow{AHash: 1, DHash: 2, PHash: 3, Width: 100, Height: 50},
		},
	}
	if _, err := s.CommitBatch(context.Background(), staged); err != nil {
		t.Fatalf("CommitBatch: %v", err)
	}

	if err := s.DeleteFileByPath(context.Background(), "/img.jpg"); err != nil {
		t.Fatalf("DeleteFileByPath: %v", err)
	}

	rows, err := s.ListRows(context.Background(), false, 0, 0)
	if err != nil {
		t.Fatalf("ListRows: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected file row removed, got %v", rows)
	}

	images, err := s.AllImageHashes(context.Background())
	if err != nil {
		t.Fatalf("AllImageHashes: %v", err)
	}
	if len(images) != 0 {
		t.Fatalf("expected image_hash cascade-deleted, got %v", images)
	}
}

func TestDeleteFileByPathMissingIsInvalidArgument(t *testing.T) {
	s, _ := openTestStore(t)

	err := s.DeleteFileByPath(context.Background(), "/missing.jpg")
	if !dderr.Is(err, dderr.InvalidArgument) {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestScanRunLifecycle(t *testing.T) {
	s, _ := openTestStore(t)

	id, err := s.StartScanRun(context.Background(), "/root", 1000)
	if err != nil {
		t.Fatalf("StartScanRun: %v", err)
	}
	if err := s.FinishScanRun(context.Background(), id, 2000, "completed", 5, 5, 0, 1024); err != nil {
		t.Fatalf("FinishScanRun: %v", err)
	}
}

func TestSetMetadataUpdatesFields(t *testing.T) {
	s, _ := openTestStore(t)

	if err := s.SetMetadata(context.Background(), "My Fileset", "desc", "notes", "ready"); err != nil {
		t.Fatalf("SetMetadata: %v", err)
	}
	meta, err := s.GetMetadata(context.Background())
	if err != nil {
		t.Fatalf("GetMetadata: %v", err)
	}
	if meta.Name != "My Fileset" || meta.Status != "ready" {
		t.Errorf("unexpected metadata: %+v", meta)
	}
}

func TestListRowsDuplicatesOnly(t *testing.T) {
	s, _ := openTestStore(t)

	staged := []StagedFile{
		{File: FileRow{Path: "/a.bin", SizeBytes: 4, FileType: "other", Blake3Hex: "same", Sha256Hex: "x1"}},
		{File: FileRow{Path: "/b.bin", SizeBytes: 4, FileType: "other", Blake3Hex: "same", Sha256Hex: "x2"}},
		{File: FileRow{Path: "/c.bin", SizeBytes: 4, FileType: "other", Blake3Hex: "diff", Sha256Hex: "x3"}},
	}
	if _, err := s.CommitBatch(context.Background(), staged); err != nil {
		t.Fatalf("CommitBatch: %v", err)
	}

	rows, err := s.ListRows(context.Background(), true, 0, 0)
	if err != nil {
		t.Fatalf("ListRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 duplicate rows, got %d: %+v", len(rows), rows)
	}
}

func TestOpenEmptyPathIsInvalidArgument(t *testing.T) {
	_, err := Open("")
	if !dderr.Is(err, dderr.InvalidArgument) {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}
