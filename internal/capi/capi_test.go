package capi

import (
	"os"
	"path/filepath"
	"testing"
)

// TestScanFolderToSQLiteSecondEngineOnSameDbIsLocked covers spec.md's
// concurrent-engine-handles scenario: engine1's store.Open holds the
// advisory file lock on dbPath for as long as engine1 lives, so
// engine2's own store.Open attempt against the same path must contend
// for real and report an error rather than silently reusing engine1's
// connection.
func TestScanFolderToSQLiteSecondEngineOnSameDbIsLocked(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, dir, "a.bin", []byte("hello"))
	dbPath := filepath.Join(t.TempDir(), "test.ddn")

	engine1 := NewEngine()
	status := ScanFolderToSQLite(engine1, dir, dbPath, 0, 0, 0, ScanOptions{}, nil)
	if status != StatusOk {
		t.Fatalf("first engine scan status = %v, lastError = %q", status, LastErrorMessage(engine1))
	}

	engine2 := NewEngine()
	defer FreeEngine(engine2)
	status = ScanFolderToSQLite(engine2, dir, dbPath, 0, 0, 0, ScanOptions{}, nil)
	if status != StatusError {
		t.Fatalf("second engine scan status = %v, want Error (locked)", status)
	}
	if LastErrorMessage(engine2) == "" {
		t.Error("expected last error message to be set on the second engine handle")
	}

	// The first handle's store is still open; freeing it releases the
	// lock so a third handle can open the path cleanly.
	FreeEngine(engine1)
	engine3 := NewEngine()
	defer FreeEngine(engine3)
	status = ScanFolderToSQLite(engine3, dir, dbPath, 0, 0, 0, ScanOptions{}, nil)
	if status != StatusOk {
		t.Fatalf("third engine scan status = %v, lastError = %q", status, LastErrorMessage(engine3))
	}
}

func mustWriteFile(t *testing.T, dir, name string, content []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), content, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestEngineHandleLifecycle(t *testing.T) {
	h := NewEngine()
	if h == 0 {
		t.Fatal("expected nonzero handle")
	}
	if lookupEngine(h) == nil {
		t.Fatal("expected engine to be registered")
	}
	FreeEngine(h)
	if lookupEngine(h) != nil {
		t.Fatal("expected engine to be unregistered after free")
	}
}

func TestCancelTokenCancelIsIdempotent(t *testing.T) {
	h := NewCancelToken()
	defer FreeCancelToken(h)

	ctx := contextFor(h)
	select {
	case <-ctx.Done():
		t.Fatal("context should not be done before cancel")
	default:
	}

	CancelTokenCancel(h)
	CancelTokenCancel(h) // idempotent, must not panic

	select {
	case <-ctx.Done():
	default:
		t.Fatal("context should be done after cancel")
	}
}

func TestContextForUnknownHandleIsBackground(t *testing.T) {
	ctx := contextFor(Handle(999999))
	select {
	case <-ctx.Done():
		t.Fatal("unknown handle should yield a live background context")
	default:
	}
}

func TestPreScanFolderCountsFiles(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, dir, "a.bin", []byte("hello"))
	mustWriteFile(t, dir, "b.bin", []byte("world!"))

	totals, status := PreScanFolder(0, dir, nil)
	if status != StatusOk {
		t.Fatalf("status = %v, want Ok", status)
	}
	if totals.FilesSeen != 2 {
		t.Fatalf("FilesSeen = %d, want 2", totals.FilesSeen)
	}
}

func TestPreScanFolderRejectsEmptyRoot(t *testing.T) {
	_, status := PreScanFolder(0, "", nil)
	if status != StatusInvalidArgument {
		t.Fatalf("status = %v, want InvalidArgument", status)
	}
}

func TestScanFolderToSQLiteEndToEnd(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, dir, "a.bin", []byte("duplicate-content"))
	mustWriteFile(t, dir, "b.bin", []byte("duplicate-content"))

	dbPath := filepath.Join(t.TempDir(), "test.ddn")
	defer CloseStore(dbPath)

	engine := NewEngine()
	defer FreeEngine(engine)

	totals, status := PreScanFolder(0, dir, nil)
	if status != StatusOk {
		t.Fatalf("PreScanFolder status = %v", status)
	}

	opts := ScanOptions{CaptureSnapshots: true, SnapshotsPerVideo: 3, SnapshotMaxDim: 512, ConcurrentProcessing: false}
	var progressCalls int
	status = ScanFolderToSQLite(engine, dir, dbPath, 0, totals.FilesSeen, totals.BytesSeen, opts, func(Progress) {
		progressCalls++
	})
	if status != StatusOk {
		t.Fatalf("ScanFolderToSQLite status = %v, lastError = %q", status, LastErrorMessage(engine))
	}
	if progressCalls == 0 {
		t.Error("expected at least one progress callback")
	}

	rows, status := ListRows(dbPath, false, 0, 0)
	if status != StatusOk {
		t.Fatalf("ListRows status = %v", status)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	groups, exactRows, status := ListExactGroups(dbPath, 0, 0)
	if status != StatusOk {
		t.Fatalf("ListExactGroups status = %v", status)
	}
	if len(groups) != 1 || len(exactRows) != 2 {
		t.Fatalf("groups=%d rows=%d, want 1/2", len(groups), len(exactRows))
	}
}

func TestScanFolderToSQLiteRejectsUnknownEngine(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(t.TempDir(), "test.ddn")
	status := ScanFolderToSQLite(Handle(123456), dir, dbPath, 0, 0, 0, ScanOptions{}, nil)
	if status != StatusInvalidArgument {
		t.Fatalf("status = %v, want InvalidArgument", status)
	}
}

func TestScanFolderToSQLiteRejectsConcurrentScan(t *testing.T) {
	engine := NewEngine()
	defer FreeEngine(engine)

	e := lookupEngine(engine)
	if !e.beginScan() {
		t.Fatal("expected first beginScan to succeed")
	}
	defer e.endScan()

	dir := t.TempDir()
	dbPath := filepath.Join(t.TempDir(), "test.ddn")
	defer CloseStore(dbPath)
	status := ScanFolderToSQLite(engine, dir, dbPath, 0, 0, 0, ScanOptions{}, nil)
	if status != StatusInvalidArgument {
		t.Fatalf("status = %v, want InvalidArgument", status)
	}
	if LastErrorMessage(engine) == "" {
		t.Error("expected last error message to be set")
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.ddn")
	defer CloseStore(dbPath)

	if status := SetMetadata(dbPath, "My Set", "desc", "notes", "active"); status != StatusOk {
		t.Fatalf("SetMetadata status = %v", status)
	}
	m, status := GetMetadata(dbPath)
	if status != StatusOk {
		t.Fatalf("GetMetadata status = %v", status)
	}
	if m.Name != "My Set" || m.Status != "active" {
		t.Fatalf("unexpected metadata: %+v", m)
	}
}

func TestDeleteFileByPathMissingIsInvalidArgument(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.ddn")
	defer CloseStore(dbPath)

	status := DeleteFileByPath(dbPath, "/does/not/exist")
	if status != StatusInvalidArgument {
		t.Fatalf("status = %v, want InvalidArgument", status)
	}
}

func TestVersionAndAbiMajor(t *testing.T) {
	v := GetVersion()
	if v.Major == 0 && v.Minor == 0 && v.Patch == 0 {
		t.Fatal("expected a nonzero version")
	}
	if AbiMajor() == 0 {
		t.Fatal("expected a nonzero ABI major version")
	}
}
