// Command libdupdupninja builds the Stable Boundary (spec.md §4.H) as a
// C shared library: a thin cgo shim over internal/capi that marshals
// handles, strings, and row buffers across the language boundary. None
// of the pack's example repos link against cgo, so this file follows
// spec.md §6's bit-exact function list directly rather than an
// idiom borrowed from the corpus; internal/capi underneath it is where
// the teacher's patterns (error kinds, options, store/scan/query types)
// actually live.
package main

/*
#include <stdint.h>
#include <stdlib.h>

typedef struct {
	uint8_t  capture_snapshots;
	uint32_t snapshots_per_video;
	uint32_t snapshot_max_dim;
	uint8_t  concurrent_processing;
} dd_options;

typedef struct {
	uint64_t files_seen;
	uint64_t bytes_seen;
} dd_totals;

typedef struct {
	uint64_t    files_seen;
	uint64_t    bytes_seen;
	uint64_t    dirs_seen;
	const char* current_path;
} dd_prescan_progress;

typedef struct {
	uint64_t    files_seen;
	uint64_t    files_hashed;
	uint64_t    files_skipped;
	uint64_t    bytes_seen;
	uint64_t    total_files;
	uint64_t    total_bytes;
	const char* current_path;
	const char* current_step;
} dd_progress;

typedef void (*dd_prescan_progress_cb)(const dd_prescan_progress*, void*);
typedef void (*dd_progress_cb)(const dd_progress*, void*);

static inline void dd_invoke_prescan_cb(dd_prescan_progress_cb cb, const dd_prescan_progress* p, void* user) {
	if (cb != NULL) cb(p, user);
}

static inline void dd_invoke_progress_cb(dd_progress_cb cb, const dd_progress* p, void* user) {
	if (cb != NULL) cb(p, user);
}

typedef struct {
	int64_t     id;
	const char* path;
	int64_t     size_bytes;
	const char* file_type;
	const char* blake3_hex;
	const char* sha256_hex;
	int64_t     mtime_ms;
	int64_t     ingested_at_ms;
} dd_file_row;

typedef struct {
	const char* label;
	int32_t     rows_start;
	int32_t     rows_len;
} dd_group;

typedef struct {
	int64_t     file_id;
	const char* path;
	int64_t     size_bytes;
	const char* blake3_hex;
	double      confidence_percent;
} dd_exact_row;

typedef struct {
	int64_t     file_id;
	const char* path;
	int32_t     snapshot_idx;
	uint8_t     has_snapshot_idx;
	int32_t     phash_distance;
	int32_t     dhash_distance;
	uint8_t     has_dhash_distance;
	int32_t     ahash_distance;
	uint8_t     has_ahash_distance;
	double      confidence_percent;
} dd_similar_row;

typedef struct {
	int32_t  idx;
	int32_t  count;
	int64_t  timestamp_ms;
	int64_t  duration_ms;
	uint8_t  has_duration_ms;
	uint64_t ahash;
	uint8_t  has_ahash;
	uint64_t dhash;
	uint8_t  has_dhash;
	uint64_t phash;
	uint8_t  has_phash;
} dd_snapshot_row;

typedef struct {
	const char* name;
	const char* description;
	const char* notes;
	const char* status;
	int32_t     schema_version;
} dd_metadata;

typedef struct {
	uint32_t major;
	uint32_t minor;
	uint32_t patch;
} dd_version;
*/
import "C"

import (
	"sync"
	"unsafe"

	"github.com/mnj/dupdupninja-v2/internal/capi"
)

// status codes mirror spec.md §4.H exactly; internal/capi.Status's
// numeric values are defined to match so the cast below is a no-op in
// practice, but we cast explicitly since the two types must never be
// assumed identical across a package boundary.
const (
	statusOk              C.int32_t = 0
	statusError           C.int32_t = 1
	statusInvalidArgument C.int32_t = 2
	statusNullPointer     C.int32_t = 3
)

func cStatus(s capi.Status) C.int32_t {
	switch s {
	case capi.StatusOk:
		return statusOk
	case capi.StatusInvalidArgument:
		return statusInvalidArgument
	case capi.StatusNullPointer:
		return statusNullPointer
	default:
		return statusError
	}
}

func goString(s *C.char) string {
	if s == nil {
		return ""
	}
	return C.GoString(s)
}

// cString allocates a C-owned, null-terminated copy of s. Pair every
// call with C.free (directly, or via one of the *_free exports below).
func cString(s string) *C.char {
	return C.CString(s)
}

//export engine_new
func engine_new() C.int64_t {
	return C.int64_t(capi.NewEngine())
}

//export engine_free
func engine_free(h C.int64_t) {
	capi.FreeEngine(capi.Handle(h))
}

//export cancel_token_new
func cancel_token_new() C.int64_t {
	return C.int64_t(capi.NewCancelToken())
}

//export cancel_token_free
func cancel_token_free(h C.int64_t) {
	capi.FreeCancelToken(capi.Handle(h))
}

//export cancel_token_cancel
func cancel_token_cancel(h C.int64_t) {
	capi.CancelTokenCancel(capi.Handle(h))
}

// lastError is a per-thread-equivalent slot: the ABI promises the
// string returned by last_error_message lives until the next call on
// the same goroutine/thread. Since cgo calls from different OS threads
// can't be told apart cheaply without runtime.LockOSThread gymnastics,
// and the engine handle already carries its own last-error slot, we key
// this purely informational global fallback off the most recently
// touched engine handle. Only
// scan_folder_to_sqlite_with_progress_totals_and_options updates it;
// the other exports below leave it unchanged.
var (
	lastErrMu  sync.Mutex
	lastErrStr *C.char
)

func setLastError(h capi.Handle) {
	msg := capi.LastErrorMessage(h)
	lastErrMu.Lock()
	defer lastErrMu.Unlock()
	if lastErrStr != nil {
		C.free(unsafe.Pointer(lastErrStr))
		lastErrStr = nil
	}
	if msg != "" {
		lastErrStr = C.CString(msg)
	}
}

//export last_error_message
func last_error_message() *C.char {
	lastErrMu.Lock()
	defer lastErrMu.Unlock()
	return lastErrStr
}

//export prescan_folder
func prescan_folder(root *C.char, token C.int64_t, cb C.dd_prescan_progress_cb, user unsafe.Pointer, outTotals *C.dd_totals) C.int32_t {
	var progress capi.PreScanProgressFunc
	if cb != nil {
		progress = func(p capi.PreScanProgress) {
			cPath := cString(p.CurrentPath)
			defer C.free(unsafe.Pointer(cPath))
			cp := C.dd_prescan_progress{
				files_seen:   C.uint64_t(p.FilesSeen),
				bytes_seen:   C.uint64_t(p.BytesSeen),
				dirs_seen:    C.uint64_t(p.DirsSeen),
				current_path: cPath,
			}
			C.dd_invoke_prescan_cb(cb, &cp, user)
		}
	}

	totals, status := capi.PreScanFolder(capi.Handle(token), goString(root), progress)
	if outTotals != nil {
		outTotals.files_seen = C.uint64_t(totals.FilesSeen)
		outTotals.bytes_seen = C.uint64_t(totals.BytesSeen)
	}
	return cStatus(status)
}

//export scan_folder_to_sqlite_with_progress_totals_and_options
func scan_folder_to_sqlite_with_progress_totals_and_options(
	engine C.int64_t, root, db *C.char, token C.int64_t,
	totalFiles, totalBytes C.uint64_t, options *C.dd_options,
	cb C.dd_progress_cb, user unsafe.Pointer,
) C.int32_t {
	var opts capi.ScanOptions
	if options != nil {
		opts = capi.ScanOptions{
			CaptureSnapshots:     options.capture_snapshots != 0,
			SnapshotsPerVideo:    uint32(options.snapshots_per_video),
			SnapshotMaxDim:       uint32(options.snapshot_max_dim),
			ConcurrentProcessing: options.concurrent_processing != 0,
		}
	}

	var progress capi.ProgressFunc
	if cb != nil {
		progress = func(p capi.Progress) {
			cPath := cString(p.CurrentPath)
			cStep := cString(p.CurrentStep)
			defer C.free(unsafe.Pointer(cPath))
			defer C.free(unsafe.Pointer(cStep))
			cp := C.dd_progress{
				files_seen:    C.uint64_t(p.FilesSeen),
				files_hashed:  C.uint64_t(p.FilesHashed),
				files_skipped: C.uint64_t(p.FilesSkipped),
				bytes_seen:    C.uint64_t(p.BytesSeen),
				total_files:   C.uint64_t(p.TotalFiles),
				total_bytes:   C.uint64_t(p.TotalBytes),
				current_path:  cPath,
				current_step:  cStep,
			}
			C.dd_invoke_progress_cb(cb, &cp, user)
		}
	}

	status := capi.ScanFolderToSQLite(capi.Handle(engine), goString(root), goString(db), capi.Handle(token), uint64(totalFiles), uint64(totalBytes), opts, progress)
	setLastError(capi.Handle(engine))
	return cStatus(status)
}

//export fileset_list_rows
func fileset_list_rows(db *C.char, duplicatesOnly C.uint8_t, limit, offset C.int32_t, outRows **C.dd_file_row, outLen *C.int32_t) C.int32_t {
	rows, status := capi.ListRows(goString(db), duplicatesOnly != 0, int(limit), int(offset))
	if status != capi.StatusOk {
		return cStatus(status)
	}
	*outRows, *outLen = allocFileRows(rows)
	return statusOk
}

func allocFileRows(rows []capi.FileRow) (*C.dd_file_row, C.int32_t) {
	if len(rows) == 0 {
		return nil, 0
	}
	buf := (*C.dd_file_row)(C.malloc(C.size_t(len(rows)) * C.size_t(unsafe.Sizeof(C.dd_file_row{}))))
	out := unsafe.Slice(buf, len(rows))
	for i, r := range rows {
		out[i] = C.dd_file_row{
			id:             C.int64_t(r.ID),
			path:           cString(r.Path),
			size_bytes:     C.int64_t(r.SizeBytes),
			file_type:      cString(r.FileType),
			blake3_hex:     cString(r.Blake3Hex),
			sha256_hex:     cString(r.Sha256Hex),
			mtime_ms:       C.int64_t(r.MtimeMs),
			ingested_at_ms: C.int64_t(r.IngestedAtMs),
		}
	}
	return buf, C.int32_t(len(rows))
}

//export fileset_list_rows_free
func fileset_list_rows_free(rows *C.dd_file_row, length C.int32_t) {
	if rows == nil {
		return
	}
	slice := unsafe.Slice(rows, int(length))
	for _, r := range slice {
		C.free(unsafe.Pointer(r.path))
		C.free(unsafe.Pointer(r.file_type))
		C.free(unsafe.Pointer(r.blake3_hex))
		C.free(unsafe.Pointer(r.sha256_hex))
	}
	C.free(unsafe.Pointer(rows))
}

//export fileset_list_exact_groups
func fileset_list_exact_groups(db *C.char, limit, offset C.int32_t, outGroups **C.dd_group, outGroupsLen *C.int32_t, outRows **C.dd_exact_row, outRowsLen *C.int32_t) C.int32_t {
	groups, rows, status := capi.ListExactGroups(goString(db), int(limit), int(offset))
	if status != capi.StatusOk {
		return cStatus(status)
	}
	*outGroups, *outGroupsLen = allocGroups(groups)
	*outRows, *outRowsLen = allocExactRows(rows)
	return statusOk
}

func allocGroups(groups []capi.ExactGroup) (*C.dd_group, C.int32_t) {
	if len(groups) == 0 {
		return nil, 0
	}
	buf := (*C.dd_group)(C.malloc(C.size_t(len(groups)) * C.size_t(unsafe.Sizeof(C.dd_group{}))))
	out := unsafe.Slice(buf, len(groups))
	for i, g := range groups {
		out[i] = C.dd_group{
			label:      cString(g.Label),
			rows_start: C.int32_t(g.RowsStart),
			rows_len:   C.int32_t(g.RowsLen),
		}
	}
	return buf, C.int32_t(len(groups))
}

// allocSimilarGroups exists only because dd_group is reused for both
// exact and similar groups; kept separate for readability at call sites.
func allocSimilarGroups(groups []capi.SimilarGroup) (*C.dd_group, C.int32_t) {
	converted := make([]capi.ExactGroup, len(groups))
	for i, g := range groups {
		converted[i] = capi.ExactGroup{Label: g.Label, RowsStart: g.RowsStart, RowsLen: g.RowsLen}
	}
	return allocGroups(converted)
}

//export fileset_list_groups_free
func fileset_list_groups_free(groups *C.dd_group, length C.int32_t) {
	if groups == nil {
		return
	}
	slice := unsafe.Slice(groups, int(length))
	for _, g := range slice {
		C.free(unsafe.Pointer(g.label))
	}
	C.free(unsafe.Pointer(groups))
}

func allocExactRows(rows []capi.ExactRow) (*C.dd_exact_row, C.int32_t) {
	if len(rows) == 0 {
		return nil, 0
	}
	buf := (*C.dd_exact_row)(C.malloc(C.size_t(len(rows)) * C.size_t(unsafe.Sizeof(C.dd_exact_row{}))))
	out := unsafe.Slice(buf, len(rows))
	for i, r := range rows {
		out[i] = C.dd_exact_row{
			file_id:            C.int64_t(r.FileID),
			path:               cString(r.Path),
			size_bytes:         C.int64_t(r.SizeBytes),
			blake3_hex:         cString(r.Blake3Hex),
			confidence_percent: C.double(r.ConfidencePercent),
		}
	}
	return buf, C.int32_t(len(rows))
}

//export fileset_list_exact_rows_free
func fileset_list_exact_rows_free(rows *C.dd_exact_row, length C.int32_t) {
	if rows == nil {
		return
	}
	slice := unsafe.Slice(rows, int(length))
	for _, r := range slice {
		C.free(unsafe.Pointer(r.path))
		C.free(unsafe.Pointer(r.blake3_hex))
	}
	C.free(unsafe.Pointer(rows))
}

//export fileset_list_similar_groups
func fileset_list_similar_groups(
	db *C.char, limit, offset, phashMax, dhashMax, ahashMax C.int32_t,
	outGroups **C.dd_group, outGroupsLen *C.int32_t,
	outRows **C.dd_similar_row, outRowsLen *C.int32_t,
) C.int32_t {
	groups, rows, status := capi.ListSimilarGroups(goString(db), int(limit), int(offset), int(phashMax), int(dhashMax), int(ahashMax))
	if status != capi.StatusOk {
		return cStatus(status)
	}
	*outGroups, *outGroupsLen = allocSimilarGroups(groups)
	*outRows, *outRowsLen = allocSimilarRows(rows)
	return statusOk
}

func allocSimilarRows(rows []capi.SimilarRow) (*C.dd_similar_row, C.int32_t) {
	if len(rows) == 0 {
		return nil, 0
	}
	buf := (*C.dd_similar_row)(C.malloc(C.size_t(len(rows)) * C.size_t(unsafe.Sizeof(C.dd_similar_row{}))))
	out := unsafe.Slice(buf, len(rows))
	for i, r := range rows {
		row := C.dd_similar_row{
			file_id:            C.int64_t(r.FileID),
			path:               cString(r.Path),
			phash_distance:     C.int32_t(r.PHashDistance),
			confidence_percent: C.double(r.ConfidencePercent),
		}
		if r.SnapshotIdx != nil {
			row.snapshot_idx = C.int32_t(*r.SnapshotIdx)
			row.has_snapshot_idx = 1
		}
		if r.DHashDistance != nil {
			row.dhash_distance = C.int32_t(*r.DHashDistance)
			row.has_dhash_distance = 1
		}
		if r.AHashDistance != nil {
			row.ahash_distance = C.int32_t(*r.AHashDistance)
			row.has_ahash_distance = 1
		}
		out[i] = row
	}
	return buf, C.int32_t(len(rows))
}

//export fileset_list_similar_rows_free
func fileset_list_similar_rows_free(rows *C.dd_similar_row, length C.int32_t) {
	if rows == nil {
		return
	}
	slice := unsafe.Slice(rows, int(length))
	for _, r := range slice {
		C.free(unsafe.Pointer(r.path))
	}
	C.free(unsafe.Pointer(rows))
}

//export fileset_list_snapshots_by_path
func fileset_list_snapshots_by_path(db, path *C.char, outRows **C.dd_snapshot_row, outLen *C.int32_t) C.int32_t {
	rows, status := capi.ListSnapshotsByPath(goString(db), goString(path))
	if status != capi.StatusOk {
		return cStatus(status)
	}
	if len(rows) == 0 {
		*outRows, *outLen = nil, 0
		return statusOk
	}
	buf := (*C.dd_snapshot_row)(C.malloc(C.size_t(len(rows)) * C.size_t(unsafe.Sizeof(C.dd_snapshot_row{}))))
	out := unsafe.Slice(buf, len(rows))
	for i, r := range rows {
		row := C.dd_snapshot_row{
			idx:          C.int32_t(r.Idx),
			count:        C.int32_t(r.Count),
			timestamp_ms: C.int64_t(r.TimestampMs),
		}
		if r.DurationMs != nil {
			row.duration_ms = C.int64_t(*r.DurationMs)
			row.has_duration_ms = 1
		}
		if r.AHash != nil {
			row.ahash = C.uint64_t(*r.AHash)
			row.has_ahash = 1
		}
		if r.DHash != nil {
			row.dhash = C.uint64_t(*r.DHash)
			row.has_dhash = 1
		}
		if r.PHash != nil {
			row.phash = C.uint64_t(*r.PHash)
			row.has_phash = 1
		}
		out[i] = row
	}
	*outRows, *outLen = buf, C.int32_t(len(rows))
	return statusOk
}

//export fileset_list_snapshots_free
func fileset_list_snapshots_free(rows *C.dd_snapshot_row, length C.int32_t) {
	if rows == nil {
		return
	}
	C.free(unsafe.Pointer(rows))
}

//export fileset_get_metadata
func fileset_get_metadata(db *C.char, outView *C.dd_metadata) C.int32_t {
	m, status := capi.GetMetadata(goString(db))
	if status != capi.StatusOk {
		return cStatus(status)
	}
	if outView != nil {
		*outView = C.dd_metadata{
			name:           cString(m.Name),
			description:    cString(m.Description),
			notes:          cString(m.Notes),
			status:         cString(m.Status),
			schema_version: C.int32_t(m.SchemaVersion),
		}
	}
	return statusOk
}

//export fileset_metadata_free
func fileset_metadata_free(view *C.dd_metadata) {
	if view == nil {
		return
	}
	C.free(unsafe.Pointer(view.name))
	C.free(unsafe.Pointer(view.description))
	C.free(unsafe.Pointer(view.notes))
	C.free(unsafe.Pointer(view.status))
}

//export fileset_set_metadata
func fileset_set_metadata(db, name, description, notes, status *C.char) C.int32_t {
	return cStatus(capi.SetMetadata(goString(db), goString(name), goString(description), goString(notes), goString(status)))
}

//export fileset_delete_file_by_path
func fileset_delete_file_by_path(db, path *C.char) C.int32_t {
	return cStatus(capi.DeleteFileByPath(goString(db), goString(path)))
}

//export ffi_version
func ffi_version() C.dd_version {
	v := capi.GetVersion()
	return C.dd_version{major: C.uint32_t(v.Major), minor: C.uint32_t(v.Minor), patch: C.uint32_t(v.Patch)}
}

//export ffi_abi_major
func ffi_abi_major() C.uint32_t {
	return C.uint32_t(capi.AbiMajor())
}

func main() {}
