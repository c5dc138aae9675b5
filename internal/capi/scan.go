package capi

import (
	"github.com/mnj/dupdupninja-v2/internal/dderr"
	"github.com/mnj/dupdupninja-v2/internal/dupconfig"
	"github.com/mnj/dupdupninja-v2/internal/scan"
	"github.com/mnj/dupdupninja-v2/internal/video"
)

// ScanOptions mirrors the ABI `options` struct of spec.md §6.
type ScanOptions struct {
	CaptureSnapshots     bool
	SnapshotsPerVideo    uint32
	SnapshotMaxDim       uint32
	ConcurrentProcessing bool
}

func (o ScanOptions) toEngineOptions() dupconfig.EngineOptions {
	return dupconfig.EngineOptions{
		CaptureSnapshots:     o.CaptureSnapshots,
		SnapshotsPerVideo:    int(o.SnapshotsPerVideo),
		SnapshotMaxDim:       int(o.SnapshotMaxDim),
		ConcurrentProcessing: o.ConcurrentProcessing,
	}.Normalize()
}

// PreScanProgress mirrors the ABI pre-scan progress struct of spec.md §6.
type PreScanProgress struct {
	FilesSeen   uint64
	BytesSeen   uint64
	DirsSeen    uint64
	CurrentPath string
}

// Progress mirrors the ABI progress struct of spec.md §6.
type Progress struct {
	FilesSeen    uint64
	FilesHashed  uint64
	FilesSkipped uint64
	BytesSeen    uint64
	TotalFiles   uint64
	TotalBytes   uint64
	CurrentPath  string
	CurrentStep  string
}

// PreScanProgressFunc and ProgressFunc are the pure-Go shapes of the ABI's
// `cb` callback parameter; cmd/libdupdupninja's cgo shim adapts a C
// function pointer into one of these before calling down into this
// package, keeping everything below here free of "C" pointer types.
type PreScanProgressFunc func(PreScanProgress)
type ProgressFunc func(Progress)

// Totals carries the file/byte counts produced by PreScanFolder into
// ScanFolderToSQLite, matching the ABI's explicit total_files/total_bytes
// parameters (spec.md §6) rather than having the engine recompute them.
type Totals struct {
	FilesSeen uint64
	BytesSeen uint64
}

func newVideoSource() video.FrameSource {
	return video.NewFFmpegSource("ffmpeg", "ffprobe")
}

// PreScanFolder implements the ABI's `prescan_folder` entry point: a
// read-only walk of root that produces the totals ScanFolderToSQLite
// needs for progress percentages.
func PreScanFolder(token Handle, root string, progress PreScanProgressFunc) (Totals, Status) {
	if root == "" {
		return Totals{}, StatusInvalidArgument
	}
	ctx := contextFor(token)

	var cb scan.PreScanProgressFunc
	if progress != nil {
		cb = func(p scan.PreScanProgress) {
			progress(PreScanProgress{
				FilesSeen:   p.FilesSeen,
				BytesSeen:   p.BytesSeen,
				DirsSeen:    p.DirsSeen,
				CurrentPath: p.CurrentPath,
			})
		}
	}

	// PreScan is a read-only walk that touches neither a Store nor a
	// VideoSource, so a throwaway Coordinator runs it without opening a
	// fileset. Each call builds its own Coordinator, so concurrent
	// PreScanFolder calls are not deduplicated against each other.
	c := scan.NewCoordinator(nil, dupconfig.DefaultEngineOptions(), nil)
	totals, err := c.PreScan(ctx, root, cb)
	if err != nil {
		return Totals{}, statusFor(err)
	}
	return Totals{FilesSeen: totals.FilesSeen, BytesSeen: totals.BytesSeen}, StatusOk
}

// ScanFolderToSQLite implements the ABI's
// `scan_folder_to_sqlite_with_progress_totals_and_options` entry point.
func ScanFolderToSQLite(engine Handle, root, dbPath string, token Handle, totalFiles, totalBytes uint64, options ScanOptions, progress ProgressFunc) Status {
	if root == "" || dbPath == "" {
		return StatusInvalidArgument
	}
	e := lookupEngine(engine)
	if e == nil {
		return StatusInvalidArgument
	}
	if !e.beginScan() {
		err := dderr.New(dderr.InvalidArgument, "a scan is already running on this engine handle")
		e.setLastError(err)
		return StatusInvalidArgument
	}
	defer e.endScan()

	c, err := e.coordinatorFor(dbPath, options.toEngineOptions(), newVideoSource())
	if err != nil {
		e.setLastError(err)
		return statusFor(err)
	}

	var cb scan.ProgressFunc
	if progress != nil {
		cb = func(p scan.Progress) {
			progress(Progress{
				FilesSeen:    p.FilesSeen,
				FilesHashed:  p.FilesHashed,
				FilesSkipped: p.FilesSkipped,
				BytesSeen:    p.BytesSeen,
				TotalFiles:   p.TotalFiles,
				TotalBytes:   p.TotalBytes,
				CurrentPath:  p.CurrentPath,
				CurrentStep:  p.CurrentStep,
			})
		}
	}

	ctx := contextFor(token)
	_, err = c.Scan(ctx, root, scan.Totals{FilesSeen: totalFiles, BytesSeen: totalBytes}, cb)
	e.setLastError(err)
	return statusFor(err)
}
