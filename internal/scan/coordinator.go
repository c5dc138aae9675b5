// Package scan implements the Scan Coordinator (spec.md §4.E): the
// two-phase pre-scan/scan pipeline that walks a tree, dispatches files to
// a bounded worker pool for content and perceptual hashing, and commits
// results through a single writer goroutine.
package scan

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/mnj/dupdupninja-v2/internal/dderr"
	"github.com/mnj/dupdupninja-v2/internal/ddlog"
	"github.com/mnj/dupdupninja-v2/internal/dupconfig"
	"github.com/mnj/dupdupninja-v2/internal/store"
	"github.com/mnj/dupdupninja-v2/internal/video"
	"github.com/mnj/dupdupninja-v2/internal/walk"
)

// maxWorkers mirrors internal/jobs.MaxWorkers's role in the teacher repo:
// a hard ceiling on pool size regardless of CPU count, per spec.md §5.
const maxWorkers = 8

// progressInterval and progressBatch bound how often progress callbacks
// fire, per spec.md §5 ("rate-limited... at most every 64 files or
// 100ms" as pinned in DESIGN.md).
const (
	progressBatch    = 64
	progressInterval = 100 * time.Millisecond
)

// commitBatchSize and commitInterval bound the writer goroutine's batching
// window, per spec.md §4.E.
const (
	commitBatchSize = 256
	commitInterval  = 500 * time.Millisecond
)

// Totals is the result of PreScan: the file/byte counts Phase 2 uses to
// compute progress ratios.
type Totals struct {
	FilesSeen uint64
	BytesSeen uint64
}

// PreScanProgress mirrors the ABI's pre-scan progress struct (spec.md §6).
type PreScanProgress struct {
	FilesSeen   uint64
	BytesSeen   uint64
	DirsSeen    uint64
	CurrentPath string
}

// Progress mirrors the ABI's scan progress struct (spec.md §6).
type Progress struct {
	FilesSeen   uint64
	FilesHashed uint64
	FilesSkipped uint64
	BytesSeen   uint64
	TotalFiles  uint64
	TotalBytes  uint64
	CurrentPath string
	CurrentStep string
}

// PreScanProgressFunc and ProgressFunc are the coordinator's callback
// shapes; spec.md §5 guarantees these are invoked from at most one
// thread at a time for a given scan.
type PreScanProgressFunc func(PreScanProgress)
type ProgressFunc func(Progress)

// Result summarizes a completed, cancelled, or failed scan.
type Result struct {
	Outcome      string // "completed", "cancelled", or "failed"
	FilesSeen    uint64
	FilesHashed  uint64
	FilesSkipped uint64
	BytesSeen    uint64
}

// Coordinator drives the two-phase scan pipeline against one Store,
// honoring spec.md §5's single-concurrent-scan-per-handle rule.
type Coordinator struct {
	Store       *store.Store
	Options     dupconfig.EngineOptions
	VideoSource video.FrameSource

	mu       sync.Mutex
	scanning bool

	preScanGroup singleflight.Group
}

// NewCoordinator returns a Coordinator ready to scan into store.
func NewCoordinator(st *store.Store, opts dupconfig.EngineOptions, videoSource video.FrameSource) *Coordinator {
	return &Coordinator{Store: st, Options: opts.Normalize(), VideoSource: videoSource}
}

// PreScan walks root read-only, counting files and bytes for Phase 2's
// progress ratios. Concurrent PreScan calls against the same root are
// deduplicated via singleflight, since pre-scan never mutates the
// fileset and running it twice in parallel for the same root is wasted
// directory I/O.
func (c *Coordinator) PreScan(ctx context.Context, root string, progress PreScanProgressFunc) (Totals, error) {
	v, err, _ := c.preScanGroup.Do(root, func() (interface{}, error) {
		return preScan(ctx, root, progress)
	})
	if err != nil {
		return Totals{}, err
	}
	return v.(Totals), nil
}

func preScan(ctx context.Context, root string, progress PreScanProgressFunc) (Totals, error) {
	var filesSeen, bytesSeen, dirsSeen uint64
	lastReport := time.Now()

	err := walk.New().Walk(ctx, root, walk.Options{}, func(e walk.Entry) error {
		switch e.Kind {
		case walk.EntryDirectory:
			dirsSeen++
		case walk.EntryFile:
			filesSeen++
			bytesSeen += uint64(e.Size)
		default:
			return nil
		}

		if progress != nil && ((e.Kind == walk.EntryFile && filesSeen%progressBatch == 0) || time.Since(lastReport) >= progressInterval) {
			progress(PreScanProgress{FilesSeen: filesSeen, BytesSeen: bytesSeen, DirsSeen: dirsSeen, CurrentPath: e.Path})
			lastReport = time.Now()
		}
		return nil
	})
	if err != nil {
		return Totals{}, err
	}
	if progress != nil {
		progress(PreScanProgress{FilesSeen: filesSeen, BytesSeen: bytesSeen, DirsSeen: dirsSeen})
	}
	return Totals{FilesSeen: filesSeen, BytesSeen: bytesSeen}, nil
}

// Scan walks root, hashes every regular file through the worker pool,
// and commits rows through the single writer goroutine. totals comes
// from a prior PreScan call and is used only to compute progress
// ratios. Per spec.md §5, a second concurrent Scan on the same
// Coordinator is rejected with dderr.InvalidArgument.
func (c *Coordinator) Scan(ctx context.Context, root string, totals Totals, progress ProgressFunc) (Result, error) {
	c.mu.Lock()
	if c.scanning {
		c.mu.Unlock()
		return Result{}, dderr.New(dderr.InvalidArgument, "a scan is already running on this engine")
	}
	c.scanning = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.scanning = false
		c.mu.Unlock()
	}()

	scanID := uuid.New().String()
	ddlog.Info("scan starting", "scan_id", scanID, "root", root, "total_files", totals.FilesSeen, "total_bytes", humanize.Bytes(totals.BytesSeen))

	runID, err := c.Store.StartScanRun(context.Background(), root, time.Now().UnixMilli())
	if err != nil {
		return Result{}, err
	}

	counters := &counters{}
	workers := c.workerCount()

	entries := make(chan walk.Entry, workers*2)
	commits := make(chan store.StagedFile, workers*2)

	var writerWG sync.WaitGroup
	writerWG.Add(1)
	go func() {
		defer writerWG.Done()
		runWriter(ctx, c.Store, commits, counters, totals, progress)
	}()

	var workerWG sync.WaitGroup
	for i := 0; i < workers; i++ {
		workerWG.Add(1)
		go func() {
			defer workerWG.Done()
			runFileWorker(ctx, c.Options, c.VideoSource, entries, commits, counters)
		}()
	}

	walkErr := walk.New().Walk(ctx, root, walk.Options{}, func(e walk.Entry) error {
		if e.Kind != walk.EntryFile {
			if e.Kind == walk.EntrySkipped {
				counters.addSkipped(1)
			}
			return nil
		}
		select {
		case entries <- e:
			return nil
		case <-ctx.Done():
			return dderr.Wrap(dderr.Cancelled, ctx.Err(), "scan cancelled")
		}
	})
	close(entries)
	workerWG.Wait()
	close(commits)
	writerWG.Wait()

	outcome := "completed"
	if walkErr != nil {
		if dderr.Is(walkErr, dderr.Cancelled) {
			outcome = "cancelled"
		} else {
			outcome = "failed"
		}
	} else if ctx.Err() != nil {
		outcome = "cancelled"
	}

	finishedAtMs := time.Now().UnixMilli()
	seen, hashed, skipped, bytesSeen := counters.snapshot()
	if err := c.Store.FinishScanRun(context.Background(), runID, finishedAtMs, outcome, int64(seen), int64(hashed), int64(skipped), int64(bytesSeen)); err != nil {
		ddlog.Error("failed to finalize scan_run row", "scan_id", scanID, "error", err)
	}

	ddlog.Info("scan finished", "scan_id", scanID, "outcome", outcome, "files_hashed", hashed, "files_skipped", skipped)

	result := Result{Outcome: outcome, FilesSeen: seen, FilesHashed: hashed, FilesSkipped: skipped, BytesSeen: bytesSeen}
	if outcome == "failed" {
		return result, walkErr
	}
	if outcome == "cancelled" {
		return result, dderr.New(dderr.Cancelled, "scan cancelled")
	}
	return result, nil
}

// workerCount implements spec.md §5's pool sizing rule: max(1, min(8,
// logical CPUs)), or 1 when concurrent processing is disabled, following
// internal/jobs.ClampWorkerCount's shape in the teacher repo.
func (c *Coordinator) workerCount() int {
	if !c.Options.ConcurrentProcessing {
		return 1
	}
	n := runtime.NumCPU()
	if n > maxWorkers {
		n = maxWorkers
	}
	if n < 1 {
		n = 1
	}
	return n
}
