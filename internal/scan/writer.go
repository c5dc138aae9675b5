package scan

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/mnj/dupdupninja-v2/internal/ddlog"
	"github.com/mnj/dupdupninja-v2/internal/store"
)

// runWriter is the single writer goroutine of spec.md §5: it owns the DB
// connection for the duration of the scan, batching staged rows from
// commits into CommitBatch calls of at most commitBatchSize rows or
// every commitInterval, whichever comes first, and emitting progress
// after each flush.
func runWriter(ctx context.Context, st *store.Store, commits <-chan store.StagedFile, c *counters, totals Totals, progress ProgressFunc) {
	batch := make([]store.StagedFile, 0, commitBatchSize)
	ticker := time.NewTicker(commitInterval)
	defer ticker.Stop()

	flush := func(currentPath, currentStep string) {
		if len(batch) == 0 {
			return
		}
		if _, err := st.CommitBatch(context.Background(), batch); err != nil {
			ddlog.Error("commit batch failed", "rows", len(batch), "error", err)
			batch = batch[:0]
			return
		}
		c.addHashed(uint64(len(batch)))
		batch = batch[:0]
		emitProgress(c, totals, currentPath, currentStep, progress)
	}

	for {
		select {
		case staged, ok := <-commits:
			if !ok {
				flush("", "commit")
				return
			}
			batch = append(batch, staged)
			if len(batch) >= commitBatchSize {
				flush(staged.File.Path, stepForFileType(staged.File.FileType))
			}
		case <-ticker.C:
			flush("", "commit")
		}
	}
}

// stepForFileType maps a staged row's file_type to one of spec.md
// §4.E/§7's current_step values for the file that triggered the flush;
// ticker- and drain-triggered flushes report "commit" instead, since
// they're not attributable to one file.
func stepForFileType(fileType string) string {
	switch fileType {
	case "image":
		return "image"
	case "video":
		return "video"
	default:
		return "hash"
	}
}

func emitProgress(c *counters, totals Totals, currentPath, currentStep string, progress ProgressFunc) {
	if progress == nil {
		return
	}
	seen, hashed, skipped, bytesSeen := c.snapshot()
	ddlog.Debug("scan progress",
		"files_hashed", hashed, "files_skipped", skipped,
		"bytes_seen", humanize.Bytes(bytesSeen), "total_bytes", humanize.Bytes(totals.BytesSeen))
	progress(Progress{
		FilesSeen:    seen,
		FilesHashed:  hashed,
		FilesSkipped: skipped,
		BytesSeen:    bytesSeen,
		TotalFiles:   totals.FilesSeen,
		TotalBytes:   totals.BytesSeen,
		CurrentPath:  currentPath,
		CurrentStep:  currentStep,
	})
}
