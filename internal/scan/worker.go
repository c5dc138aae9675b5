package scan

import (
	"context"
	"time"

	"github.com/mnj/dupdupninja-v2/internal/dderr"
	"github.com/mnj/dupdupninja-v2/internal/ddlog"
	"github.com/mnj/dupdupninja-v2/internal/dupconfig"
	"github.com/mnj/dupdupninja-v2/internal/hashing"
	"github.com/mnj/dupdupninja-v2/internal/imagehash"
	"github.com/mnj/dupdupninja-v2/internal/store"
	"github.com/mnj/dupdupninja-v2/internal/video"
	"github.com/mnj/dupdupninja-v2/internal/walk"
)

// runFileWorker consumes file entries and sends staged rows to commits,
// one of the fixed-size pool of goroutines spec.md §5 describes. It
// isolates per-file Io/Decode errors (counted as skipped) and silently
// drops files that can't be staged because the scan was cancelled, per
// spec.md §7's fatal/isolated split.
func runFileWorker(ctx context.Context, opts dupconfig.EngineOptions, videoSource video.FrameSource, entries <-chan walk.Entry, commits chan<- store.StagedFile, c *counters) {
	for e := range entries {
		select {
		case <-ctx.Done():
			continue
		default:
		}

		staged, err := processFile(ctx, opts, videoSource, e)
		if err != nil {
			if dderr.IsPerFileIsolated(dderr.KindOf(err)) {
				c.addSkipped(1)
				ddlog.Warn("skipping file", "path", e.Path, "error", err)
			}
			continue
		}

		c.addSeen(1)
		c.addBytes(uint64(e.Size))

		select {
		case commits <- *staged:
		case <-ctx.Done():
		}
	}
}

// processFile content-hashes e.Path and, depending on its media class,
// additionally perceptual-hashes it (images) or samples and hashes
// snapshot frames (videos). Image/video hashing failures degrade to a
// file-only row rather than aborting the file, per spec.md §4.D/§4.C's
// per-file tolerance for undecodable media.
func processFile(ctx context.Context, opts dupconfig.EngineOptions, videoSource video.FrameSource, e walk.Entry) (*store.StagedFile, error) {
	hashed, err := hashing.HashFile(ctx, e.Path)
	if err != nil {
		return nil, err
	}

	staged := &store.StagedFile{
		File: store.FileRow{
			Path:         e.Path,
			SizeBytes:    e.Size,
			FileType:     string(e.MediaClass),
			Blake3Hex:    hashed.Blake3Hex,
			Sha256Hex:    hashed.Sha256Hex,
			MtimeMs:      e.ModTime.UnixMilli(),
			IngestedAtMs: time.Now().UnixMilli(),
		},
	}

	switch e.MediaClass {
	case walk.ClassImage:
		ih, err := imagehash.HashFile(e.Path)
		if err != nil {
			if dderr.IsPerFileIsolated(dderr.KindOf(err)) {
				ddlog.Warn("image hash failed, committing file row only", "path", e.Path, "error", err)
				break
			}
			return nil, err
		}
		staged.Image = &store.ImageHashRow{AHash: ih.AHash, DHash: ih.DHash, PHash: ih.PHash, Width: ih.Width, Height: ih.Height}

	case walk.ClassVideo:
		source := videoSource
		if source == nil {
			source = video.NullSource{}
		}
		snapshots, durationMs, ok := video.Capture(ctx, source, e.Path, opts)
		if ok {
			for _, s := range snapshots {
				staged.Snapshots = append(staged.Snapshots, store.SnapshotRow{
					Idx: s.Index, Cnt: s.Count, AtMs: s.AtMs, DurationMs: &durationMs,
					AHash: s.AHash, DHash: s.DHash, PHash: s.PHash,
				})
			}
		}
	}

	return staged, nil
}
