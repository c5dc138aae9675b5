package video

import (
	"context"
	"image"
	"time"

	"github.com/mnj/dupdupninja-v2/internal/dupconfig"
	"github.com/mnj/dupdupninja-v2/internal/imagehash"
	"github.com/nfnt/resize"
)

// SnapshotResult is one sampled-and-hashed video frame, matching the
// snapshot row shape of spec.md §3.
type SnapshotResult struct {
	Index      int
	Count      int
	AtMs       int64
	DurationMs int64
	AHash      *uint64
	DHash      *uint64
	PHash      *uint64
}

// Capture samples opts.SnapshotsPerVideo frames from path at the evenly
// spaced timestamps spec.md §4.D defines, letterbox-downscales each to
// opts.SnapshotMaxDim, and hashes it. ok is false when no snapshots were
// attempted (capture disabled, no source, or duration lookup failure) —
// callers should then commit the file with snapshot_count = 0 and no
// snapshot rows, per spec.md §4.D.
func Capture(ctx context.Context, source FrameSource, path string, opts dupconfig.EngineOptions) (snapshots []SnapshotResult, durationMs int64, ok bool) {
	if !opts.CaptureSnapshots || source == nil {
		return nil, 0, false
	}

	handle, err := source.Open(ctx, path)
	if err != nil {
		return nil, 0, false
	}
	defer source.Close(handle)

	duration, err := source.Duration(ctx, handle)
	if err != nil || duration <= 0 {
		return nil, 0, false
	}

	n := opts.SnapshotsPerVideo
	if n < 1 {
		n = 1
	}
	durationMs = duration.Milliseconds()

	snapshots = make([]SnapshotResult, 0, n)
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			return snapshots, durationMs, true
		default:
		}

		ts := time.Duration(float64(duration) * float64(i+1) / float64(n+1))
		row := SnapshotResult{Index: i, Count: n, AtMs: ts.Milliseconds(), DurationMs: durationMs}

		frame, err := source.FrameAt(ctx, handle, ts)
		if err != nil {
			snapshots = append(snapshots, row)
			continue
		}

		scaled := letterboxDownscale(frame, opts.SnapshotMaxDim)
		hashed, err := imagehash.HashImage(scaled)
		if err != nil {
			snapshots = append(snapshots, row)
			continue
		}

		a, d, p := hashed.AHash, hashed.DHash, hashed.PHash
		row.AHash, row.DHash, row.PHash = &a, &d, &p
		snapshots = append(snapshots, row)
	}

	return snapshots, durationMs, true
}

// letterboxDownscale shrinks img so its longest edge is at most maxDim,
// preserving aspect ratio. Images already within bounds are returned
// unchanged — the spec calls for downscaling, never upscaling. The
// resize filter (triangle) is pinned once here for determinism, per
// spec.md §4.C's bit-exactness requirement.
func letterboxDownscale(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 || maxDim <= 0 {
		return img
	}
	if w <= maxDim && h <= maxDim {
		return img
	}

	var newW, newH uint
	if w >= h {
		newW = uint(maxDim)
	} else {
		newH = uint(maxDim)
	}
	return resize.Resize(newW, newH, img, resize.Triangle)
}
