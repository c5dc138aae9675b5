// Package video implements the Video Snapshotter (spec.md §4.D): it
// samples N frames per video at evenly spaced timestamps, letterbox
// downscales each, and feeds the result to the Image Hasher.
package video

import (
	"context"
	"image"
	"time"
)

// Handle is an opaque per-open-file token returned by FrameSource.Open.
type Handle interface{}

// FrameSource is the pluggable decoder boundary of spec.md §4.D. It may
// be native, mocked, or entirely absent — video files still ingest their
// content hashes with zero snapshots when no source is wired.
type FrameSource interface {
	Open(ctx context.Context, path string) (Handle, error)
	Duration(ctx context.Context, h Handle) (time.Duration, error)
	FrameAt(ctx context.Context, h Handle, ts time.Duration) (image.Image, error)
	Close(h Handle) error
}

// NullSource is a FrameSource that is always unavailable. It lets the
// engine run on platforms without a native decoder wired in: video files
// still get content-hashed, with snapshot_count = 0 and no snapshot rows,
// exactly as spec.md §4.D prescribes for "implementations ... absent."
type NullSource struct{}

// ErrUnsupported is returned by NullSource's Open, Duration and FrameAt;
// its Close returns nil.
var ErrUnsupported = errUnsupported{}

type errUnsupported struct{}

func (errUnsupported) Error() string { return "no video frame source configured" }

func (NullSource) Open(ctx context.Context, path string) (Handle, error) {
	return nil, ErrUnsupported
}

func (NullSource) Duration(ctx context.Context, h Handle) (time.Duration, error) {
	return 0, ErrUnsupported
}

func (NullSource) FrameAt(ctx context.Context, h Handle, ts time.Duration) (image.Image, error) {
	return nil, ErrUnsupported
}

func (NullSource) Close(h Handle) error { return nil }
