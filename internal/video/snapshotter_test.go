package video

import (
	"context"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/mnj/dupdupninja-v2/internal/dupconfig"
)

type mockHandle struct{ path string }

type mockSource struct {
	duration  time.Duration
	frameSize int
	failFrame bool
}

func (m *mockSource) Open(ctx context.Context, path string) (Handle, error) {
	return &mockHandle{path: path}, nil
}
func (m *mockSource) Close(h Handle) error { return nil }
func (m *mockSource) Duration(ctx context.Context, h Handle) (time.Duration, error) {
	return m.duration, nil
}
func (m *mockSource) FrameAt(ctx context.Context, h Handle, ts time.Duration) (image.Image, error) {
	if m.failFrame {
		return nil, ErrUnsupported
	}
	img := image.NewGray(image.Rect(0, 0, m.frameSize, m.frameSize))
	for y := 0; y < m.frameSize; y++ {
		for x := 0; x < m.frameSize; x++ {
			v := uint8(0)
			if (x+y)%2 == 0 {
				v = 255
			}
			img.Set(x, y, color.Gray{Y: v})
		}
	}
	return img, nil
}

func TestCaptureSamplesEvenlySpacedTimestamps(t *testing.T) {
	src := &mockSource{duration: 10 * time.Second, frameSize: 64}
	opts := dupconfig.EngineOptions{CaptureSnapshots: true, SnapshotsPerVideo: 3, SnapshotMaxDim: 512}

	snaps, durationMs, ok := Capture(context.Background(), src, "video.mp4", opts)
	if !ok {
		t.Fatal("expected ok=true")
	}
	if durationMs != 10000 {
		t.Errorf("durationMs = %d, want 10000", durationMs)
	}
	if len(snaps) != 3 {
		t.Fatalf("expected 3 snapshots, got %d", len(snaps))
	}
	want := []int64{2500, 5000, 7500}
	for i, s := range snaps {
		if s.AtMs != want[i] {
			t.Errorf("snapshot %d at_ms = %d, want %d", i, s.AtMs, want[i])
		}
		if s.Count != 3 {
			t.Errorf("snapshot %d count = %d, want 3", i, s.Count)
		}
		if s.PHash == nil {
			t.Errorf("snapshot %d missing phash", i)
		}
	}
}

func TestCaptureDisabledReturnsNotOk(t *testing.T) {
	src := &mockSource{duration: 10 * time.Second, frameSize: 64}
	opts := dupconfig.EngineOptions{CaptureSnapshots: false, SnapshotsPerVideo: 3, SnapshotMaxDim: 512}

	snaps, _, ok := Capture(context.Background(), src, "video.mp4", opts)
	if ok || snaps != nil {
		t.Errorf("expected disabled capture to return ok=false, nil snapshots")
	}
}

func TestCaptureDurationFailureIsNotOk(t *testing.T) {
	var src nullDurationSource
	opts := dupconfig.EngineOptions{CaptureSnapshots: true, SnapshotsPerVideo: 3, SnapshotMaxDim: 512}

	_, durationMs, ok := Capture(context.Background(), src, "video.mp4", opts)
	if ok || durationMs != 0 {
		t.Errorf("expected duration failure to yield ok=false")
	}
}

type nullDurationSource struct{ NullSource }

// Open succeeds so that Capture reaches the failing Duration call.
func (nullDurationSource) Open(ctx context.Context, path string) (Handle, error) {
	return &mockHandle{path: path}, nil
}

func TestCaptureFrameFailureRecordsNullHashRow(t *testing.T) {
	src := &mockSource{duration: 4 * time.Second, frameSize: 32, failFrame: true}
	opts := dupconfig.EngineOptions{CaptureSnapshots: true, SnapshotsPerVideo: 1, SnapshotMaxDim: 512}

	snaps, _, ok := Capture(context.Background(), src, "video.mp4", opts)
	if !ok {
		t.Fatal("expected ok=true even when frame extraction fails")
	}
	if len(snaps) != 1 {
		t.Fatalf("expected 1 snapshot row, got %d", len(snaps))
	}
	if snaps[0].PHash != nil {
		t.Errorf("expected null phash on frame failure")
	}
}

func TestLetterboxDownscalePreservesAspectRatio(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4000, 2000))
	scaled := letterboxDownscale(img, 1000)
	b := scaled.Bounds()
	if b.Dx() != 1000 {
		t.Errorf("width = %d, want 1000", b.Dx())
	}
	if b.Dy() != 500 {
		t.Errorf("height = %d, want 500", b.Dy())
	}
}

func TestLetterboxDownscaleNoopWhenWithinBounds(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 100, 50))
	scaled := letterboxDownscale(img, 1000)
	if scaled.Bounds().Dx() != 100 || scaled.Bounds().Dy() != 50 {
		t.Errorf("expected no-op for image within bounds")
	}
}
