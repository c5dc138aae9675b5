package dupconfig

import (
	"path/filepath"
	"testing"
)

func TestNormalizeClampsSnapshotsPerVideo(t *testing.T) {
	o := EngineOptions{SnapshotsPerVideo: 99, SnapshotMaxDim: 500}
	n := o.Normalize()
	if n.SnapshotsPerVideo != 10 {
		t.Errorf("SnapshotsPerVideo = %d, want 10", n.SnapshotsPerVideo)
	}
}

func TestNormalizeClampsSnapshotsPerVideoLow(t *testing.T) {
	o := EngineOptions{SnapshotsPerVideo: 0, SnapshotMaxDim: 512}
	n := o.Normalize()
	if n.SnapshotsPerVideo != 1 {
		t.Errorf("SnapshotsPerVideo = %d, want 1", n.SnapshotsPerVideo)
	}
}

func TestNormalizeRoundsSnapshotMaxDimToNearestBucket(t *testing.T) {
	cases := map[int]int{
		0:    128,
		200:  256,
		500:  512,
		2000: 2048,
		9999: 2048,
	}
	for in, want := range cases {
		got := EngineOptions{SnapshotMaxDim: in, SnapshotsPerVideo: 1}.Normalize().SnapshotMaxDim
		if got != want {
			t.Errorf("Normalize(%d).SnapshotMaxDim = %d, want %d", in, got, want)
		}
	}
}

func TestIsValidSnapshotMaxDim(t *testing.T) {
	if !IsValidSnapshotMaxDim(512) {
		t.Errorf("512 should be valid")
	}
	if IsValidSnapshotMaxDim(500) {
		t.Errorf("500 should not be valid")
	}
}

func TestLoadPresetMissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	opts, err := LoadPreset(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadPreset: %v", err)
	}
	if opts != DefaultEngineOptions() {
		t.Errorf("expected defaults, got %+v", opts)
	}
}

func TestSaveThenLoadPresetRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "preset.yaml")
	want := EngineOptions{
		CaptureSnapshots:     false,
		SnapshotsPerVideo:    5,
		SnapshotMaxDim:       1024,
		ConcurrentProcessing: false,
	}
	if err := SavePreset(path, want); err != nil {
		t.Fatalf("SavePreset: %v", err)
	}
	got, err := LoadPreset(path)
	if err != nil {
		t.Fatalf("LoadPreset: %v", err)
	}
	if got != want {
		t.Errorf("round trip mismatch: got %+v want %+v", got, want)
	}
}
