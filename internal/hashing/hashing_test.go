package hashing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/mnj/dupdupninja-v2/internal/dderr"
	"github.com/zeebo/blake3"
)

func TestHashFileMatchesIndependentDigest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.bin")
	data := []byte("the quick brown fox jumps over the lazy dog")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	got, err := HashFile(context.Background(), path)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}

	wantSha := sha256.Sum256(data)
	if got.Sha256Hex != hex.EncodeToString(wantSha[:]) {
		t.Errorf("sha256 mismatch: got %s", got.Sha256Hex)
	}

	b3 := blake3.New()
	b3.Write(data)
	wantB3 := hex.EncodeToString(b3.Sum(nil))
	if got.Blake3Hex != wantB3 {
		t.Errorf("blake3 mismatch: got %s want %s", got.Blake3Hex, wantB3)
	}
}

func TestHashFileEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.bin")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}

	got, err := HashFile(context.Background(), path)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	if len(got.Blake3Hex) != 64 || len(got.Sha256Hex) != 64 {
		t.Errorf("expected 64 hex chars each, got blake3=%d sha256=%d", len(got.Blake3Hex), len(got.Sha256Hex))
	}
}

func TestHashFileMissingFileIsIo(t *testing.T) {
	_, err := HashFile(context.Background(), "/nonexistent/path/zzz")
	if !dderr.Is(err, dderr.Io) {
		t.Fatalf("expected Io kind, got %v", err)
	}
}

func TestHashFileCancelledContext(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.bin")
	if err := os.WriteFile(path, []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := HashFile(ctx, path)
	if !dderr.Is(err, dderr.Cancelled) {
		t.Fatalf("expected Cancelled kind, got %v", err)
	}
}

func TestHashFileDeterministic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.bin")
	if err := os.WriteFile(path, []byte("deterministic content"), 0644); err != nil {
		t.Fatal(err)
	}

	r1, err := HashFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	r2, err := HashFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if r1 != r2 {
		t.Errorf("expected identical hashes across runs: %+v vs %+v", r1, r2)
	}
}
