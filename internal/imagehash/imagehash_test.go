package imagehash

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"math/bits"
	"os"
	"path/filepath"
	"testing"

	"github.com/mnj/dupdupninja-v2/internal/dderr"
)

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func checkerboard(size int, invert bool) image.Image {
	img := image.NewGray(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := uint8(0)
			if (x/8+y/8)%2 == 0 {
				v = 255
			}
			if invert {
				v = 255 - v
			}
			img.Set(x, y, color.Gray{Y: v})
		}
	}
	return img
}

func TestHashFileProducesStableDimensions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.png")
	writePNG(t, path, checkerboard(64, false))

	res, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	if res.Width != 64 || res.Height != 64 {
		t.Errorf("expected 64x64, got %dx%d", res.Width, res.Height)
	}
}

func TestHashFileIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.png")
	writePNG(t, path, checkerboard(64, false))

	r1, err := HashFile(path)
	if err != nil {
		t.Fatal(err)
	}
	r2, err := HashFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if r1 != r2 {
		t.Errorf("expected identical hashes, got %+v vs %+v", r1, r2)
	}
}

func TestHashFileDistinguishesDifferentImages(t *testing.T) {
	dir := t.TempDir()
	p1 := filepath.Join(dir, "a.png")
	p2 := filepath.Join(dir, "b.png")
	writePNG(t, p1, checkerboard(64, false))
	writePNG(t, p2, checkerboard(64, true))

	r1, err := HashFile(p1)
	if err != nil {
		t.Fatal(err)
	}
	r2, err := HashFile(p2)
	if err != nil {
		t.Fatal(err)
	}
	if bits.OnesCount64(r1.AHash^r2.AHash) == 0 {
		t.Errorf("expected inverted checkerboards to differ in aHash")
	}
}

func TestHashFileCorruptFileIsDecodeError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.png")
	if err := os.WriteFile(path, []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := HashFile(path)
	if !dderr.Is(err, dderr.Decode) {
		t.Fatalf("expected Decode kind, got %v", err)
	}
}

func TestHashFileMissingFileIsIoError(t *testing.T) {
	_, err := HashFile("/nonexistent/path/zzz.png")
	if !dderr.Is(err, dderr.Io) {
		t.Fatalf("expected Io kind, got %v", err)
	}
}

func TestHashFilesBatchHashesAllPaths(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i := 0; i < 5; i++ {
		p := filepath.Join(dir, string(rune('a'+i))+".png")
		writePNG(t, p, checkerboard(32, i%2 == 0))
		paths = append(paths, p)
	}

	results := HashFiles(context.Background(), paths, 3)
	if len(results) != len(paths) {
		t.Fatalf("expected %d results, got %d", len(paths), len(results))
	}
	for _, r := range results {
		if r.Err != nil {
			t.Errorf("unexpected error for %s: %v", r.Path, r.Err)
		}
	}
}
