// Package imagehash implements the Image Hasher (spec.md §4.C): decodes
// an image and computes its aHash, dHash, and pHash as 64-bit values.
package imagehash

import (
	"bufio"
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"sync"

	"github.com/corona10/goimagehash"
	"github.com/mnj/dupdupninja-v2/internal/dderr"
)

// Result holds the three perceptual hashes plus the source dimensions,
// matching the image_hash row shape of spec.md §3.
type Result struct {
	AHash  uint64
	DHash  uint64
	PHash  uint64
	Width  int
	Height int
}

// HashReader decodes r and computes all three hashes. goimagehash pins
// the resize filter and DCT implementation internally, which is what
// spec.md §4.C's "deterministic filter ... specified once and frozen"
// requires: the same library version produces bit-identical output on
// every platform given the same input bytes.
func HashReader(r io.Reader) (Result, error) {
	img, _, err := image.Decode(bufio.NewReader(r))
	if err != nil {
		return Result{}, dderr.Wrap(dderr.Decode, err, "decode image")
	}
	return HashImage(img)
}

// HashImage computes all three hashes directly from a decoded image,
// letting callers (such as internal/video's frame snapshotter) skip a
// re-encode/re-decode round trip.
func HashImage(img image.Image) (Result, error) {
	aHash, err := goimagehash.AverageHash(img)
	if err != nil {
		return Result{}, dderr.Wrap(dderr.Decode, err, "compute ahash")
	}
	dHash, err := goimagehash.DifferenceHash(img)
	if err != nil {
		return Result{}, dderr.Wrap(dderr.Decode, err, "compute dhash")
	}
	pHash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return Result{}, dderr.Wrap(dderr.Decode, err, "compute phash")
	}

	b := img.Bounds()
	return Result{
		AHash:  aHash.GetHash(),
		DHash:  dHash.GetHash(),
		PHash:  pHash.GetHash(),
		Width:  b.Dx(),
		Height: b.Dy(),
	}, nil
}

// HashFile opens and hashes path. A decode failure is reported as
// dderr.Decode — a per-file skip per spec.md §4.C, never fatal.
func HashFile(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, dderr.Wrap(dderr.Io, err, "open image")
	}
	defer f.Close()
	return HashReader(f)
}

// FileResult pairs a path with its hash outcome for batch APIs.
type FileResult struct {
	Path   string
	Result Result
	Err    error
}

// HashFiles hashes paths concurrently across a bounded worker pool,
// grounded on schneiel-image-manager-cli's DefaultPHasher.HashFiles
// jobs/results channel pattern.
func HashFiles(ctx context.Context, paths []string, workers int) []FileResult {
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan string)
	results := make([]FileResult, len(paths))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				idx := indexOf(paths, path)
				select {
				case <-ctx.Done():
					results[idx] = FileResult{Path: path, Err: dderr.Wrap(dderr.Cancelled, ctx.Err(), "hash cancelled")}
					continue
				default:
				}
				res, err := HashFile(path)
				results[idx] = FileResult{Path: path, Result: res, Err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, p := range paths {
			select {
			case jobs <- p:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()
	return results
}

// indexOf returns the first position of path, so HashFiles relies on
// paths being unique per call: a repeated path only fills the result
// slot of its first occurrence.
func indexOf(paths []string, path string) int {
	for i, p := range paths {
		if p == path {
			return i
		}
	}
	return -1
}
