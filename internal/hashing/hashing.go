// Package hashing implements the Content Hasher (spec.md §4.B): a
// streaming dual BLAKE3 + SHA-256 pass over file bytes with a fixed
// buffer and cooperative cancellation.
package hashing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"github.com/mnj/dupdupninja-v2/internal/dderr"
	"github.com/zeebo/blake3"
)

// chunkSize matches spec.md §4.B's 256 KiB streaming buffer. The
// teacher's pack sibling (mxk-fsx/index/hash.go) uses a 1 MiB buffer for
// BLAKE3 alone; the spec pins 256 KiB for this dual-hash pass.
const chunkSize = 256 * 1024

// Result holds the two lowercase hex digests produced by HashFile.
type Result struct {
	Blake3Hex string
	Sha256Hex string
}

// HashFile streams path through both hashers in a single pass, checking
// ctx for cancellation between chunks (spec.md §4.B, §4.E). Read errors
// surface as dderr.Io; cancellation surfaces as dderr.Cancelled.
func HashFile(ctx context.Context, path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, dderr.Wrap(dderr.Io, err, "open file")
	}
	defer f.Close()
	return hashReader(ctx, f)
}

func hashReader(ctx context.Context, r io.Reader) (Result, error) {
	b3 := blake3.New()
	sh := sha256.New()
	buf := make([]byte, chunkSize)

	for {
		select {
		case <-ctx.Done():
			return Result{}, dderr.Wrap(dderr.Cancelled, ctx.Err(), "hash cancelled")
		default:
		}

		n, readErr := r.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			b3.Write(chunk)
			sh.Write(chunk)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return Result{}, dderr.Wrap(dderr.Io, readErr, "read file")
		}
	}

	return Result{
		Blake3Hex: hex.EncodeToString(b3.Sum(nil)),
		Sha256Hex: hex.EncodeToString(sh.Sum(nil)),
	}, nil
}
