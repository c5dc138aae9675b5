// Package query implements the Query Engine (spec.md §4.G): exact
// duplicate groups by content hash, and similar-media groups by
// perceptual hash clustering.
package query

import (
	"context"
	"fmt"
	"math/bits"
	"sort"

	"github.com/mnj/dupdupninja-v2/internal/store"
)

// ExactRow is one row.Path participating in an exact-duplicate group.
type ExactRow struct {
	FileID            int64
	Path              string
	SizeBytes         int64
	Blake3Hex         string
	ConfidencePercent float64
}

// ExactGroup is a set of file rows sharing (size_bytes, blake3_hex),
// as offsets into the flat row list returned alongside it.
type ExactGroup struct {
	Label     string
	RowsStart int
	RowsLen   int
}

// ExactGroups groups file rows by (size_bytes, blake3_hex) having
// count >= 2, ordered by size_bytes*count descending then blake3_hex,
// with rows inside a group ordered by path ascending. limit/offset
// paginate over groups, not rows.
func ExactGroups(ctx context.Context, s *store.Store, limit, offset int) ([]ExactGroup, []ExactRow, error) {
	files, err := s.AllFiles(ctx)
	if err != nil {
		return nil, nil, err
	}

	type key struct {
		size   int64
		blake3 string
	}
	buckets := make(map[key][]store.FileRecord)
	for _, f := range files {
		k := key{f.SizeBytes, f.Blake3Hex}
		buckets[k] = append(buckets[k], f)
	}

	type groupBuild struct {
		key   key
		files []store.FileRecord
	}
	var groups []groupBuild
	for k, fs := range buckets {
		if len(fs) >= 2 {
			sort.Slice(fs, func(i, j int) bool { return fs[i].Path < fs[j].Path })
			groups = append(groups, groupBuild{k, fs})
		}
	}

	sort.Slice(groups, func(i, j int) bool {
		wi := groups[i].key.size * int64(len(groups[i].files))
		wj := groups[j].key.size * int64(len(groups[j].files))
		if wi != wj {
			return wi > wj
		}
		return groups[i].key.blake3 < groups[j].key.blake3
	})

	groups = paginate(groups, limit, offset)

	var outGroups []ExactGroup
	var outRows []ExactRow
	for _, g := range groups {
		start := len(outRows)
		for _, f := range g.files {
			outRows = append(outRows, ExactRow{
				FileID:            f.ID,
				Path:              f.Path,
				SizeBytes:         f.SizeBytes,
				Blake3Hex:         f.Blake3Hex,
				ConfidencePercent: 100.00,
			})
		}
		outGroups = append(outGroups, ExactGroup{
			Label:     exactLabel(g.key.size, g.key.blake3),
			RowsStart: start,
			RowsLen:   len(g.files),
		})
	}
	return outGroups, outRows, nil
}

func exactLabel(sizeBytes int64, blake3Hex string) string {
	prefix := blake3Hex
	if len(prefix) > 12 {
		prefix = prefix[:12]
	}
	return fmt.Sprintf("%d bytes · %s", sizeBytes, prefix)
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// clamp restricts v to [lo, hi].
func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// hamming returns the Hamming distance between two 64-bit hashes.
func hamming(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}
