package query

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/mnj/dupdupninja-v2/internal/store"
)

// candidate is one perceptual-hash carrier: an image file or a single
// video snapshot.
type candidate struct {
	fileID      int64
	path        string
	snapshotIdx *int
	ahash       uint64
	dhash       uint64
	phash       uint64
	hasAHash    bool
	hasDHash    bool
}

// SimilarRow is one perceptual-hash carrier participating in a similar
// group, with its distances to the group's representative.
type SimilarRow struct {
	FileID            int64
	Path              string
	SnapshotIdx       *int
	PHashDistance     int
	DHashDistance     *int
	AHashDistance     *int
	ConfidencePercent float64
}

// SimilarGroup is a cluster of perceptually-similar rows, as offsets
// into the flat row list returned alongside it.
type SimilarGroup struct {
	Label     string
	RowsStart int
	RowsLen   int
}

const (
	phashBands    = 4
	phashBandBits = 16
)

// SimilarGroups clusters image_hash and snapshot pHashes by transitive
// closure under phashMaxDistance, dropping candidate pairs whose dHash
// or aHash distance exceeds their own maxes, per spec.md §4.G.
// phashMaxDistance is clamped to [1,32]. limit/offset paginate over
// groups.
func SimilarGroups(ctx context.Context, s *store.Store, limit, offset, phashMaxDistance, dhashMaxDistance, ahashMaxDistance int) ([]SimilarGroup, []SimilarRow, error) {
	phashMaxDistance = clamp(phashMaxDistance, 1, 32)
	dhashMaxDistance = clamp(dhashMaxDistance, 0, 64)
	ahashMaxDistance = clamp(ahashMaxDistance, 0, 64)

	candidates, err := collectCandidates(ctx, s)
	if err != nil {
		return nil, nil, err
	}
	if len(candidates) == 0 {
		return nil, nil, nil
	}

	uf := newUnionFind(len(candidates))
	index := buildBandIndex(candidates)

	for i := range candidates {
		for _, j := range index.neighbors(i) {
			if j <= i {
				continue
			}
			a, b := candidates[i], candidates[j]
			if hamming(a.phash, b.phash) > phashMaxDistance {
				continue
			}
			if a.hasDHash && b.hasDHash && hamming(a.dhash, b.dhash) > dhashMaxDistance {
				continue
			}
			if a.hasAHash && b.hasAHash && hamming(a.ahash, b.ahash) > ahashMaxDistance {
				continue
			}
			uf.union(i, j)
		}
	}

	clusters := make(map[int][]int)
	for i := range candidates {
		root := uf.find(i)
		clusters[root] = append(clusters[root], i)
	}

	type groupBuild struct {
		members []int
	}
	var groups []groupBuild
	for _, members := range clusters {
		if len(members) >= 2 {
			groups = append(groups, groupBuild{members})
		}
	}

	sort.Slice(groups, func(i, j int) bool {
		if len(groups[i].members) != len(groups[j].members) {
			return len(groups[i].members) > len(groups[j].members)
		}
		return candidates[groups[i].members[0]].path < candidates[groups[j].members[0]].path
	})

	groups = paginate(groups, limit, offset)

	var outGroups []SimilarGroup
	var outRows []SimilarRow
	for _, g := range groups {
		rep := representative(candidates, g.members)
		start := len(outRows)
		rows := make([]SimilarRow, 0, len(g.members))
		for _, idx := range g.members {
			c := candidates[idx]
			r := candidates[rep]
			pd := hamming(c.phash, r.phash)
			row := SimilarRow{
				FileID:        c.fileID,
				Path:          c.path,
				SnapshotIdx:   c.snapshotIdx,
				PHashDistance: pd,
				ConfidencePercent: math.Round(
					math.Min(99.99, float64(64-pd)/64*100)*100,
				) / 100,
			}
			if c.hasDHash && r.hasDHash {
				dd := hamming(c.dhash, r.dhash)
				row.DHashDistance = &dd
			}
			if c.hasAHash && r.hasAHash {
				ad := hamming(c.ahash, r.ahash)
				row.AHashDistance = &ad
			}
			rows = append(rows, row)
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].Path < rows[j].Path })
		outRows = append(outRows, rows...)
		outGroups = append(outGroups, SimilarGroup{
			Label:     fmt.Sprintf("%d similar items", len(g.members)),
			RowsStart: start,
			RowsLen:   len(rows),
		})
	}
	return outGroups, outRows, nil
}

// representative returns the member index with the smallest summed
// pHash distance to every other member of the group.
func representative(candidates []candidate, members []int) int {
	best := members[0]
	bestSum := -1
	for _, i := range members {
		sum := 0
		for _, j := range members {
			if i == j {
				continue
			}
			sum += hamming(candidates[i].phash, candidates[j].phash)
		}
		if bestSum == -1 || sum < bestSum {
			bestSum = sum
			best = i
		}
	}
	return best
}

func collectCandidates(ctx context.Context, s *store.Store) ([]candidate, error) {
	images, err := s.AllImageHashes(ctx)
	if err != nil {
		return nil, err
	}
	snapshots, err := s.AllSnapshots(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]candidate, 0, len(images)+len(snapshots))
	for _, im := range images {
		out = append(out, candidate{
			fileID:   im.FileID,
			path:     im.Path,
			ahash:    im.AHash,
			dhash:    im.DHash,
			phash:    im.PHash,
			hasAHash: true,
			hasDHash: true,
		})
	}
	for _, sn := range snapshots {
		if sn.PHash == nil {
			continue
		}
		idx := sn.Idx
		c := candidate{
			fileID:      sn.FileID,
			path:        sn.Path,
			snapshotIdx: &idx,
			phash:       *sn.PHash,
		}
		if sn.AHash != nil {
			c.ahash = *sn.AHash
			c.hasAHash = true
		}
		if sn.DHash != nil {
			c.dhash = *sn.DHash
			c.hasDHash = true
		}
		out = append(out, c)
	}
	return out, nil
}

// bandIndex is a 4-way banded pHash index: each 64-bit hash is split
// into phashBands chunks of phashBandBits, and candidates sharing any
// band bucket are considered neighbor candidates, per spec.md §4.G's
// "the query must be computable without materialising N² pairs"
// requirement. This does not guarantee catching every pair within an
// arbitrary threshold (it is a banding heuristic, not an exact index),
// but it captures the common case of near-identical hashes cheaply;
// every candidate found via the index is still re-verified against the
// exact threshold before being joined.
type bandIndex struct {
	buckets [phashBands]map[uint16][]int
	keys    [][phashBands]uint16
}

func buildBandIndex(candidates []candidate) *bandIndex {
	idx := &bandIndex{keys: make([][phashBands]uint16, len(candidates))}
	for b := 0; b < phashBands; b++ {
		idx.buckets[b] = make(map[uint16][]int)
	}
	for i, c := range candidates {
		for b := 0; b < phashBands; b++ {
			key := bandKey(c.phash, b)
			idx.keys[i][b] = key
			idx.buckets[b][key] = append(idx.buckets[b][key], i)
		}
	}
	return idx
}

func bandKey(hash uint64, band int) uint16 {
	shift := uint(band * phashBandBits)
	return uint16(hash >> shift)
}

func (idx *bandIndex) neighbors(i int) []int {
	seen := make(map[int]bool)
	var out []int
	for b := 0; b < phashBands; b++ {
		for _, j := range idx.buckets[b][idx.keys[i][b]] {
			if j != i && !seen[j] {
				seen[j] = true
				out = append(out, j)
			}
		}
	}
	return out
}

type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if uf.rank[ra] < uf.rank[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	if uf.rank[ra] == uf.rank[rb] {
		uf.rank[ra]++
	}
}
