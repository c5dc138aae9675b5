// Package walk implements the Path Walker (spec.md §4.A): a depth-first
// traversal with symlink and mount-crossing policy, dotfile filtering,
// and cooperative cancellation.
package walk

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/mnj/dupdupninja-v2/internal/dderr"
)

// EntryKind discriminates what the walker emits for a given path.
type EntryKind int

const (
	EntryDirectory EntryKind = iota
	EntryFile
	EntrySkipped
)

// Entry is one unit of walk output, per spec.md §4.A's "for each
// directory entry it emits one of: directory to descend, regular file to
// process, skipped with reason."
type Entry struct {
	Path       string
	Kind       EntryKind
	Size       int64
	ModTime    time.Time
	MediaClass MediaClass
	SkipReason string
}

// Options configures traversal policy.
type Options struct {
	// ExcludeDotfiles skips entries whose name begins with "." when true.
	// Default (zero value) is off, per spec.md §4.A.
	ExcludeDotfiles bool
	// CrossMounts allows descending into directories on a different
	// device than the root. Default (zero value) is off, per spec.md §9's
	// Open Question resolution (DESIGN.md).
	CrossMounts bool
}

// EmitFunc receives one Entry at a time. Returning an error aborts the
// walk and propagates the error (used internally for cancellation).
type EmitFunc func(Entry) error

// Walker performs the depth-first traversal described in spec.md §4.A.
type Walker struct{}

// New returns a ready-to-use Walker.
func New() *Walker { return &Walker{} }

// Walk traverses root depth-first, calling emit for every entry.
// The cancel signal is checked at every directory boundary and at least
// every 512 entries within a directory; on cancel, Walk returns a
// dderr.Cancelled error.
func (w *Walker) Walk(ctx context.Context, root string, opts Options, emit EmitFunc) error {
	rootInfo, err := os.Lstat(root)
	if err != nil {
		return dderr.Wrap(dderr.Io, err, "stat root")
	}
	rootDev, hasDev := deviceID(rootInfo)

	return w.walkDir(ctx, root, opts, rootDev, hasDev, emit)
}

func (w *Walker) walkDir(ctx context.Context, dir string, opts Options, rootDev uint64, hasDev bool, emit EmitFunc) error {
	if err := checkCancel(ctx); err != nil {
		return err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		// Permission or transient I/O reading a directory is a skip, not
		// an abort, per spec.md §4.A.
		return emit(Entry{Path: dir, Kind: EntrySkipped, SkipReason: err.Error()})
	}

	// Deterministic order keeps re-scans committing the same sequence,
	// which matters for the "determinism" invariant in spec.md §4.E.
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for i, de := range entries {
		if i > 0 && i%512 == 0 {
			if err := checkCancel(ctx); err != nil {
				return err
			}
		}

		name := de.Name()
		if opts.ExcludeDotfiles && len(name) > 0 && name[0] == '.' {
			continue
		}

		path := filepath.Join(dir, name)
		info, err := de.Info()
		if err != nil {
			if err := emit(Entry{Path: path, Kind: EntrySkipped, SkipReason: err.Error()}); err != nil {
				return err
			}
			continue
		}

		if info.Mode()&os.ModeSymlink != 0 {
			// Policy: do not follow symbolic links to directories. A
			// symlink to a regular file is also skipped, since resolving
			// its target correctly (and re-checking mount/cycle policy)
			// is out of scope for this walker.
			if err := emit(Entry{Path: path, Kind: EntrySkipped, SkipReason: "symlink not followed"}); err != nil {
				return err
			}
			continue
		}

		if info.IsDir() {
			if hasDev && !opts.CrossMounts {
				if dev, ok := deviceID(info); ok && dev != rootDev {
					if err := emit(Entry{Path: path, Kind: EntrySkipped, SkipReason: "different mount point"}); err != nil {
						return err
					}
					continue
				}
			}
			if err := emit(Entry{Path: path, Kind: EntryDirectory}); err != nil {
				return err
			}
			if err := w.walkDir(ctx, path, opts, rootDev, hasDev, emit); err != nil {
				return err
			}
			if err := checkCancel(ctx); err != nil {
				return err
			}
			continue
		}

		if !info.Mode().IsRegular() {
			if err := emit(Entry{Path: path, Kind: EntrySkipped, SkipReason: "not a regular file"}); err != nil {
				return err
			}
			continue
		}

		if err := emit(Entry{
			Path:       path,
			Kind:       EntryFile,
			Size:       info.Size(),
			ModTime:    info.ModTime(),
			MediaClass: ClassifyByExtension(name),
		}); err != nil {
			return err
		}
	}

	return nil
}

func checkCancel(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return dderr.Wrap(dderr.Cancelled, ctx.Err(), "walk cancelled")
	default:
		return nil
	}
}

func deviceID(info os.FileInfo) (uint64, bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, false
	}
	return uint64(st.Dev), true
}
