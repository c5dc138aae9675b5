package capi

import (
	"sync"

	"github.com/mnj/dupdupninja-v2/internal/dupconfig"
	"github.com/mnj/dupdupninja-v2/internal/scan"
	"github.com/mnj/dupdupninja-v2/internal/store"
	"github.com/mnj/dupdupninja-v2/internal/video"
)

// storeEntry is one open *store.Store, shared by every caller that can
// legitimately reuse it without re-flocking: repeated engine-less query
// calls, and repeated calls from whichever Engine handle opened it.
// owner is that Engine's Handle, or 0 if a query call opened it.
type storeEntry struct {
	store       *store.Store
	coordinator *scan.Coordinator
	owner       Handle
}

// storeRegistry keeps at most one *store.Store open per db path for the
// lifetime of its owner, so repeated ABI calls against the same fileset
// reuse its connection and advisory lock rather than reopening (and
// re-flocking) on every query. Entries are never evicted except via
// CloseStore or releaseEngineStores; a process that wants to release a
// fileset's lock must exit or call one of those explicitly.
var (
	storesMu sync.Mutex
	stores   = map[string]*storeEntry{}
)

// openStore implements the ABI's engine-less entry points (spec.md §6's
// fileset_list_rows/fileset_list_exact_groups/fileset_list_similar_groups/
// fileset_list_snapshots_by_path/fileset_get_metadata/fileset_set_metadata/
// fileset_delete_file_by_path — none of which take an engine handle). It
// reuses whatever Store is already open for path, whether a prior query
// call or an active engine scan opened it, since reads may be concurrent
// with the single writer (spec.md §4.F). It only attempts a fresh
// store.Open, acquiring the advisory file lock, when nothing has path
// open yet.
func openStore(path string) (*store.Store, error) {
	storesMu.Lock()
	defer storesMu.Unlock()
	if e, ok := stores[path]; ok {
		return e.store, nil
	}
	s, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	stores[path] = &storeEntry{store: s}
	return s, nil
}

// CloseStore closes and evicts the cached Store for path, if any. It
// exists for tests and for long-lived hosts that want to release a
// fileset's advisory lock without exiting the process.
func CloseStore(path string) error {
	storesMu.Lock()
	e, ok := stores[path]
	delete(stores, path)
	storesMu.Unlock()
	if !ok {
		return nil
	}
	return e.store.Close()
}

// coordinatorForEngine returns engineHandle's Coordinator for path. If
// engineHandle already owns the cached entry for path (it scanned path
// before and hasn't been freed since), the cached Coordinator is reused.
// Otherwise this attempts a genuinely fresh store.Open, even when some
// other owner (a different engine handle, or a prior query call) already
// has path open: store.Open's advisory flock then contends for real, and
// a locked file surfaces as dderr.DbLocked instead of this engine handle
// silently sharing a connection it doesn't own. This is what makes two
// concurrent engine handles against the same `.ddn` behave per
// spec.md:133/181: the second one returns an error.
func coordinatorForEngine(path string, engineHandle Handle, opts dupconfig.EngineOptions, videoSource video.FrameSource) (*scan.Coordinator, error) {
	storesMu.Lock()
	defer storesMu.Unlock()

	if e, ok := stores[path]; ok && e.owner == engineHandle {
		return e.coordinator, nil
	}
	s, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	c := scan.NewCoordinator(s, opts, videoSource)
	stores[path] = &storeEntry{store: s, coordinator: c, owner: engineHandle}
	return c, nil
}

// releaseEngineStores closes and evicts every store entry owned by
// engineHandle, releasing their advisory file locks. Called from
// FreeEngine so a freed handle doesn't hold a fileset locked forever.
func releaseEngineStores(engineHandle Handle) {
	storesMu.Lock()
	var toClose []*store.Store
	for path, e := range stores {
		if e.owner == engineHandle {
			toClose = append(toClose, e.store)
			delete(stores, path)
		}
	}
	storesMu.Unlock()
	for _, s := range toClose {
		_ = s.Close()
	}
}
