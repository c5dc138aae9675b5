package capi

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/mnj/dupdupninja-v2/internal/dderr"
	"github.com/mnj/dupdupninja-v2/internal/dupconfig"
	"github.com/mnj/dupdupninja-v2/internal/scan"
	"github.com/mnj/dupdupninja-v2/internal/video"
)

// Handle identifies an Engine or CancelToken in the process-wide handle
// table. Exported ABI functions hand these out as opaque integers
// instead of Go pointers, since cgo forbids storing a Go pointer to
// Go-managed memory in C memory.
type Handle int64

var nextHandle int64

func allocHandle() Handle {
	return Handle(atomic.AddInt64(&nextHandle, 1))
}

// Engine is the ABI's opaque Engine: it enforces spec.md §5's
// single-concurrent-scan-per-handle rule and holds the last error
// message for calls made against this handle.
type Engine struct {
	handle Handle

	mu       sync.Mutex
	scanning bool

	errMu        sync.Mutex
	lastErrorMsg string
}

var (
	enginesMu sync.RWMutex
	engines   = map[Handle]*Engine{}
)

// NewEngine allocates a fresh Engine handle.
func NewEngine() Handle {
	h := allocHandle()
	enginesMu.Lock()
	engines[h] = &Engine{handle: h}
	enginesMu.Unlock()
	return h
}

// FreeEngine releases an Engine handle, closing every Store it opened
// for scanning (releasing their advisory file locks). Freeing an unknown
// or already-freed handle is a no-op, matching the ABI's "handles are
// allocated and freed only by matching constructor/destructor entry
// points" contract loosely enough to tolerate a double-free from C
// callers without crashing the process.
func FreeEngine(h Handle) {
	enginesMu.Lock()
	_, ok := engines[h]
	delete(engines, h)
	enginesMu.Unlock()
	if ok {
		releaseEngineStores(h)
	}
}

func lookupEngine(h Handle) *Engine {
	enginesMu.RLock()
	defer enginesMu.RUnlock()
	return engines[h]
}

// beginScan marks e as scanning, returning false if a scan is already
// in progress on this handle.
func (e *Engine) beginScan() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.scanning {
		return false
	}
	e.scanning = true
	return true
}

func (e *Engine) endScan() {
	e.mu.Lock()
	e.scanning = false
	e.mu.Unlock()
}

func (e *Engine) setLastError(err error) {
	e.errMu.Lock()
	defer e.errMu.Unlock()
	if err == nil {
		e.lastErrorMsg = ""
		return
	}
	e.lastErrorMsg = err.Error()
}

// LastErrorMessage returns the most recent error recorded against h, or
// "" if none or h is unknown.
func LastErrorMessage(h Handle) string {
	e := lookupEngine(h)
	if e == nil {
		return ""
	}
	e.errMu.Lock()
	defer e.errMu.Unlock()
	return e.lastErrorMsg
}

// coordinatorFor returns this engine's Coordinator for dbPath, delegating
// to the package store registry so a second Engine handle opening the
// same dbPath genuinely contends for the advisory file lock instead of
// sharing this handle's connection.
func (e *Engine) coordinatorFor(dbPath string, opts dupconfig.EngineOptions, videoSource video.FrameSource) (*scan.Coordinator, error) {
	return coordinatorForEngine(dbPath, e.handle, opts, videoSource)
}

// CancelToken is the ABI's opaque CancelToken: cancel() is idempotent
// and safe from any thread, matching spec.md §5's cancellation contract.
type CancelToken struct {
	ctx    context.Context
	cancel context.CancelFunc
}

var (
	tokensMu sync.RWMutex
	tokens   = map[Handle]*CancelToken{}
)

// NewCancelToken allocates a fresh, uncancelled CancelToken handle.
func NewCancelToken() Handle {
	ctx, cancel := context.WithCancel(context.Background())
	h := allocHandle()
	tokensMu.Lock()
	tokens[h] = &CancelToken{ctx: ctx, cancel: cancel}
	tokensMu.Unlock()
	return h
}

// FreeCancelToken releases a CancelToken handle.
func FreeCancelToken(h Handle) {
	tokensMu.Lock()
	delete(tokens, h)
	tokensMu.Unlock()
}

// CancelTokenCancel cancels h. Idempotent; a no-op on an unknown handle.
func CancelTokenCancel(h Handle) {
	tokensMu.RLock()
	t := tokens[h]
	tokensMu.RUnlock()
	if t != nil {
		t.cancel()
	}
}

// contextFor returns the token's context, or a background context if h
// is zero/unknown (callers may omit a token entirely).
func contextFor(h Handle) context.Context {
	if h == 0 {
		return context.Background()
	}
	tokensMu.RLock()
	t := tokens[h]
	tokensMu.RUnlock()
	if t == nil {
		return context.Background()
	}
	return t.ctx
}

// statusFor maps an error to the ABI status enum, per spec.md §4.H/§7.
func statusFor(err error) Status {
	if err == nil {
		return StatusOk
	}
	switch dderr.KindOf(err) {
	case dderr.InvalidArgument:
		return StatusInvalidArgument
	default:
		return StatusError
	}
}
