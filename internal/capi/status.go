// Package capi implements the Stable Boundary's pure-Go side (spec.md
// §4.H): engine/cancel-token handle tables, status codes, and the
// query/scan entry points that cmd/libdupdupninja's cgo shim calls into.
// Nothing here imports "C" — that split keeps the handle-table and
// business logic testable with `go test`, with only the thin marshaling
// layer living behind cgo.
package capi

// Status mirrors the ABI's status enum (spec.md §4.H).
type Status int32

const (
	StatusOk              Status = 0
	StatusError           Status = 1
	StatusInvalidArgument Status = 2
	StatusNullPointer     Status = 3
)

func (s Status) String() string {
	switch s {
	case StatusOk:
		return "Ok"
	case StatusError:
		return "Error"
	case StatusInvalidArgument:
		return "InvalidArgument"
	case StatusNullPointer:
		return "NullPointer"
	default:
		return "Unknown"
	}
}
