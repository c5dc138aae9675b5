// Package dderr defines the error kinds surfaced across the scan engine
// and the stable boundary.
package dderr

import (
	"errors"
	"fmt"
)

// Kind classifies an error the way the ABI status layer needs to
// discriminate it.
type Kind int

const (
	// Internal marks a writer-thread panic or invariant violation.
	Internal Kind = iota
	// Cancelled marks a user-initiated cancellation.
	Cancelled
	// Io marks a filesystem open/read/stat/permission failure.
	Io
	// Decode marks a media payload that could not be decoded.
	Decode
	// DbOpen marks a fileset database that could not be opened or created.
	DbOpen
	// DbMigrate marks a schema mismatch or failed migration.
	DbMigrate
	// DbLocked marks contention on the fileset's advisory lock.
	DbLocked
	// InvalidArgument marks a null/empty path or an impossible option value.
	InvalidArgument
)

func (k Kind) String() string {
	switch k {
	case Cancelled:
		return "Cancelled"
	case Io:
		return "Io"
	case Decode:
		return "Decode"
	case DbOpen:
		return "DbOpen"
	case DbMigrate:
		return "DbMigrate"
	case DbLocked:
		return "DbLocked"
	case InvalidArgument:
		return "InvalidArgument"
	default:
		return "Internal"
	}
}

// Error is a kinded error. Kind drives the fatal/isolated policy in
// internal/scan and the status code at the stable boundary.
type Error struct {
	Kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

func (e *Error) Unwrap() error { return e.err }

// New builds a kinded error with no underlying cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, msg: msg}
}

// Wrap builds a kinded error wrapping an underlying cause.
func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, msg: msg, err: err}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, defaulting to Internal for plain
// errors that were never classified.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return Internal
}

// IsPerFileIsolated reports whether errors of this kind should be
// isolated to the offending file (per spec.md §7) rather than aborting
// the scan.
func IsPerFileIsolated(kind Kind) bool {
	return kind == Io || kind == Decode
}
