package dderr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsMatchesKind(t *testing.T) {
	err := New(DbLocked, "fileset already open")
	if !Is(err, DbLocked) {
		t.Fatalf("expected DbLocked kind")
	}
	if Is(err, Io) {
		t.Fatalf("did not expect Io kind")
	}
}

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("permission denied")
	err := Wrap(Io, cause, "open file")
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause to unwrap")
	}
	if KindOf(err) != Io {
		t.Fatalf("expected Io kind, got %v", KindOf(err))
	}
}

func TestKindOfPlainError(t *testing.T) {
	if KindOf(fmt.Errorf("plain")) != Internal {
		t.Fatalf("expected Internal for unclassified errors")
	}
}

func TestIsPerFileIsolated(t *testing.T) {
	cases := map[Kind]bool{
		Io:              true,
		Decode:          true,
		Cancelled:       false,
		DbOpen:          false,
		DbMigrate:       false,
		DbLocked:        false,
		InvalidArgument: false,
		Internal:        false,
	}
	for kind, want := range cases {
		if got := IsPerFileIsolated(kind); got != want {
			t.Errorf("IsPerFileIsolated(%v) = %v, want %v", kind, got, want)
		}
	}
}
