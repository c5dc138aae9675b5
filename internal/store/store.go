// Package store implements the Fileset Store (spec.md §4.F): the SQLite
// schema, migrations, and write batching behind a single-writer
// invariant.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/mnj/dupdupninja-v2/internal/dderr"
	_ "modernc.org/sqlite"
)

// Store wraps a fileset database. All mutating methods are safe for
// concurrent use via mu, mirroring internal/store.SQLiteStore's
// sync.RWMutex in the teacher repo; spec.md's single-writer invariant
// additionally expects callers to route scan ingest through one
// goroutine (internal/scan's writer), which this type does not itself
// enforce beyond serializing at the mutex.
type Store struct {
	db       *sql.DB
	path     string
	mu       sync.RWMutex
	lockFile *os.File
}

// Open creates the database if missing, applies PRAGMAs, runs
// migrations, and acquires an advisory lock on the DB file, per
// spec.md §4.F and §5. A second Open on the same path returns
// dderr.DbLocked.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, dderr.New(dderr.InvalidArgument, "empty database path")
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, dderr.Wrap(dderr.DbOpen, err, "create database directory")
		}
	}

	lockFile, err := acquireLock(path)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		lockFile.Close()
		return nil, dderr.Wrap(dderr.DbOpen, err, "open database")
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			lockFile.Close()
			return nil, dderr.Wrap(dderr.DbOpen, err, "apply pragma: "+p)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		lockFile.Close()
		return nil, dderr.Wrap(dderr.DbOpen, err, "create schema")
	}

	if err := migrate(db); err != nil {
		db.Close()
		lockFile.Close()
		return nil, err
	}

	return &Store{db: db, path: path, lockFile: lockFile}, nil
}

// migrate ensures fileset_meta exists (creating it at version
// currentSchemaVersion if absent) and fails with dderr.DbMigrate if an
// existing fileset is newer than this code understands, per spec.md §6.
func migrate(db *sql.DB) error {
	var version int
	err := db.QueryRow("SELECT schema_version FROM fileset_meta WHERE rowid = 1").Scan(&version)
	if err == sql.ErrNoRows {
		_, err = db.Exec(
			"INSERT INTO fileset_meta (rowid, name, description, notes, status, schema_version) VALUES (1, '', '', '', 'new', ?)",
			currentSchemaVersion,
		)
		if err != nil {
			return dderr.Wrap(dderr.DbMigrate, err, "initialize fileset_meta")
		}
		return nil
	}
	if err != nil {
		return dderr.Wrap(dderr.DbMigrate, err, "read schema version")
	}
	if version > currentSchemaVersion {
		return dderr.New(dderr.DbMigrate, fmt.Sprintf("fileset schema version %d is newer than supported version %d", version, currentSchemaVersion))
	}
	// No ALTER TABLE migrations exist yet at schema version 1; future
	// versions add `if version < N { ... }` steps here inside a single
	// transaction, following internal/store/sqlite.go's migration chain
	// in the teacher repo.
	return nil
}

func acquireLock(path string) (*os.File, error) {
	lockPath := path + ".lock"
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, dderr.Wrap(dderr.DbOpen, err, "open lock file")
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		return nil, dderr.Wrap(dderr.DbLocked, err, "fileset already open by another engine")
	}
	return f, nil
}

// Close releases the advisory lock and closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Close()
	if s.lockFile != nil {
		syscall.Flock(int(s.lockFile.Fd()), syscall.LOCK_UN)
		s.lockFile.Close()
		os.Remove(s.path + ".lock")
	}
	return err
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }
