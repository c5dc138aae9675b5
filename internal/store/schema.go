package store

// currentSchemaVersion is the schema version this code writes. Opening a
// database with a newer version fails with dderr.DbMigrate, per
// spec.md §6.
const currentSchemaVersion = 1

// schema is the spec.md §4.F schema, created on first open. Later
// versions extend this via versioned ALTER TABLE chains gated on
// fileset_meta.schema_version, following internal/store/sqlite.go's
// migration-chain shape in the teacher repo.
const schema = `
CREATE TABLE IF NOT EXISTS file (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	path TEXT UNIQUE NOT NULL,
	size_bytes INTEGER NOT NULL,
	file_type TEXT NOT NULL,
	blake3_hex TEXT NOT NULL,
	sha256_hex TEXT NOT NULL,
	mtime_ms INTEGER NOT NULL,
	ingested_at_ms INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS image_hash (
	file_id INTEGER PRIMARY KEY REFERENCES file(id) ON DELETE CASCADE,
	ahash INTEGER,
	dhash INTEGER,
	phash INTEGER,
	width INTEGER,
	height INTEGER
);

CREATE TABLE IF NOT EXISTS snapshot (
	file_id INTEGER REFERENCES file(id) ON DELETE CASCADE,
	idx INTEGER,
	cnt INTEGER,
	at_ms INTEGER,
	duration_ms INTEGER,
	ahash INTEGER,
	dhash INTEGER,
	phash INTEGER,
	PRIMARY KEY (file_id, idx)
);

CREATE TABLE IF NOT EXISTS fileset_meta (
	rowid INTEGER PRIMARY KEY CHECK (rowid = 1),
	name TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'new',
	schema_version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS scan_run (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	root TEXT NOT NULL,
	started_at_ms INTEGER NOT NULL,
	finished_at_ms INTEGER,
	outcome TEXT NOT NULL,
	files_seen INTEGER NOT NULL DEFAULT 0,
	files_hashed INTEGER NOT NULL DEFAULT 0,
	files_skipped INTEGER NOT NULL DEFAULT 0,
	bytes_seen INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_file_blake3 ON file(blake3_hex);
CREATE INDEX IF NOT EXISTS idx_file_sha256 ON file(sha256_hex);
CREATE INDEX IF NOT EXISTS idx_file_size ON file(size_bytes);
CREATE INDEX IF NOT EXISTS idx_image_hash_phash ON image_hash(phash);
CREATE INDEX IF NOT EXISTS idx_snapshot_phash ON snapshot(phash);
`
