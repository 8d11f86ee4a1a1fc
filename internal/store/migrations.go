package store

import "fmt"

// migrations are applied in order. The schema version stored in
// PRAGMA user_version is the number already applied; append, never edit.
var migrations = []string{
	// v1: one row per run through the narrative.
	`CREATE TABLE sessions (
		id TEXT PRIMARY KEY,
		stage TEXT NOT NULL DEFAULT 'INTRO',
		completed INTEGER NOT NULL DEFAULT 0,
		transitions INTEGER NOT NULL DEFAULT 0,
		started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX idx_sessions_started_at ON sessions(started_at);`,

	// v2: every committed state change within a session.
	`CREATE TABLE transitions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		version INTEGER NOT NULL,
		cause TEXT NOT NULL CHECK(cause IN ('gesture', 'timer', 'reset')),
		gesture TEXT NOT NULL DEFAULT 'NONE',
		from_stage TEXT NOT NULL,
		to_stage TEXT NOT NULL,
		color_index INTEGER NOT NULL,
		feedback TEXT NOT NULL DEFAULT '',
		dialogue TEXT NOT NULL DEFAULT '',
		input_locked INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX idx_transitions_session_id ON transitions(session_id);`,
}

// SchemaVersion is the schema version New leaves the database at.
var SchemaVersion = len(migrations)

// migrate applies the migrations the database has not seen yet, each in its
// own transaction together with the version bump.
func (s *Store) migrate() error {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version > len(migrations) {
		return fmt.Errorf("schema version %d is newer than this build (%d)", version, len(migrations))
	}

	for i := version; i < len(migrations); i++ {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(migrations[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		// PRAGMA does not take bind parameters.
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: set version: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: commit: %w", i+1, err)
		}
	}

	return nil
}
