package store

import "fmt"

// migrations are applied in order. The schema version is the number of
// applied entries, kept in PRAGMA user_version. Append only.
var migrations = []string{
	`CREATE TABLE sessions (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		ended_at DATETIME
	)`,

	`CREATE TABLE burst_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		burst_id TEXT NOT NULL,
		gesture TEXT NOT NULL CHECK(gesture IN ('neck', 'arms', 'legs')),
		level INTEGER NOT NULL,
		completed_at DATETIME NOT NULL
	)`,

	`CREATE TABLE reports (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		reason TEXT NOT NULL,
		level INTEGER NOT NULL,
		label TEXT NOT NULL,
		mmss TEXT NOT NULL,
		action_type TEXT NOT NULL,
		action_count INTEGER NOT NULL,
		waiting_pct INTEGER NOT NULL,
		total_bursts INTEGER NOT NULL,
		shot_path TEXT NOT NULL DEFAULT '',
		shot_url TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE INDEX idx_burst_events_session_id ON burst_events(session_id)`,
	`CREATE INDEX idx_reports_session_id ON reports(session_id)`,
	`CREATE INDEX idx_reports_created_at ON reports(created_at)`,
}

// SchemaVersion returns the number of migrations applied to the database.
func (s *Store) SchemaVersion() (int, error) {
	var v int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		return 0, err
	}
	return v, nil
}

// runMigrations applies the migrations the database has not seen yet, each
// in its own transaction together with the version bump.
func (s *Store) runMigrations() error {
	current, err := s.SchemaVersion()
	if err != nil {
		return err
	}
	if current > len(migrations) {
		return fmt.Errorf("database schema version %d is newer than this build (%d)", current, len(migrations))
	}

	for i := current; i < len(migrations); i++ {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(migrations[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		// PRAGMA does not take bound parameters.
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}
