package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// One row per run of the frame loop, with the parameters it ran under.
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			model_path TEXT NOT NULL,
			stable_frames INTEGER NOT NULL,
			interval_ms INTEGER NOT NULL,
			magnitude INTEGER NOT NULL,
			dispatch TEXT NOT NULL DEFAULT '',
			frames INTEGER NOT NULL DEFAULT 0,
			started_at DATETIME NOT NULL,
			ended_at DATETIME
		)`,

		// One row per fired scroll action.
		`CREATE TABLE IF NOT EXISTS scroll_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			status TEXT NOT NULL CHECK(status IN ('OPEN', 'FIST')),
			class INTEGER NOT NULL,
			amount INTEGER NOT NULL,
			run_length INTEGER NOT NULL,
			dispatch_error TEXT NOT NULL DEFAULT '',
			fired_at DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_scroll_events_session_id ON scroll_events(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_scroll_events_fired_at ON scroll_events(fired_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
