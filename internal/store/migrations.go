package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Profiles table - base thresholds and calibration state per user
		`CREATE TABLE IF NOT EXISTS profiles (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			thresholds TEXT NOT NULL DEFAULT '{}',
			neutral_x REAL,
			neutral_y REAL,
			calibrated TEXT,
			last_calibrated DATETIME,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Sessions table - one adaptation snapshot per session
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			profile_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			started_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			total_actions INTEGER NOT NULL DEFAULT 0,
			accidental_activations INTEGER NOT NULL DEFAULT 0,
			snapshot TEXT NOT NULL
		)`,

		// Rules table - gesture to action bindings, evaluated in position order
		`CREATE TABLE IF NOT EXISTS rules (
			id TEXT PRIMARY KEY,
			profile_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			gesture TEXT NOT NULL,
			action TEXT NOT NULL,
			param TEXT NOT NULL DEFAULT '',
			enabled INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_sessions_profile_started ON sessions(profile_id, started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_rules_profile_position ON rules(profile_id, position)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
