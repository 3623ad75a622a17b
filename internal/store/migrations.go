package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Settings table - user-facing settings as key / JSON value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// Calibrations table - one baseline per camera role
		`CREATE TABLE IF NOT EXISTS calibrations (
			role TEXT PRIMARY KEY CHECK(role IN ('front', 'side')),
			id TEXT NOT NULL UNIQUE,
			means TEXT NOT NULL,
			stddevs TEXT NOT NULL DEFAULT '{}',
			samples INTEGER NOT NULL DEFAULT 0,
			version INTEGER NOT NULL DEFAULT 1,
			calibrated_at DATETIME NOT NULL
		)`,

		// Checks table - recent evaluation results, newest kept
		`CREATE TABLE IF NOT EXISTS checks (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			score INTEGER,
			status TEXT NOT NULL,
			breakdown TEXT NOT NULL DEFAULT '[]',
			created_at DATETIME NOT NULL
		)`,

		// Daily summaries table - aggregated per local calendar day
		`CREATE TABLE IF NOT EXISTS daily_summaries (
			date TEXT PRIMARY KEY,
			total_checks INTEGER NOT NULL DEFAULT 0,
			good_checks INTEGER NOT NULL DEFAULT 0,
			fair_checks INTEGER NOT NULL DEFAULT 0,
			poor_checks INTEGER NOT NULL DEFAULT 0,
			total_score INTEGER NOT NULL DEFAULT 0,
			average_score INTEGER NOT NULL DEFAULT 0,
			longest_good_streak_minutes INTEGER NOT NULL DEFAULT 0,
			alerts_sent INTEGER NOT NULL DEFAULT 0,
			self_corrections INTEGER NOT NULL DEFAULT 0,
			hourly_scores TEXT NOT NULL DEFAULT '{}',
			hourly_counts TEXT NOT NULL DEFAULT '{}'
		)`,

		// Session table - single row of rolling monitor state
		`CREATE TABLE IF NOT EXISTS session (
			id INTEGER PRIMARY KEY CHECK(id = 1),
			started_at DATETIME,
			consecutive_poor INTEGER NOT NULL DEFAULT 0,
			streak_kind TEXT NOT NULL DEFAULT '',
			streak_started_at DATETIME,
			last_score INTEGER,
			last_status TEXT NOT NULL DEFAULT '',
			last_check_at DATETIME,
			snoozed_until DATETIME
		)`,

		// Indexes for better query performance
		`CREATE INDEX IF NOT EXISTS idx_checks_created_at ON checks(created_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
