package storage

import (
	"database/sql"
	"fmt"
)

// applyMigrations applies all database migrations in order.
func applyMigrations(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("could not enable foreign keys: %w", err)
	}

	if err := createMigrationsTable(db); err != nil {
		return err
	}

	migrations := []struct {
		version int
		name    string
		sql     string
	}{
		{1, "create_players_table", createPlayersTable},
		{2, "create_range_sets_table", createRangeSetsTable},
		{3, "create_sessions_table", createSessionsTable},
		{4, "create_outbox_table", createOutboxTable},
		{5, "create_indices", createIndices},
	}

	for _, m := range migrations {
		applied, err := isMigrationApplied(db, m.version)
		if err != nil {
			return fmt.Errorf("could not check migration %d: %w", m.version, err)
		}

		if applied {
			continue
		}

		if _, err := db.Exec(m.sql); err != nil {
			return fmt.Errorf("could not apply migration %d (%s): %w", m.version, m.name, err)
		}

		if err := recordMigration(db, m.version, m.name); err != nil {
			return fmt.Errorf("could not record migration %d: %w", m.version, err)
		}
	}

	return nil
}

// createMigrationsTable creates the migrations tracking table.
func createMigrationsTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

// isMigrationApplied checks if a migration has been applied.
func isMigrationApplied(db *sql.DB, version int) (bool, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM migrations WHERE version = ?", version).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// recordMigration records that a migration has been applied.
func recordMigration(db *sql.DB, version int, name string) error {
	_, err := db.Exec("INSERT INTO migrations (version, name) VALUES (?, ?)", version, name)
	return err
}

// Migration SQL statements

const createPlayersTable = `
CREATE TABLE players (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	color TEXT,
	notes TEXT,
	note_entries TEXT,
	locations TEXT,
	range_version INTEGER NOT NULL DEFAULT 0,
	is_shared INTEGER NOT NULL DEFAULT 0,
	created_by TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
)
`

const createRangeSetsTable = `
CREATE TABLE range_sets (
	player_id TEXT PRIMARY KEY,
	data TEXT NOT NULL,
	FOREIGN KEY (player_id) REFERENCES players(id) ON DELETE CASCADE
)
`

const createSessionsTable = `
CREATE TABLE sessions (
	id TEXT PRIMARY KEY,
	venue TEXT,
	stakes TEXT,
	game_type TEXT,
	is_active INTEGER NOT NULL DEFAULT 0,
	started_at TEXT NOT NULL,
	ended_at TEXT,
	table_state TEXT,
	updated_at TEXT NOT NULL
)
`

const createOutboxTable = `
CREATE TABLE outbox (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	collection TEXT NOT NULL,
	operation TEXT NOT NULL,
	target_id TEXT NOT NULL,
	data TEXT,
	timestamp TEXT NOT NULL
)
`

const createIndices = `
CREATE INDEX idx_outbox_target ON outbox(collection, target_id);
CREATE INDEX idx_sessions_active ON sessions(is_active);
CREATE INDEX idx_players_name ON players(name)
`
