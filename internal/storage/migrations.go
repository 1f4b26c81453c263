package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// Migration represents a database migration.
type Migration struct {
	Version int
	Name    string
	Up      string
}

// migrations holds all database migrations in order.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up: `
			-- Users table. Project membership is a JSON-encoded id array.
			CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				display_name TEXT NOT NULL,
				email TEXT UNIQUE NOT NULL,
				password_hash TEXT NOT NULL,
				role TEXT NOT NULL DEFAULT 'user',
				projects TEXT NOT NULL DEFAULT '[]',
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL,
				last_login DATETIME
			);

			-- Projects table. Members, admins and settings are JSON columns.
			CREATE TABLE IF NOT EXISTS projects (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				description TEXT,
				owner TEXT NOT NULL DEFAULT '',
				members TEXT NOT NULL DEFAULT '[]',
				admins TEXT NOT NULL DEFAULT '[]',
				settings TEXT NOT NULL DEFAULT '{}',
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);

			-- Tickets table. parent_task is nulled when the parent is deleted.
			CREATE TABLE IF NOT EXISTS tickets (
				id TEXT PRIMARY KEY,
				project TEXT NOT NULL REFERENCES projects(id),
				title TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				assignee TEXT NOT NULL DEFAULT '',
				category TEXT NOT NULL DEFAULT '',
				priority TEXT NOT NULL DEFAULT 'medium',
				status TEXT NOT NULL DEFAULT 'todo',
				progress INTEGER NOT NULL DEFAULT 0,
				start_date TEXT,
				due_date TEXT,
				estimated_hours REAL NOT NULL DEFAULT 0,
				actual_hours REAL NOT NULL DEFAULT 0,
				tags TEXT NOT NULL DEFAULT '[]',
				parent_task TEXT REFERENCES tickets(id) ON DELETE SET NULL,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);

			-- Application settings, single row.
			CREATE TABLE IF NOT EXISTS app_settings (
				id INTEGER PRIMARY KEY CHECK (id = 1),
				data TEXT NOT NULL,
				updated_at DATETIME NOT NULL
			);

			-- Title uniqueness is scoped to the project.
			CREATE UNIQUE INDEX IF NOT EXISTS idx_tickets_project_title ON tickets(project, title);
			CREATE INDEX IF NOT EXISTS idx_tickets_project ON tickets(project);
			CREATE INDEX IF NOT EXISTS idx_tickets_assignee ON tickets(assignee);
			CREATE INDEX IF NOT EXISTS idx_tickets_parent ON tickets(parent_task);
			CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

			-- Keep updated_at current on direct ticket updates.
			CREATE TRIGGER IF NOT EXISTS tickets_touch_updated_at
			AFTER UPDATE OF project, title, description, assignee, category,
				priority, status, progress, start_date, due_date,
				estimated_hours, actual_hours, tags, parent_task
			ON tickets
			FOR EACH ROW
			BEGIN
				UPDATE tickets SET updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
				WHERE id = NEW.id;
			END;
		`,
	},
}

// runMigrations applies all pending migrations.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var currentVersion int
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("get current version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= currentVersion {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction for migration %d: %w", m.Version, err)
		}

		_, err = tx.Exec(m.Up)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d (%s): %w", m.Version, m.Name, err)
		}

		_, err = tx.Exec(
			"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Name, time.Now(),
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}
