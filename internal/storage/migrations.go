package storage

import (
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"time"
)

const schemaVersionMetaKey = "schema_version"

type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

var defaultMigrations = []Migration{
	{
		Version:     1,
		Description: "create dashboards and layouts",
		Up: func(tx *sql.Tx) error {
			statements := []string{
				`CREATE TABLE IF NOT EXISTS dashboards (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					is_default INTEGER NOT NULL DEFAULT 0,
					created_at INTEGER NOT NULL
				)`,
				// dashboard_id has no foreign key: layouts may
				// dangle until the owning dashboard's cascade removes them.
				`CREATE TABLE IF NOT EXISTS layouts (
					id TEXT PRIMARY KEY,
					dashboard_id TEXT NOT NULL,
					navigation_path TEXT NOT NULL,
					layout TEXT NOT NULL,
					timestamp INTEGER NOT NULL
				)`,
				`CREATE INDEX IF NOT EXISTS idx_layouts_dashboard_id ON layouts(dashboard_id)`,
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_layouts_dashboard_path ON layouts(dashboard_id, navigation_path)`,
			}
			for _, stmt := range statements {
				if _, err := tx.Exec(stmt); err != nil {
					return fmt.Errorf("apply migration v1 statement: %w", err)
				}
			}
			return nil
		},
	},
}

func DefaultMigrations() []Migration {
	out := make([]Migration, len(defaultMigrations))
	copy(out, defaultMigrations)
	return out
}

func CurrentSchemaVersion() int {
	return maxMigrationVersion(defaultMigrations)
}

func RunMigrations(db *sql.DB, migrations []Migration) error {
	if db == nil {
		return fmt.Errorf("run migrations: db is nil")
	}

	if err := ensureMigrationTables(db); err != nil {
		return err
	}

	ordered := make([]Migration, len(migrations))
	copy(ordered, migrations)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Version < ordered[j].Version })

	current, err := readSchemaVersion(db)
	if err != nil {
		return err
	}

	maxVersion := maxMigrationVersion(ordered)
	if current > maxVersion {
		return fmt.Errorf("%w: db=%d code=%d", ErrSchemaTooNew, current, maxVersion)
	}

	for _, migration := range ordered {
		if migration.Version <= current {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration v%d: %w", migration.Version, err)
		}

		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration v%d (%s): %w", migration.Version, migration.Description, err)
		}

		if _, err := tx.Exec(`INSERT OR REPLACE INTO schema_migrations(version, applied_at) VALUES (?, ?)`, migration.Version, time.Now().UTC().UnixMilli()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record schema migration v%d: %w", migration.Version, err)
		}

		if _, err := tx.Exec(`INSERT OR REPLACE INTO store_meta(key, value) VALUES(?, ?)`, schemaVersionMetaKey, strconv.Itoa(migration.Version)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("update schema version v%d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", migration.Version, err)
		}
	}

	return nil
}

func ensureMigrationTables(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS store_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at INTEGER NOT NULL
		)`,
		`INSERT OR IGNORE INTO store_meta(key, value) VALUES('` + schemaVersionMetaKey + `', '0')`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("ensure migration tables: %w", err)
		}
	}
	return nil
}

func readSchemaVersion(db *sql.DB) (int, error) {
	var versionStr string
	if err := db.QueryRow(`SELECT value FROM store_meta WHERE key = ?`, schemaVersionMetaKey).Scan(&versionStr); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	version, err := strconv.Atoi(versionStr)
	if err != nil {
		return 0, fmt.Errorf("parse schema version %q: %w", versionStr, err)
	}
	return version, nil
}

func maxMigrationVersion(migrations []Migration) int {
	max := 0
	for _, migration := range migrations {
		if migration.Version > max {
			max = migration.Version
		}
	}
	return max
}
