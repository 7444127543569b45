package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const (
	defaultBusyTimeout  = 5 * time.Second
	defaultMaxOpenConns = 8
)

type Options struct {
	BusyTimeout  time.Duration
	MaxOpenConns int
}

type Store struct {
	db   *sql.DB
	path string

	Dashboards DashboardRepository
	Layouts    LayoutRepository
}

func Open(ctx context.Context, path string, opts Options) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("open storage: empty path")
	}
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = defaultBusyTimeout
	}
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = defaultMaxOpenConns
	}

	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("open storage: create parent dir: %w", err)
	}

	db, err := sql.Open("sqlite", buildDSN(path, opts))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxOpenConns)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open storage: ping: %w", err)
	}

	if err := RunMigrations(db, DefaultMigrations()); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := ensureDBPermissions(path); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		db:         db,
		path:       path,
		Dashboards: &dashboardRepository{db: db},
		Layouts:    &layoutRepository{db: db},
	}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) DB() *sql.DB {
	if s == nil {
		return nil
	}
	return s.db
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

type Stats struct {
	SchemaVersion int
	Dashboards    int
	Layouts       int
}

// Stats reports the schema version and row counts. The three reads are not
// taken from one snapshot.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	var versionStr string
	if err := s.db.QueryRowContext(ctx, `SELECT value FROM store_meta WHERE key = ?`, schemaVersionMetaKey).Scan(&versionStr); err != nil {
		return Stats{}, fmt.Errorf("stats: read schema version: %w", err)
	}
	version, err := strconv.Atoi(versionStr)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: parse schema version %q: %w", versionStr, err)
	}
	stats.SchemaVersion = version

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dashboards`).Scan(&stats.Dashboards); err != nil {
		return Stats{}, fmt.Errorf("stats: count dashboards: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM layouts`).Scan(&stats.Layouts); err != nil {
		return Stats{}, fmt.Errorf("stats: count layouts: %w", err)
	}
	return stats, nil
}

// buildDSN sets the pragmas through the DSN so that every pooled connection
// gets them, not only the first one. Write transactions start IMMEDIATE so a
// read-then-write sequence holds the write lock from its first statement.
func buildDSN(path string, opts Options) string {
	params := url.Values{}
	params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", opts.BusyTimeout.Milliseconds()))
	params.Add("_pragma", "journal_mode(WAL)")
	params.Add("_pragma", "synchronous(NORMAL)")
	params.Set("_txlock", "immediate")
	return "file:" + path + "?" + params.Encode()
}

func ensureDBPermissions(path string) error {
	if err := os.Chmod(path, 0o600); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("set db file permissions: %w", err)
		}
	}

	walPath := path + "-wal"
	if err := os.Chmod(walPath, 0o600); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("set wal file permissions: %w", err)
		}
	}
	return nil
}

func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
