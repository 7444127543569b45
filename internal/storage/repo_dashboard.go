package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type dashboardRepository struct {
	db *sql.DB
}

func (r *dashboardRepository) Create(ctx context.Context, dashboard *Dashboard) error {
	if dashboard == nil {
		return fmt.Errorf("create dashboard: dashboard is nil")
	}
	if dashboard.Name == "" {
		return fmt.Errorf("create dashboard: name is required")
	}

	dashboard.ID = ensureID(dashboard.ID)
	if dashboard.CreatedAt.IsZero() {
		dashboard.CreatedAt = nowUTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO dashboards(id, name, is_default, created_at)
		VALUES(?, ?, ?, ?)
	`, dashboard.ID, dashboard.Name, boolToInt(dashboard.IsDefault), toMillis(dashboard.CreatedAt))
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("create dashboard: %w: id %s", ErrConflict, dashboard.ID)
		}
		return fmt.Errorf("create dashboard: %w", err)
	}
	return nil
}

func (r *dashboardRepository) Get(ctx context.Context, id string) (*Dashboard, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, is_default, created_at
		FROM dashboards
		WHERE id = ?
	`, id)

	dashboard, err := scanDashboard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get dashboard: %w", err)
	}
	return dashboard, nil
}

func (r *dashboardRepository) List(ctx context.Context) ([]Dashboard, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, is_default, created_at
		FROM dashboards
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list dashboards: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []Dashboard{}
	for rows.Next() {
		dashboard, err := scanDashboard(rows)
		if err != nil {
			return nil, fmt.Errorf("list dashboards: scan row: %w", err)
		}
		out = append(out, *dashboard)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list dashboards: iterate: %w", err)
	}
	return out, nil
}

// Put replaces the record stored under dashboard.ID, inserting it when no
// such record exists. A zero CreatedAt keeps the stored creation time; on
// return dashboard.CreatedAt holds the persisted value.
func (r *dashboardRepository) Put(ctx context.Context, dashboard *Dashboard) error {
	if dashboard == nil {
		return fmt.Errorf("put dashboard: dashboard is nil")
	}
	if dashboard.ID == "" {
		return fmt.Errorf("put dashboard: id is required")
	}

	var incoming int64
	if !dashboard.CreatedAt.IsZero() {
		incoming = toMillis(dashboard.CreatedAt)
	}
	inserted := incoming
	if inserted == 0 {
		inserted = toMillis(nowUTC())
	}

	var stored int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO dashboards(id, name, is_default, created_at)
		VALUES(?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			is_default = excluded.is_default,
			created_at = CASE WHEN ? = 0 THEN dashboards.created_at ELSE excluded.created_at END
		RETURNING created_at
	`, dashboard.ID, dashboard.Name, boolToInt(dashboard.IsDefault), inserted, incoming).Scan(&stored)
	if err != nil {
		return fmt.Errorf("put dashboard: %w", err)
	}
	dashboard.CreatedAt = fromMillis(stored)
	return nil
}

// DeleteCascade removes the dashboard and every layout owned by it in one
// transaction and reports how many layouts went with it. A missing dashboard
// still has its dangling layouts removed.
func (r *dashboardRepository) DeleteCascade(ctx context.Context, id string) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("delete dashboard: begin tx: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM dashboards WHERE id = ?`, id); err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("delete dashboard: delete row: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM layouts INDEXED BY idx_layouts_dashboard_id WHERE dashboard_id = ?`, id)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("delete dashboard: delete layouts: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("delete dashboard: rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("delete dashboard: commit: %w", err)
	}
	return int(removed), nil
}

// EnsureDefault returns the first dashboard flagged default, or any dashboard
// when none is flagged, creating a default one named name when the table is
// empty. The bool reports whether a dashboard was created.
func (r *dashboardRepository) EnsureDefault(ctx context.Context, name string) (*Dashboard, bool, error) {
	if name == "" {
		return nil, false, fmt.Errorf("ensure default dashboard: name is required")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("ensure default dashboard: begin tx: %w", err)
	}

	row := tx.QueryRowContext(ctx, `
		SELECT id, name, is_default, created_at
		FROM dashboards
		ORDER BY is_default DESC, created_at ASC, id ASC
		LIMIT 1
	`)
	existing, err := scanDashboard(row)
	switch {
	case err == nil:
		if err := tx.Commit(); err != nil {
			return nil, false, fmt.Errorf("ensure default dashboard: commit: %w", err)
		}
		return existing, false, nil
	case !errors.Is(err, sql.ErrNoRows):
		_ = tx.Rollback()
		return nil, false, fmt.Errorf("ensure default dashboard: lookup: %w", err)
	}

	dashboard := &Dashboard{
		ID:        ensureID(""),
		Name:      name,
		IsDefault: true,
		CreatedAt: nowUTC(),
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO dashboards(id, name, is_default, created_at)
		VALUES(?, ?, ?, ?)
	`, dashboard.ID, dashboard.Name, boolToInt(dashboard.IsDefault), toMillis(dashboard.CreatedAt)); err != nil {
		_ = tx.Rollback()
		return nil, false, fmt.Errorf("ensure default dashboard: insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("ensure default dashboard: commit: %w", err)
	}
	return dashboard, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDashboard(scanner rowScanner) (*Dashboard, error) {
	var (
		dashboard Dashboard
		isDefault int
		createdAt int64
	)
	if err := scanner.Scan(&dashboard.ID, &dashboard.Name, &isDefault, &createdAt); err != nil {
		return nil, err
	}
	dashboard.IsDefault = isDefault != 0
	dashboard.CreatedAt = fromMillis(createdAt)
	return &dashboard, nil
}
