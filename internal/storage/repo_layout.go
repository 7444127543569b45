package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type layoutRepository struct {
	db *sql.DB
}

// Upsert writes record under its (DashboardID, NavigationPath) pair. The pair,
// not record.ID, identifies the row: an existing row keeps its id and only
// its layout and timestamp change. record.ID and record.Timestamp are set to
// the stored values on success.
func (r *layoutRepository) Upsert(ctx context.Context, record *LayoutRecord) error {
	if record == nil {
		return fmt.Errorf("upsert layout: record is nil")
	}
	if record.DashboardID == "" {
		return fmt.Errorf("upsert layout: dashboard id is required")
	}

	payload, err := encodeLayout(record.Layout)
	if err != nil {
		return fmt.Errorf("upsert layout: %w", err)
	}
	timestamp := nowUTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("upsert layout: begin tx: %w", err)
	}

	var existingID string
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM layouts INDEXED BY idx_layouts_dashboard_path
		WHERE dashboard_id = ? AND navigation_path = ?
	`, record.DashboardID, record.NavigationPath).Scan(&existingID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		_ = tx.Rollback()
		return fmt.Errorf("upsert layout: lookup: %w", err)
	}

	var storedID string
	err = tx.QueryRowContext(ctx, `
		INSERT INTO layouts(id, dashboard_id, navigation_path, layout, timestamp)
		VALUES(?, ?, ?, ?, ?)
		ON CONFLICT(dashboard_id, navigation_path) DO UPDATE SET
			layout = excluded.layout,
			timestamp = excluded.timestamp
		RETURNING id
	`, ensureID(existingID), record.DashboardID, record.NavigationPath, payload, toMillis(timestamp)).Scan(&storedID)
	if err != nil {
		_ = tx.Rollback()
		if isConstraintViolation(err) {
			return fmt.Errorf("upsert layout: %w: %v", ErrConflict, err)
		}
		return fmt.Errorf("upsert layout: write: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("upsert layout: commit: %w", err)
	}

	record.ID = storedID
	record.Timestamp = timestamp
	if record.Layout == nil {
		record.Layout = []GridCell{}
	}
	return nil
}

func (r *layoutRepository) Get(ctx context.Context, dashboardID, navigationPath string) (*LayoutRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, dashboard_id, navigation_path, layout, timestamp
		FROM layouts INDEXED BY idx_layouts_dashboard_path
		WHERE dashboard_id = ? AND navigation_path = ?
	`, dashboardID, navigationPath)

	record, err := scanLayout(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get layout: %w", err)
	}
	return record, nil
}

func (r *layoutRepository) ListByDashboard(ctx context.Context, dashboardID string) ([]LayoutRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, dashboard_id, navigation_path, layout, timestamp
		FROM layouts INDEXED BY idx_layouts_dashboard_id
		WHERE dashboard_id = ?
	`, dashboardID)
	if err != nil {
		return nil, fmt.Errorf("list layouts by dashboard id: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := []LayoutRecord{}
	for rows.Next() {
		record, err := scanLayout(rows)
		if err != nil {
			return nil, fmt.Errorf("list layouts by dashboard id: scan row: %w", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list layouts by dashboard id: iterate: %w", err)
	}
	return records, nil
}

func scanLayout(scanner rowScanner) (*LayoutRecord, error) {
	var (
		record    LayoutRecord
		payload   string
		timestamp int64
	)
	if err := scanner.Scan(&record.ID, &record.DashboardID, &record.NavigationPath, &payload, &timestamp); err != nil {
		return nil, err
	}
	cells, err := decodeLayout(payload)
	if err != nil {
		return nil, err
	}
	record.Layout = cells
	record.Timestamp = fromMillis(timestamp)
	return &record, nil
}
