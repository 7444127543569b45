package layoutstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/amanthanvi/dashkeep/internal/storage"
)

// SaveLayout stores cells for the (dashboardID, navigationPath) pair. An
// existing record for the pair keeps its id; otherwise a new one is
// allocated. Lookup and write share one transaction, so concurrent saves of
// the same pair still leave exactly one record.
func (s *Store) SaveLayout(ctx context.Context, dashboardID, navigationPath string, cells []GridCell) (LayoutRecord, error) {
	if strings.TrimSpace(dashboardID) == "" {
		return LayoutRecord{}, fmt.Errorf("%w: dashboard id is required", ErrValidation)
	}
	backend, release, err := s.conn(ctx)
	if err != nil {
		return LayoutRecord{}, err
	}
	defer release()

	record := &LayoutRecord{
		DashboardID:    dashboardID,
		NavigationPath: navigationPath,
		Layout:         cells,
	}
	if err := backend.Layouts.Upsert(ctx, record); err != nil {
		return LayoutRecord{}, storageErr("save layout", err)
	}
	s.logger.Debug("layout saved",
		"dashboard_id", dashboardID,
		"navigation_path", navigationPath,
		"layout_id", record.ID,
		"cells", len(record.Layout),
	)
	return *record, nil
}

// ResetLayout clears the layout saved for the pair by storing an empty cell
// sequence in its place.
func (s *Store) ResetLayout(ctx context.Context, dashboardID, navigationPath string) (LayoutRecord, error) {
	return s.SaveLayout(ctx, dashboardID, navigationPath, []GridCell{})
}

// GetLayout returns the cells saved for the pair. found is false when nothing
// was ever saved for it.
func (s *Store) GetLayout(ctx context.Context, dashboardID, navigationPath string) (cells []GridCell, found bool, err error) {
	backend, release, err := s.conn(ctx)
	if err != nil {
		return nil, false, err
	}
	defer release()
	record, err := backend.Layouts.Get(ctx, dashboardID, navigationPath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, storageErr("get layout", err)
	}
	return record.Layout, true, nil
}

func (s *Store) GetAllLayoutsForDashboard(ctx context.Context, dashboardID string) ([]LayoutRecord, error) {
	backend, release, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	records, err := backend.Layouts.ListByDashboard(ctx, dashboardID)
	if err != nil {
		return nil, storageErr("list layouts for dashboard", err)
	}
	return records, nil
}
