package layoutstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/amanthanvi/dashkeep/internal/storage"
)

// ListDashboards returns every stored dashboard. The order carries no
// meaning; an empty store yields an empty, non-nil slice.
func (s *Store) ListDashboards(ctx context.Context) ([]Dashboard, error) {
	backend, release, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	dashboards, err := backend.Dashboards.List(ctx)
	if err != nil {
		return nil, storageErr("list dashboards", err)
	}
	return dashboards, nil
}

func (s *Store) GetDashboard(ctx context.Context, id string) (Dashboard, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Dashboard{}, fmt.Errorf("%w: dashboard id is required", ErrValidation)
	}
	backend, release, err := s.conn(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	defer release()
	dashboard, err := backend.Dashboards.Get(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Dashboard{}, fmt.Errorf("%w: dashboard %s", ErrNotFound, id)
		}
		return Dashboard{}, storageErr("get dashboard", err)
	}
	return *dashboard, nil
}

func (s *Store) CreateDashboard(ctx context.Context, name string, isDefault bool) (Dashboard, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Dashboard{}, fmt.Errorf("%w: dashboard name is required", ErrValidation)
	}
	backend, release, err := s.conn(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	defer release()

	dashboard := &Dashboard{Name: name, IsDefault: isDefault}
	if err := backend.Dashboards.Create(ctx, dashboard); err != nil {
		return Dashboard{}, storageErr("create dashboard", err)
	}
	s.logger.Info("dashboard created", "dashboard_id", dashboard.ID, "is_default", dashboard.IsDefault)
	return *dashboard, nil
}

// UpdateDashboard replaces the record stored under dashboard.ID. There is no
// existence check: an unknown id is inserted as a new dashboard.
func (s *Store) UpdateDashboard(ctx context.Context, dashboard Dashboard) error {
	if strings.TrimSpace(dashboard.ID) == "" {
		return fmt.Errorf("%w: dashboard id is required", ErrValidation)
	}
	backend, release, err := s.conn(ctx)
	if err != nil {
		return err
	}
	defer release()
	if err := backend.Dashboards.Put(ctx, &dashboard); err != nil {
		return storageErr("update dashboard", err)
	}
	s.logger.Debug("dashboard updated", "dashboard_id", dashboard.ID, "is_default", dashboard.IsDefault)
	return nil
}

// DeleteDashboard removes the dashboard and every layout it owns in a single
// transaction. Either both go or neither does.
func (s *Store) DeleteDashboard(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: dashboard id is required", ErrValidation)
	}
	backend, release, err := s.conn(ctx)
	if err != nil {
		return err
	}
	defer release()
	removed, err := backend.Dashboards.DeleteCascade(ctx, id)
	if err != nil {
		return storageErr("delete dashboard", err)
	}
	s.logger.Info("dashboard deleted", "dashboard_id", id, "removed_layouts", removed)
	return nil
}

// InitializeDefaultDashboard guarantees a usable dashboard. On an empty store
// it creates one flagged default; otherwise it returns the first flagged
// dashboard, or any dashboard when none is flagged.
func (s *Store) InitializeDefaultDashboard(ctx context.Context) (Dashboard, error) {
	backend, release, err := s.conn(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	defer release()
	dashboard, created, err := backend.Dashboards.EnsureDefault(ctx, s.opts.DefaultDashboardName)
	if err != nil {
		return Dashboard{}, storageErr("initialize default dashboard", err)
	}
	if created {
		s.logger.Info("default dashboard created", "dashboard_id", dashboard.ID)
	}
	return *dashboard, nil
}
