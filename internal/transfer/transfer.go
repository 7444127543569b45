// Package transfer moves a single dashboard and its layouts in and out of the
// store as a versioned JSON bundle.
package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/amanthanvi/dashkeep/internal/layoutstore"
	"github.com/natefinch/atomic"
)

const BundleVersion = 1

// Store is the subset of the layout store the transfer service needs.
type Store interface {
	GetDashboard(ctx context.Context, id string) (layoutstore.Dashboard, error)
	CreateDashboard(ctx context.Context, name string, isDefault bool) (layoutstore.Dashboard, error)
	SaveLayout(ctx context.Context, dashboardID, navigationPath string, cells []layoutstore.GridCell) (layoutstore.LayoutRecord, error)
	GetAllLayoutsForDashboard(ctx context.Context, dashboardID string) ([]layoutstore.LayoutRecord, error)
}

type Bundle struct {
	Version   int             `json:"version"`
	Dashboard ExportDashboard `json:"dashboard"`
	Layouts   []ExportLayout  `json:"layouts"`
}

type ExportDashboard struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"isDefault"`
	CreatedAt int64  `json:"createdAt"`
}

type ExportLayout struct {
	NavigationPath string                 `json:"navigationPath"`
	Layout         []layoutstore.GridCell `json:"layout"`
	Timestamp      int64                  `json:"timestamp"`
}

type ImportResult struct {
	Dashboard layoutstore.Dashboard
	Layouts   int
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) Export(ctx context.Context, dashboardID string) (Bundle, error) {
	if s == nil || s.store == nil {
		return Bundle{}, fmt.Errorf("export: store is nil")
	}

	dashboard, err := s.store.GetDashboard(ctx, dashboardID)
	if err != nil {
		return Bundle{}, fmt.Errorf("export: %w", err)
	}
	records, err := s.store.GetAllLayoutsForDashboard(ctx, dashboard.ID)
	if err != nil {
		return Bundle{}, fmt.Errorf("export: %w", err)
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].NavigationPath < records[j].NavigationPath
	})

	bundle := Bundle{
		Version: BundleVersion,
		Dashboard: ExportDashboard{
			ID:        dashboard.ID,
			Name:      dashboard.Name,
			IsDefault: dashboard.IsDefault,
			CreatedAt: dashboard.CreatedAt.UnixMilli(),
		},
		Layouts: make([]ExportLayout, 0, len(records)),
	}
	for _, record := range records {
		cells := record.Layout
		if cells == nil {
			cells = []layoutstore.GridCell{}
		}
		bundle.Layouts = append(bundle.Layouts, ExportLayout{
			NavigationPath: record.NavigationPath,
			Layout:         cells,
			Timestamp:      record.Timestamp.UnixMilli(),
		})
	}
	return bundle, nil
}

func (s *Service) ExportJSON(ctx context.Context, dashboardID string) ([]byte, error) {
	bundle, err := s.Export(ctx, dashboardID)
	if err != nil {
		return nil, err
	}
	payload, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export json: marshal: %w", err)
	}
	return append(payload, '\n'), nil
}

// WriteFile exports the dashboard to dir/<name>.json, replacing any existing
// file atomically. It returns the path written.
func (s *Service) WriteFile(ctx context.Context, dashboardID, dir string) (string, error) {
	bundle, err := s.Export(ctx, dashboardID)
	if err != nil {
		return "", err
	}
	payload, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return "", fmt.Errorf("export file: marshal: %w", err)
	}
	payload = append(payload, '\n')

	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("export file: create directory: %w", err)
	}
	path := filepath.Join(dir, FileName(bundle.Dashboard.Name))
	if err := atomic.WriteFile(path, bytes.NewReader(payload)); err != nil {
		return "", fmt.Errorf("export file: write %q: %w", path, err)
	}
	// atomic.WriteFile leaves new files at the temp file's default mode.
	if err := os.Chmod(path, 0o600); err != nil {
		return "", fmt.Errorf("export file: chmod %q: %w", path, err)
	}
	return path, nil
}

// ImportJSON creates a new, non-default dashboard from the bundle and saves
// each of its layouts. The bundle's own id and default flag are ignored.
func (s *Service) ImportJSON(ctx context.Context, payload []byte) (ImportResult, error) {
	var result ImportResult
	if s == nil || s.store == nil {
		return result, fmt.Errorf("import json: store is nil")
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return result, fmt.Errorf("%w: empty payload", layoutstore.ErrValidation)
	}

	var bundle Bundle
	if err := json.Unmarshal(payload, &bundle); err != nil {
		return result, fmt.Errorf("%w: decode payload: %v", layoutstore.ErrValidation, err)
	}
	if bundle.Version != BundleVersion {
		return result, fmt.Errorf("%w: unsupported bundle version %d", layoutstore.ErrValidation, bundle.Version)
	}
	name := strings.TrimSpace(bundle.Dashboard.Name)
	if name == "" {
		return result, fmt.Errorf("%w: dashboard name is required", layoutstore.ErrValidation)
	}

	dashboard, err := s.store.CreateDashboard(ctx, name, false)
	if err != nil {
		return result, fmt.Errorf("import json: %w", err)
	}
	result.Dashboard = dashboard

	for _, layout := range bundle.Layouts {
		cells := layout.Layout
		if cells == nil {
			cells = []layoutstore.GridCell{}
		}
		if _, err := s.store.SaveLayout(ctx, dashboard.ID, layout.NavigationPath, cells); err != nil {
			return result, fmt.Errorf("import json: layout %q: %w", layout.NavigationPath, err)
		}
		result.Layouts++
	}
	return result, nil
}

// FileName turns a dashboard name into a safe file name ending in .json.
func FileName(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_', r == '.', r == ' ':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	base := strings.Trim(b.String(), ". ")
	if base == "" {
		base = "dashboard"
	}
	return base + ".json"
}
