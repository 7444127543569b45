package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("storage: not found")
	ErrConflict     = errors.New("storage: constraint conflict")
	ErrSchemaTooNew = errors.New("storage: schema version newer than code")
)

type Dashboard struct {
	ID        string
	Name      string
	IsDefault bool
	CreatedAt time.Time
}

// GridCell is one positioned cell of a react-grid-layout style layout. The
// store treats it as opaque payload: keys without a typed field (isDraggable,
// resizeHandles and the like) ride along in Extra and are written back
// unchanged.
type GridCell struct {
	I      string `json:"i"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	W      int    `json:"w"`
	H      int    `json:"h"`
	MinW   *int   `json:"minW,omitempty"`
	MaxW   *int   `json:"maxW,omitempty"`
	MinH   *int   `json:"minH,omitempty"`
	MaxH   *int   `json:"maxH,omitempty"`
	Static bool   `json:"static,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

type LayoutRecord struct {
	ID             string
	DashboardID    string
	NavigationPath string
	Layout         []GridCell
	Timestamp      time.Time
}

type DashboardRepository interface {
	Create(ctx context.Context, dashboard *Dashboard) error
	Get(ctx context.Context, id string) (*Dashboard, error)
	List(ctx context.Context) ([]Dashboard, error)
	Put(ctx context.Context, dashboard *Dashboard) error
	DeleteCascade(ctx context.Context, id string) (int, error)
	EnsureDefault(ctx context.Context, name string) (*Dashboard, bool, error)
}

type LayoutRepository interface {
	Upsert(ctx context.Context, record *LayoutRecord) error
	Get(ctx context.Context, dashboardID, navigationPath string) (*LayoutRecord, error)
	ListByDashboard(ctx context.Context, dashboardID string) ([]LayoutRecord, error)
}
