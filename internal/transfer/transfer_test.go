package transfer

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/amanthanvi/dashkeep/internal/layoutstore"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestExportIncludesLayoutsSortedByPath(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	dashboard := seedDashboard(t, store, "Ops")

	svc := NewService(store)
	bundle, err := svc.Export(ctx, dashboard.ID)
	require.NoError(t, err)
	require.Equal(t, BundleVersion, bundle.Version)
	require.Equal(t, dashboard.ID, bundle.Dashboard.ID)
	require.Equal(t, "Ops", bundle.Dashboard.Name)
	require.Equal(t, dashboard.CreatedAt.UnixMilli(), bundle.Dashboard.CreatedAt)

	paths := make([]string, 0, len(bundle.Layouts))
	for _, layout := range bundle.Layouts {
		paths = append(paths, layout.NavigationPath)
	}
	require.Equal(t, []string{"root", "root->a", "root->b"}, paths)
	require.NotNil(t, bundle.Layouts[2].Layout)
	require.Empty(t, bundle.Layouts[2].Layout)
}

func TestExportMissingDashboardIsNotFound(t *testing.T) {
	t.Parallel()

	svc := NewService(newTestStore(t))
	_, err := svc.Export(context.Background(), "missing")
	require.ErrorIs(t, err, layoutstore.ErrNotFound)
}

func TestExportJSONIsIndentedAndDecodable(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	dashboard := seedDashboard(t, store, "Ops")

	payload, err := NewService(store).ExportJSON(context.Background(), dashboard.ID)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(payload), "{\n  \"version\": 1,"))

	var bundle Bundle
	require.NoError(t, json.Unmarshal(payload, &bundle))
	require.Len(t, bundle.Layouts, 3)
}

func TestWriteFileUsesSanitizedNameAndReplaces(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	dashboard := seedDashboard(t, store, "Ops/Prod: main")
	dir := filepath.Join(t.TempDir(), "exports")

	svc := NewService(store)
	path, err := svc.WriteFile(ctx, dashboard.ID, dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "Ops_Prod_ main.json"), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	_, err = store.SaveLayout(ctx, dashboard.ID, "root->c", nil)
	require.NoError(t, err)
	again, err := svc.WriteFile(ctx, dashboard.ID, dir)
	require.NoError(t, err)
	require.Equal(t, path, again)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var bundle Bundle
	require.NoError(t, json.Unmarshal(data, &bundle))
	require.Len(t, bundle.Layouts, 4)
}

func TestFileName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"My Dashboard":  "My Dashboard.json",
		"../etc/passwd": "_etc_passwd.json",
		"   ":           "dashboard.json",
		"a*b?c":         "a_b_c.json",
		"Überblick":     "Überblick.json",
	}
	for in, want := range tests {
		require.Equal(t, want, FileName(in), in)
	}
}

func TestImportRoundTripCreatesNewDashboard(t *testing.T) {
	t.Parallel()

	source := newTestStore(t)
	ctx := context.Background()
	original := seedDashboard(t, source, "Ops")
	original.IsDefault = true
	require.NoError(t, source.UpdateDashboard(ctx, original))

	payload, err := NewService(source).ExportJSON(ctx, original.ID)
	require.NoError(t, err)

	target := newTestStore(t)
	result, err := NewService(target).ImportJSON(ctx, payload)
	require.NoError(t, err)
	require.Equal(t, 3, result.Layouts)
	require.Equal(t, "Ops", result.Dashboard.Name)
	require.False(t, result.Dashboard.IsDefault)
	require.NotEqual(t, original.ID, result.Dashboard.ID)

	want, found, err := source.GetLayout(ctx, original.ID, "root->a")
	require.NoError(t, err)
	require.True(t, found)
	got, found, err := target.GetLayout(ctx, result.Dashboard.ID, "root->a")
	require.NoError(t, err)
	require.True(t, found)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("imported layout mismatch (-want +got):\n%s", diff)
	}
}

func TestImportExportKeepsUntypedCellKeys(t *testing.T) {
	t.Parallel()

	payload := `{
  "version": 1,
  "dashboard": {"id": "src", "name": "Ops", "isDefault": false, "createdAt": 1700000000000},
  "layouts": [
    {
      "navigationPath": "root",
      "layout": [
        {"i": "w1", "x": 0, "y": 0, "w": 2, "h": 2, "isDraggable": false, "isResizable": true, "moved": false, "resizeHandles": ["se", "e"]}
      ],
      "timestamp": 1700000000000
    }
  ]
}`

	store := newTestStore(t)
	ctx := context.Background()
	svc := NewService(store)
	result, err := svc.ImportJSON(ctx, []byte(payload))
	require.NoError(t, err)

	exported, err := svc.ExportJSON(ctx, result.Dashboard.ID)
	require.NoError(t, err)

	var bundle struct {
		Layouts []struct {
			Layout []map[string]any `json:"layout"`
		} `json:"layouts"`
	}
	require.NoError(t, json.Unmarshal(exported, &bundle))
	require.Len(t, bundle.Layouts, 1)
	require.Len(t, bundle.Layouts[0].Layout, 1)

	want := map[string]any{
		"i": "w1", "x": 0.0, "y": 0.0, "w": 2.0, "h": 2.0,
		"isDraggable": false, "isResizable": true, "moved": false,
		"resizeHandles": []any{"se", "e"},
	}
	if diff := cmp.Diff(want, bundle.Layouts[0].Layout[0]); diff != "" {
		t.Fatalf("exported cell mismatch (-want +got):\n%s", diff)
	}
}

func TestImportRejectsInvalidPayloads(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
	}{
		{name: "empty", payload: "  "},
		{name: "not-json", payload: "{nope"},
		{name: "wrong-version", payload: `{"version":2,"dashboard":{"name":"x"},"layouts":[]}`},
		{name: "blank-name", payload: `{"version":1,"dashboard":{"name":"  "},"layouts":[]}`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := newTestStore(t)
			_, err := NewService(store).ImportJSON(context.Background(), []byte(tt.payload))
			require.ErrorIs(t, err, layoutstore.ErrValidation)

			list, err := store.ListDashboards(context.Background())
			require.NoError(t, err)
			require.Empty(t, list)
		})
	}
}

func newTestStore(t *testing.T) *layoutstore.Store {
	t.Helper()
	store := layoutstore.New(layoutstore.Options{Path: filepath.Join(t.TempDir(), "dashboards.db")})
	t.Cleanup(func() { require.NoError(t, store.Close()) })
	return store
}

func seedDashboard(t *testing.T, store *layoutstore.Store, name string) layoutstore.Dashboard {
	t.Helper()
	ctx := context.Background()

	dashboard, err := store.CreateDashboard(ctx, name, false)
	require.NoError(t, err)
	_, err = store.SaveLayout(ctx, dashboard.ID, "root->b", nil)
	require.NoError(t, err)
	_, err = store.SaveLayout(ctx, dashboard.ID, "root", []layoutstore.GridCell{{I: "w1", W: 2, H: 2}})
	require.NoError(t, err)
	minW := 1
	_, err = store.SaveLayout(ctx, dashboard.ID, "root->a", []layoutstore.GridCell{{I: "w2", X: 2, W: 3, H: 1, MinW: &minW}})
	require.NoError(t, err)
	return dashboard
}
