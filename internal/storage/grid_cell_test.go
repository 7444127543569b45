package storage

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGridCellJSONKeepsUntypedKeys(t *testing.T) {
	t.Parallel()

	input := `{"i":"w1","x":1,"y":2,"w":3,"h":4,"minW":1,"isDraggable":false,"isBounded":true,"resizeHandles":["s","se"]}`

	var cell GridCell
	require.NoError(t, json.Unmarshal([]byte(input), &cell))
	require.Equal(t, "w1", cell.I)
	require.Equal(t, 3, cell.W)
	require.NotNil(t, cell.MinW)
	require.Len(t, cell.Extra, 3)
	require.NotContains(t, cell.Extra, "minW")

	out, err := json.Marshal(cell)
	require.NoError(t, err)
	require.JSONEq(t, input, string(out))
}

func TestGridCellJSONTypedFieldsWin(t *testing.T) {
	t.Parallel()

	cell := GridCell{
		I: "w1", W: 2, H: 2,
		Extra: map[string]json.RawMessage{"w": json.RawMessage(`99`), "moved": json.RawMessage(`true`)},
	}
	out, err := json.Marshal(cell)
	require.NoError(t, err)
	require.JSONEq(t, `{"i":"w1","x":0,"y":0,"w":2,"h":2,"moved":true}`, string(out))

	var plain GridCell
	require.NoError(t, json.Unmarshal([]byte(`{"i":"w1","X":5,"w":1,"h":1}`), &plain))
	require.Equal(t, 5, plain.X)
	require.Nil(t, plain.Extra)
}

func TestLayoutUpsertPersistsUntypedCellKeys(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	input := `[{"i":"w1","x":0,"y":0,"w":2,"h":2,"isDraggable":false,"resizeHandles":["se","e"]}]`
	var cells []GridCell
	require.NoError(t, json.Unmarshal([]byte(input), &cells))

	require.NoError(t, store.Layouts.Upsert(ctx, &LayoutRecord{DashboardID: "A", NavigationPath: "root", Layout: cells}))

	loaded, err := store.Layouts.Get(ctx, "A", "root")
	require.NoError(t, err)
	out, err := json.Marshal(loaded.Layout)
	require.NoError(t, err)
	require.JSONEq(t, input, string(out))
}
