package sample

import (
	"testing"

	"github.com/kcmvp/xschema"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	reg, err := NewRegistry(xschema.WithRoles(Roles()))
	require.NoError(t, err)
	require.Len(t, reg.Tables(), 5)
	events := reg.MustTable(TableEvents)
	require.Equal(t, "id", events.PrimaryKey())
	require.True(t, events.SoftDelete().IsPresent())
	require.Contains(t, DDL, "CREATE TABLE IF NOT EXISTS events")

	color := events.GetColumn("color").MustGet()
	for _, c := range Palette {
		require.Equal(t, xschema.ParseSuccess, color.ValidateAndParse(xschema.Row{"color": c}, xschema.ModeNew, xschema.PublicContext()).Status)
	}
}

func TestEventParams(t *testing.T) {
	preds, ok := eventParams(map[string]any{"eventId": "3"}, xschema.PublicContext())
	require.True(t, ok)
	require.Len(t, preds, 1)

	preds, ok = eventParams(map[string]any{"slug": "jazz-night"}, xschema.PublicContext())
	require.True(t, ok)
	require.Len(t, preds, 1)

	_, ok = eventParams(map[string]any{"slug": ""}, xschema.PublicContext())
	require.False(t, ok)
}
