package catalog

import (
	"testing"

	"github.com/foomo/travelguide-mcp/service/vo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	assert.Len(t, c.Divisions, 8)
	assert.Len(t, c.Types, 7)
	assert.Len(t, c.Budgets, 3)
	assert.Len(t, c.Moods, 7)
	assert.Contains(t, c.Greeting, "Bangladesh travel guide")
	assert.Equal(t, "Dhaka Division", c.Divisions[0].Name)
	assert.Equal(t, "Beaches", c.Types[0].Name)
	assert.NotEmpty(t, c.Types[0].Icon)
}

func TestTab(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	types, err := c.Tab("")
	require.NoError(t, err)
	assert.Equal(t, c.Types, types)

	divisions, err := c.Tab(vo.TabDivisions)
	require.NoError(t, err)
	assert.Equal(t, c.Divisions, divisions)

	_, err = c.Tab("regions")
	require.Error(t, err)
}

func TestSearch(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	result, err := c.Search(vo.TabDivisions, "  LAKE ")
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "Chattogram Division", result[0].Name)
	assert.Equal(t, []string{"Foy’s Lake", "Boga Lake", "Kaptai Lake"}, result[0].Places)

	beaches, err := c.Search(vo.TabTypes, "beach")
	require.NoError(t, err)
	require.Len(t, beaches, 1)
	assert.Equal(t, c.Types[0].Icon, beaches[0].Icon)
	assert.Equal(t, []string{"Patenga Beach", "Inani Beach", "Parki Beach", "Kotka Beach"}, beaches[0].Places)

	all, err := c.Search(vo.TabTypes, "")
	require.NoError(t, err)
	assert.Equal(t, c.Types, all)

	none, err := c.Search(vo.TabTypes, "antarctica")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestParseValidation(t *testing.T) {
	_, err := Parse([]byte("budgets: [a]\nmoods: [b]\ntypes:\n  - name: Empty\n"))
	require.Error(t, err)

	_, err = Parse([]byte("moods: [b]\n"))
	require.Error(t, err)

	_, err = Parse([]byte(":::"))
	require.Error(t, err)
}

func TestPreferences(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	prefs := c.DefaultPreferences()
	assert.Equal(t, "Mid-Range (Comfort)", prefs.Budget)
	assert.Equal(t, "Relaxing & Chill", prefs.Mood)
	assert.Equal(t, "3", prefs.Duration)
	assert.True(t, c.IsBudget(prefs.Budget))
	assert.True(t, c.IsMood(prefs.Mood))
	assert.False(t, c.IsMood("Grumpy"))
}
