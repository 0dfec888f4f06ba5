package keys

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGlobal(t *testing.T) {
	assert.Equal(t, "WOOL", Global("wool:14"))
	assert.Equal(t, "STONE", Global(" stone "))
}

func TestExact(t *testing.T) {
	assert.Equal(t, []string{"WOOL:14"}, Exact{}.Expand("wool:14"))
	assert.False(t, Matches(Exact{}, "WOOL:14", "WOOL:1"))
	assert.True(t, Matches(Exact{}, "WOOL", "WOOL:1"))
}

func TestGroupsExpand(t *testing.T) {
	g := NewGroups(map[string][]string{
		"spawners": {"SPAWNER", "MOB_SPAWNER"},
		"zcake":    {"spawner", "CAKE"},
	})
	assert.Equal(t, []string{"WOOL:14"}, g.Expand("wool:14"))
	assert.Equal(t, []string{"MOB_SPAWNER", "SPAWNER"}, g.Expand("MOB_SPAWNER"))
	assert.Equal(t, []string{"CAKE"}, g.Expand("cake"))

	assert.True(t, Matches(g, "WOOL", "WOOL:3"))
	assert.False(t, Matches(g, "WOOL:3", "WOOL"))
	assert.False(t, Matches(g, "WOOL:3", "WOOL:4"))
	assert.True(t, Matches(g, "SPAWNER", "MOB_SPAWNER"))
	assert.True(t, Matches(g, "MOB_SPAWNER", "SPAWNER:PIG"))

	var nilGroups *Groups
	assert.Equal(t, []string{"DIRT"}, nilGroups.Expand("dirt"))
}
