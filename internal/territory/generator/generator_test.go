package generator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skyclaim.ai/internal/errs"
)

func TestSetPercentageFiftyWithOneEqualPeer(t *testing.T) {
	g := FromAmounts(map[string]int64{"COBBLESTONE": 10, "IRON_ORE": 10})
	require.NoError(t, g.SetPercentage("iron_ore", 50))

	assert.InDelta(t, 50, g.Percentage("IRON_ORE"), 1)
	assert.EqualValues(t, 10, g.Amount("IRON_ORE"))
}

func TestSetPercentageHundredClearsOthers(t *testing.T) {
	g := FromAmounts(map[string]int64{"COBBLESTONE": 90, "COAL_ORE": 7, "DIAMOND_ORE": 3})
	require.NoError(t, g.SetPercentage("DIAMOND_ORE", 100))

	assert.Equal(t, 100, g.Percentage("DIAMOND_ORE"))
	assert.Equal(t, map[string]int64{"DIAMOND_ORE": 1}, g.Amounts())
	assert.Equal(t, 0, g.Percentage("COBBLESTONE"))
}

func TestSetPercentageRounds(t *testing.T) {
	g := FromAmounts(map[string]int64{"COBBLESTONE": 75})
	require.NoError(t, g.SetPercentage("COAL_ORE", 25))
	assert.EqualValues(t, 25, g.Amount("COAL_ORE"))
	assert.Equal(t, 25, g.Percentage("COAL_ORE"))

	// 33*100/67 = 49.25..., rounds to 49
	g = FromAmounts(map[string]int64{"COBBLESTONE": 100})
	require.NoError(t, g.SetPercentage("GOLD_ORE", 33))
	assert.EqualValues(t, 49, g.Amount("GOLD_ORE"))
	assert.InDelta(t, 33, g.Percentage("GOLD_ORE"), 1)

	// a tiny share of a small table still gets a weight
	g = FromAmounts(map[string]int64{"COBBLESTONE": 1})
	require.NoError(t, g.SetPercentage("EMERALD_ORE", 1))
	assert.EqualValues(t, 1, g.Amount("EMERALD_ORE"))
}

func TestSetPercentageAlone(t *testing.T) {
	g := New()
	require.NoError(t, g.SetPercentage("COBBLESTONE", 40))
	assert.EqualValues(t, 40, g.Amount("COBBLESTONE"))
	assert.Equal(t, 100, g.Percentage("COBBLESTONE"))
}

func TestSetPercentageZeroRemoves(t *testing.T) {
	g := FromAmounts(map[string]int64{"COBBLESTONE": 3, "STONE": 1})
	require.NoError(t, g.SetPercentage("STONE", 0))
	assert.Equal(t, 1, g.Len())
	assert.Equal(t, 100, g.Percentage("COBBLESTONE"))
}

func TestValidation(t *testing.T) {
	g := New()
	assert.True(t, errors.Is(g.SetPercentage("STONE", 101), errs.ErrValidation))
	assert.True(t, errors.Is(g.SetPercentage("STONE", -1), errs.ErrValidation))
	assert.True(t, errors.Is(g.SetPercentage("", 5), errs.ErrValidation))
	assert.True(t, errors.Is(g.SetAmount("STONE", -1), errs.ErrValidation))
	assert.Equal(t, 0, g.Len())
}

func TestEmptyTable(t *testing.T) {
	g := New()
	assert.Equal(t, 0, g.Percentage("STONE"))
	assert.Empty(t, g.Array())
}

func TestAmountsAndArray(t *testing.T) {
	g := New()
	require.NoError(t, g.SetAmount("STONE", 2))
	require.NoError(t, g.SetAmount("COAL_ORE", 1))
	require.NoError(t, g.SetAmount("DIRT", 2))

	assert.EqualValues(t, 5, g.Total())
	assert.Equal(t, []string{"DIRT", "DIRT", "STONE", "STONE", "COAL_ORE"}, g.Array())
	assert.Equal(t, map[string]int{"STONE": 40, "DIRT": 40, "COAL_ORE": 20}, g.Percentages())

	require.NoError(t, g.SetAmount("DIRT", 0))
	assert.Equal(t, []string{"STONE", "COAL_ORE"}, g.Keys())

	g.Clear()
	assert.EqualValues(t, 0, g.Total())
}
