package region

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSquareContains(t *testing.T) {
	b := Square("overworld", Vec3{X: 10, Z: -10}, 4, 0, 255)
	assert.True(t, b.Contains("overworld", Vec3{X: 14, Y: 64, Z: -6}))
	assert.True(t, b.Contains("overworld", Vec3{X: 6, Y: 0, Z: -14}))
	assert.False(t, b.Contains("overworld", Vec3{X: 15, Y: 64, Z: -10}))
	assert.False(t, b.Contains("nether", Vec3{X: 10, Y: 64, Z: -10}))
}

func TestLocationBlock(t *testing.T) {
	l := Location{World: "w", X: -0.5, Y: 64.9, Z: 3.0}
	assert.Equal(t, Vec3{X: -1, Y: 64, Z: 3}, l.Block())
	assert.True(t, l.SameBlock(Location{World: "w", X: -0.1, Y: 64.1, Z: 3.7}))
	assert.False(t, l.SameBlock(Location{World: "x", X: -0.1, Y: 64.1, Z: 3.7}))
}
