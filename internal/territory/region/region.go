// Package region holds the spatial value types shared by the territory
// packages: block positions, the claimed bounds and saved locations.
package region

import "fmt"

type Vec3 struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

func (v Vec3) String() string { return fmt.Sprintf("%d,%d,%d", v.X, v.Y, v.Z) }

// Bounds is an inclusive box in one world.
type Bounds struct {
	World string `json:"world"`
	Min   Vec3   `json:"min"`
	Max   Vec3   `json:"max"`
}

// Square returns the bounds of a square claim of the given radius around
// center, spanning every height between minY and maxY.
func Square(world string, center Vec3, radius, minY, maxY int) Bounds {
	if radius < 0 {
		radius = 0
	}
	return Bounds{
		World: world,
		Min:   Vec3{X: center.X - radius, Y: minY, Z: center.Z - radius},
		Max:   Vec3{X: center.X + radius, Y: maxY, Z: center.Z + radius},
	}
}

func (b Bounds) Contains(world string, p Vec3) bool {
	if world != b.World {
		return false
	}
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Location is a saved position with a facing, used for homes and warps.
type Location struct {
	World string  `json:"world"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	Yaw   float32 `json:"yaw,omitempty"`
	Pitch float32 `json:"pitch,omitempty"`
}

// Block is the block position the location falls in.
func (l Location) Block() Vec3 {
	return Vec3{X: floor(l.X), Y: floor(l.Y), Z: floor(l.Z)}
}

// SameBlock reports whether both locations are in the same world and block.
func (l Location) SameBlock(o Location) bool {
	return l.World == o.World && l.Block() == o.Block()
}

func floor(f float64) int {
	i := int(f)
	if f < 0 && float64(i) != f {
		i--
	}
	return i
}
