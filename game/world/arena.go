package world

import (
	"fmt"
	"math/rand/v2"
)

// Arena bounds the region new users spawn in. Positions sent by clients are
// not checked against it.
type Arena struct {
	Min Vector3 `yaml:"min" json:"min"`
	Max Vector3 `yaml:"max" json:"max"`
}

// DefaultArena matches the 50x50 floor the browser client draws around the
// origin.
func DefaultArena() Arena {
	return Arena{
		Min: Vector3{X: -25, Y: 0, Z: -25},
		Max: Vector3{X: 25, Y: 0, Z: 25},
	}
}

// Validate checks that the bounds are finite and ordered.
func (a Arena) Validate() error {
	if !a.Min.IsFinite() || !a.Max.IsFinite() {
		return fmt.Errorf("arena bounds must be finite, got min=%s max=%s", a.Min, a.Max)
	}
	if a.Min.X > a.Max.X || a.Min.Y > a.Max.Y || a.Min.Z > a.Max.Z {
		return fmt.Errorf("arena min %s must not exceed max %s", a.Min, a.Max)
	}
	return nil
}

// Contains reports whether p lies inside the bounds (inclusive).
func (a Arena) Contains(p Vector3) bool {
	return p.X >= a.Min.X && p.X <= a.Max.X &&
		p.Y >= a.Min.Y && p.Y <= a.Max.Y &&
		p.Z >= a.Min.Z && p.Z <= a.Max.Z
}

// Spawn picks a uniformly random point inside the bounds.
func (a Arena) Spawn(rng *rand.Rand) Vector3 {
	return Vector3{
		X: between(rng, a.Min.X, a.Max.X),
		Y: between(rng, a.Min.Y, a.Max.Y),
		Z: between(rng, a.Min.Z, a.Max.Z),
	}
}

func between(rng *rand.Rand, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + rng.Float64()*(hi-lo)
}
