package world

import (
	"fmt"
	"math"
)

// Vector3 is a point in the shared space.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// IsFinite reports whether no component is NaN or infinite.
func (v Vector3) IsFinite() bool {
	return isFinite(v.X) && isFinite(v.Y) && isFinite(v.Z)
}

func (v Vector3) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f)", v.X, v.Y, v.Z)
}

// UserState is the slice of shared state owned by one session.
type UserState struct {
	Position     Vector3 `json:"position"`
	LastModified float64 `json:"lastModified"`
}

// WorldState maps session ids to their state. Values are copies.
type WorldState map[string]UserState

// Clone returns an independent copy of w.
func (w WorldState) Clone() WorldState {
	out := make(WorldState, len(w))
	for id, st := range w {
		out[id] = st
	}
	return out
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
