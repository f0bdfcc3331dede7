// Package registry hands out connection identifiers.
//
// Identifiers are random (version 4) UUIDs rendered as 36-character text.
// With 122 random bits a collision is not a practical concern, so ids are
// never released or reused and no bookkeeping of live ids is kept here.
package registry

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Registry issues unique opaque identifiers for new connections.
type Registry struct {
	allocated atomic.Uint64
}

// New creates a new registry
func New() *Registry {
	return &Registry{}
}

// Allocate returns a fresh identifier. Safe for concurrent use.
func (r *Registry) Allocate() string {
	r.allocated.Add(1)
	return uuid.NewString()
}

// Allocated returns how many identifiers have been handed out so far.
func (r *Registry) Allocated() uint64 {
	return r.allocated.Load()
}
