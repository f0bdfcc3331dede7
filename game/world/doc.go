// Package world holds the shared state of the space: every connected user's
// position and freshness marker.
//
// The world package implements:
//   - The UserState and WorldState data model
//   - A thread-safe Store over the id -> UserState mapping
//   - Value-copy snapshots of the whole mapping
//   - Arena bounds and random spawn positions
//
// Core Types:
//
// Store owns the mapping. All of its operations are atomic with respect to
// each other (one RWMutex over the whole map) and every value crosses the
// Store boundary by copy, so callers never hold a live reference into it.
//
// UserState carries a Position and a LastModified marker. LastModified is
// supplied by the owning client and is not server time; the Store never
// interprets it. Ordering policy, if any, is passed in by the caller through
// SetIf.
//
// Usage:
//
//	store := world.NewStore()
//
//	if err := store.Insert(id, world.UserState{Position: spawn}); err != nil {
//		return err
//	}
//
//	// Replace the whole state for id
//	err := store.Set(id, next)
//	if errors.Is(err, world.ErrNotFound) {
//		// id was removed concurrently; drop the update
//	}
//
//	// Consistent copy of every entry
//	users := store.Snapshot()
//
// Removal:
//
// Remove on an absent id is a no-op. Set and SetIf never create entries, so a
// write racing a removal cannot bring a removed id back.
package world
