// Package service provides the read-only query layer for sharedspace.
//
// WorldService answers questions about the shared space without touching the
// realtime path: the current snapshot, a single user's state, and runtime
// counters. The HTTP inspection API and the MCP tools both sit on top of it.
//
// Usage:
//
//	svc := service.NewWorldService(store, manager, hub, reg, logger)
//	snap, err := svc.Snapshot(ctx)
//
// Mutations only happen through the websocket session path.
package service
