// Package session orchestrates the lifecycle of connected clients.
//
// The session package implements:
//   - Admission of new connections (id allocation, spawn, join snapshot)
//   - Application of self-updates to the shared world store
//   - Fan-out of join, update and leave events through a Relay
//   - Per-session phase tracking (Connecting -> Joined -> Disconnected)
//   - Counters for admissions, updates and dropped messages
//
// Core Types:
//
// Manager composes a registry.Registry, a world.Store and a Relay. Session is
// the server-side identity of one connection. Outbox is the outbound half of
// a connection and Relay delivers frames to every attached Outbox.
//
// Usage:
//
//	store := world.NewStore()
//	manager := session.NewManager(store, registry.New(), hub,
//		session.WithOrdering(session.OrderingOverwrite),
//		session.WithLogger(logger),
//	)
//
//	sess, err := manager.Connect(outbox)
//	if err != nil {
//		return err
//	}
//	defer manager.Disconnect(sess)
//
//	for frame := range inbound {
//		manager.Update(sess, frame)
//	}
//
// Ordering:
//
// Connect attaches the outbox with a first-frame builder, so the join
// snapshot is taken while the relay is locked and is always the first frame
// a connection receives. Updates from one session are applied and broadcast
// from that connection's single reader, so every peer sees them in the order
// they were sent. Updates from different sessions have no relative order.
//
// Errors:
//
// Update never fails a connection. Malformed frames, writes racing a
// disconnect and (with OrderingMonotonic) stale writes are logged, counted
// and dropped.
package session
