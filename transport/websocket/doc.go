// Package websocket provides the websocket transport for sharedspace.
//
// The websocket package implements:
//   - The broadcast relay (Hub) used by the session manager
//   - Per-connection outboxes with bounded FIFO queues
//   - Connection lifecycle: upgrade, join, read loop, disconnect
//
// Architecture:
//
// The Hub holds every attached connection by id. Each connection is a Client
// with two goroutines: a read pump that hands inbound frames to the
// session.Manager, and a write pump that drains the client's queue onto the
// socket and sends keepalive pings.
//
// Delivery:
//
// Broadcast never blocks. A frame offered to a client whose queue is full is
// dropped for that client alone and counted in RelayStats. Frames from one
// source are broadcast in the order the source issued them and every queue
// is FIFO, so peers observe them in that order.
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	manager := session.NewManager(store, registry.New(), hub)
//	router.Handle("/ws", websocket.NewHandler(manager, websocket.DefaultOptions(), logger))
//
// Connection Lifecycle:
//
// 1. Client connects, the write pump starts
// 2. Manager allocates an id and attaches the client with its join snapshot
// 3. Other connections receive a peer-update for the newcomer
// 4. Client sends self-update frames, peers receive peer-update frames
// 5. Read failure or close triggers Disconnect and a peer-left broadcast
package websocket
