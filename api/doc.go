// Package api provides the HTTP surface of the sharedspace server.
//
// The api package implements:
//   - Read-only inspection endpoints over the shared world
//   - WebSocket upgrade routing
//   - Static file serving for the browser client
//
// Endpoints:
//
//   - GET /api/world - All connected users: {"count": n, "users": {id: state}}
//   - GET /api/world/users/{id} - One user: {"id", "state", "connected_at"}
//   - GET /api/stats - Session, relay, store and process counters
//   - GET /healthz - {"status": "healthy"}
//   - GET /ws - WebSocket upgrade, see package websocket
//
// Usage:
//
//	server := api.NewServer(worldService, wsHandler,
//		api.WithStaticDir("static"),
//		api.WithHandler("/mcp", mcpHandler),
//		api.WithLogger(logger))
//	http.ListenAndServe(":8080", server)
//
// Error Handling:
//
// Errors are returned as JSON with an appropriate HTTP status code:
//
//	{"error": "user not found: 3f2a..."}
package api
