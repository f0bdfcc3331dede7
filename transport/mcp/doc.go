// Package mcp provides a Model Context Protocol server for inspecting a
// running sharedspace server.
//
// The mcp package implements:
//   - MCP tools that proxy the read-only HTTP inspection API
//   - Stdio and HTTP transport modes
//
// MCP Tools:
//   - world_snapshot: every connected user with position and lastModified
//   - get_user: one user's state by id
//   - server_stats: session, relay, store and process counters
//
// The tools never mutate the world. Positions only change through websocket
// clients.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080", version)
//
//	// Stdio mode
//	server.ServeStdio(client.GetMCPServer())
//
//	// HTTP mode
//	router.Handle("/mcp", client.HTTPHandler())
package mcp
