package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/mcp-training/sharedspace/game/service"
)

// Client is a thin MCP client that proxies to the inspection API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the inspection API at baseURL
func NewClient(baseURL string, version string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer(version)
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer(version string) {
	c.mcpServer = server.NewMCPServer(
		"sharedspace",
		version,
		server.WithToolCapabilities(true),
		server.WithInstructions(`sharedspace - MCP Interface

Read-only view of a live shared space. Every connected browser or bot owns
one user entry: a 3D position and a client-supplied lastModified marker.

AVAILABLE TOOLS:
- world_snapshot: every connected user and their position
- get_user: one user's state by id
- server_stats: connection, relay and process counters

Users join and leave at any time; two calls may disagree.`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "world_snapshot",
		Description: "List every connected user with position and lastModified",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleWorldSnapshot)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_user",
		Description: "Get the state of one connected user",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": map[string]interface{}{
					"type":        "string",
					"description": "User id as shown by world_snapshot",
				},
			},
			Required: []string{"id"},
		},
	}, c.handleGetUser)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "server_stats",
		Description: "Get session, relay, store and process counters",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleServerStats)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// HTTPHandler serves single JSON-RPC messages posted to it
func (c *Client) HTTPHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := c.mcpServer.HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// Tool handlers

func (c *Client) handleWorldSnapshot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var snap service.WorldSnapshot
	if err := c.apiCall(ctx, "GET", "/api/world", &snap); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatWorldSnapshot(&snap)), nil
}

func (c *Client) handleGetUser(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(request.GetString("id", ""))
	if id == "" {
		return mcp.NewToolResultError("id is required"), nil
	}

	var user service.UserInfo
	if err := c.apiCall(ctx, "GET", "/api/world/users/"+url.PathEscape(id), &user); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatUserInfo(&user)), nil
}

func (c *Client) handleServerStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var stats service.ServerStats
	if err := c.apiCall(ctx, "GET", "/api/stats", &stats); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatServerStats(&stats)), nil
}

// Formatting

func formatWorldSnapshot(snap *service.WorldSnapshot) string {
	if snap.Count == 0 {
		return "No users connected."
	}

	ids := make([]string, 0, len(snap.Users))
	for id := range snap.Users {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	fmt.Fprintf(&b, "%d user(s) connected:\n", snap.Count)
	for _, id := range ids {
		st := snap.Users[id]
		fmt.Fprintf(&b, "- %s at %s (lastModified %.1f)\n", id, st.Position, st.LastModified)
	}
	return b.String()
}

func formatUserInfo(user *service.UserInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User %s\n", user.ID)
	fmt.Fprintf(&b, "Position: %s\n", user.State.Position)
	fmt.Fprintf(&b, "Last modified: %.1f\n", user.State.LastModified)
	if user.ConnectedAt != nil {
		fmt.Fprintf(&b, "Connected since: %s\n", user.ConnectedAt.Format(time.RFC3339))
	}
	return b.String()
}

func formatServerStats(stats *service.ServerStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Uptime: %s\n", (time.Duration(stats.UptimeSeconds) * time.Second).String())
	fmt.Fprintf(&b, "Ordering: %s\n", stats.Ordering)
	fmt.Fprintf(&b, "Users: %d active, %d store entries, %d ids allocated\n",
		stats.Sessions.Active, stats.StoreEntries, stats.IDsAllocated)
	fmt.Fprintf(&b, "Sessions: %d connects, %d disconnects\n",
		stats.Sessions.Connects, stats.Sessions.Disconnects)
	fmt.Fprintf(&b, "Updates: %d accepted, %d malformed, %d stale, %d races\n",
		stats.Sessions.UpdatesAccepted, stats.Sessions.MalformedDropped,
		stats.Sessions.StaleRejected, stats.Sessions.StoreRaces)
	fmt.Fprintf(&b, "Relay: %d connections, %d delivered, %d dropped\n",
		stats.Relay.Connections, stats.Relay.Delivered, stats.Relay.Dropped)
	if p := stats.Process; p != nil {
		fmt.Fprintf(&b, "Process: pid %d, rss %.1f MiB, cpu %.1f%%, %d threads, %d goroutines\n",
			p.PID, float64(p.RSSBytes)/(1<<20), p.CPUPercent, p.NumThreads, p.Goroutines)
	}
	return b.String()
}
