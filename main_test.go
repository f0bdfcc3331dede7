package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/sharedspace/game/config"
	"github.com/wricardo/mcp-training/sharedspace/game/protocol"
	"github.com/wricardo/mcp-training/sharedspace/game/session"
	"github.com/wricardo/mcp-training/sharedspace/transport/mcp"
)

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if AppName != "sharedspace" {
		t.Errorf("Expected app name sharedspace, got %s", AppName)
	}
}

func TestCommands(t *testing.T) {
	app := newApp()

	for _, name := range []string{"server", "stdio-mcp"} {
		found := false
		for _, c := range app.Commands {
			if c.Name == name {
				found = true
			}
		}
		if !found {
			t.Errorf("Expected command %s", name)
		}
	}
}

// parseConfig runs the root command with args and returns the resulting config
func parseConfig(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()
	app := newApp()

	var cfg *config.Config
	var loadErr error
	capture := func(ctx context.Context, cmd *cli.Command) error {
		cfg, loadErr = loadConfig(cmd)
		return nil
	}
	app.Action = capture
	for _, c := range app.Commands {
		c.Action = capture
	}

	if err := app.Run(context.Background(), append([]string{AppName}, args...)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return cfg, loadErr
}

func TestLoadConfigFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	content := "server:\n  port: 9000\n  static_dir: public\nworld:\n  ordering: monotonic\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := parseConfig(t, "--config", path, "--port", "9100", "--debug", "server")
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	if cfg.Server.Port != 9100 {
		t.Errorf("Expected flag port 9100, got %d", cfg.Server.Port)
	}
	if cfg.Server.StaticDir != "public" {
		t.Errorf("Expected file static_dir public, got %s", cfg.Server.StaticDir)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Expected debug level, got %s", cfg.Log.Level)
	}
	if cfg.Ordering() != session.OrderingMonotonic {
		t.Errorf("Expected monotonic ordering, got %s", cfg.Ordering())
	}
}

func TestLoadConfigInvalidPort(t *testing.T) {
	_, err := parseConfig(t, "--port", "99999")
	if err == nil {
		t.Error("Expected error for out of range port")
	}
}

func TestLoopbackURL(t *testing.T) {
	tests := []struct {
		addr net.Addr
		want string
	}{
		{addr: &net.TCPAddr{IP: net.IPv4zero, Port: 8080}, want: "http://127.0.0.1:8080"},
		{addr: &net.TCPAddr{IP: net.ParseIP("10.0.0.5"), Port: 81}, want: "http://10.0.0.5:81"},
		{addr: &net.TCPAddr{IP: net.IPv6unspecified, Port: 9}, want: "http://127.0.0.1:9"},
	}

	for _, tt := range tests {
		if got := loopbackURL(tt.addr); got != tt.want {
			t.Errorf("loopbackURL(%v) = %s, want %s", tt.addr, got, tt.want)
		}
	}
}

func TestServerWiring(t *testing.T) {
	cfg := config.Default()
	cfg.Server.StaticDir = t.TempDir()
	os.WriteFile(filepath.Join(cfg.Server.StaticDir, "index.html"), []byte("hello space"), 0644)

	a := newServerApp(cfg, nil)

	// The MCP client needs the server URL, so route through a late-bound handler
	var handler http.Handler
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, r)
	}))
	defer srv.Close()
	handler = a.handler(mcp.NewClient(srv.URL, Version))
	defer a.hub.Shutdown()

	// Static
	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("GET / failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected static index, got %d", resp.StatusCode)
	}

	// Websocket join
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("Failed to dial /ws: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read snapshot: %v", err)
	}
	env, err := protocol.Decode(data)
	if err != nil || env.Event != protocol.EventJoinSnapshot {
		t.Fatalf("Expected join-snapshot, got %s (%v)", data, err)
	}
	var snap protocol.JoinSnapshot
	json.Unmarshal(env.Data, &snap)

	// Inspection API sees the websocket user
	resp, err = http.Get(srv.URL + "/api/world/users/" + snap.SelfID)
	if err != nil {
		t.Fatalf("GET user failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected user %s to be visible, got %d", snap.SelfID, resp.StatusCode)
	}

	// MCP endpoint is mounted
	body := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	resp, err = http.Post(srv.URL+"/mcp", "application/json", body)
	if err != nil {
		t.Fatalf("POST /mcp failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected /mcp 200, got %d", resp.StatusCode)
	}

	if !apiAvailable(srv.URL) {
		t.Error("Expected apiAvailable to report true")
	}
}

func TestAPIAvailableUnreachable(t *testing.T) {
	if apiAvailable("http://127.0.0.1:1") {
		t.Error("Expected unreachable API to report false")
	}
}
