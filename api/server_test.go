package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wricardo/mcp-training/sharedspace/game/service"
	"github.com/wricardo/mcp-training/sharedspace/game/session"
	"github.com/wricardo/mcp-training/sharedspace/game/world"
)

// MockWorldService implements service.WorldService for testing
type MockWorldService struct {
	SnapshotFunc func(ctx context.Context) (*service.WorldSnapshot, error)
	GetUserFunc  func(ctx context.Context, id string) (*service.UserInfo, error)
	StatsFunc    func(ctx context.Context) (*service.ServerStats, error)
}

func (m *MockWorldService) Snapshot(ctx context.Context) (*service.WorldSnapshot, error) {
	if m.SnapshotFunc != nil {
		return m.SnapshotFunc(ctx)
	}
	return &service.WorldSnapshot{Count: 0, Users: world.WorldState{}}, nil
}

func (m *MockWorldService) GetUser(ctx context.Context, id string) (*service.UserInfo, error) {
	if m.GetUserFunc != nil {
		return m.GetUserFunc(ctx, id)
	}
	return &service.UserInfo{ID: id}, nil
}

func (m *MockWorldService) Stats(ctx context.Context) (*service.ServerStats, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx)
	}
	return &service.ServerStats{}, nil
}

func doRequest(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHandleWorld(t *testing.T) {
	mock := &MockWorldService{
		SnapshotFunc: func(ctx context.Context) (*service.WorldSnapshot, error) {
			return &service.WorldSnapshot{
				Count: 2,
				Users: world.WorldState{
					"a": {Position: world.Vector3{X: 1}, LastModified: 10},
					"b": {Position: world.Vector3{Z: -3}, LastModified: 0},
				},
			}, nil
		},
	}
	server := NewServer(mock, nil)

	rr := doRequest(t, server, "GET", "/api/world")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected application/json, got %s", ct)
	}

	var body service.WorldSnapshot
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body.Count != 2 {
		t.Errorf("Expected count 2, got %d", body.Count)
	}
	if body.Users["a"].Position.X != 1 || body.Users["a"].LastModified != 10 {
		t.Errorf("Unexpected user a: %+v", body.Users["a"])
	}
}

func TestHandleGetUser(t *testing.T) {
	connectedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name       string
		id         string
		err        error
		wantStatus int
	}{
		{name: "found", id: "abc", wantStatus: http.StatusOK},
		{name: "not found", id: "gone", err: fmt.Errorf("%w: gone", service.ErrUserNotFound), wantStatus: http.StatusNotFound},
		{name: "internal error", id: "boom", err: errors.New("store exploded"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotID string
			mock := &MockWorldService{
				GetUserFunc: func(ctx context.Context, id string) (*service.UserInfo, error) {
					gotID = id
					if tt.err != nil {
						return nil, tt.err
					}
					return &service.UserInfo{
						ID:          id,
						State:       world.UserState{Position: world.Vector3{Y: 2}},
						ConnectedAt: &connectedAt,
					}, nil
				},
			}
			server := NewServer(mock, nil)

			rr := doRequest(t, server, "GET", "/api/world/users/"+tt.id)
			if rr.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			if gotID != tt.id {
				t.Errorf("Expected id %s passed to service, got %s", tt.id, gotID)
			}

			var body map[string]interface{}
			json.NewDecoder(rr.Body).Decode(&body)
			if tt.err != nil {
				if _, ok := body["error"]; !ok {
					t.Error("Expected error field in response")
				}
				return
			}
			if body["id"] != tt.id {
				t.Errorf("Expected id %s, got %v", tt.id, body["id"])
			}
			if body["connected_at"] != "2026-01-02T03:04:05Z" {
				t.Errorf("Unexpected connected_at %v", body["connected_at"])
			}
		})
	}
}

func TestHandleStats(t *testing.T) {
	mock := &MockWorldService{
		StatsFunc: func(ctx context.Context) (*service.ServerStats, error) {
			return &service.ServerStats{
				Ordering:     "overwrite",
				StoreEntries: 3,
				Sessions:     session.MetricsSnapshot{Active: 3, Connects: 5, Disconnects: 2},
			}, nil
		},
	}
	server := NewServer(mock, nil)

	rr := doRequest(t, server, "GET", "/api/stats")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}

	var body struct {
		Ordering     string `json:"ordering"`
		StoreEntries int    `json:"store_entries"`
		Sessions     struct {
			Active   int `json:"active"`
			Connects int `json:"connects"`
		} `json:"sessions"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body.Ordering != "overwrite" || body.StoreEntries != 3 {
		t.Errorf("Unexpected stats %+v", body)
	}
	if body.Sessions.Active != 3 || body.Sessions.Connects != 5 {
		t.Errorf("Unexpected session stats %+v", body.Sessions)
	}
}

func TestHandleStatsError(t *testing.T) {
	mock := &MockWorldService{
		StatsFunc: func(ctx context.Context) (*service.ServerStats, error) {
			return nil, context.DeadlineExceeded
		},
	}
	server := NewServer(mock, nil)

	rr := doRequest(t, server, "GET", "/api/stats")
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", rr.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	server := NewServer(&MockWorldService{}, nil)

	rr := doRequest(t, server, "GET", "/healthz")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}

	var body map[string]string
	json.NewDecoder(rr.Body).Decode(&body)
	if body["status"] != "healthy" {
		t.Errorf("Expected status healthy, got %s", body["status"])
	}
}

func TestMethodNotAllowed(t *testing.T) {
	server := NewServer(&MockWorldService{}, nil)

	rr := doRequest(t, server, "POST", "/api/world")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", rr.Code)
	}
}

func TestWebSocketRoute(t *testing.T) {
	called := false
	ws := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusSwitchingProtocols)
	})
	server := NewServer(&MockWorldService{}, ws)

	doRequest(t, server, "GET", "/ws")
	if !called {
		t.Error("Expected /ws to reach the websocket handler")
	}
}

func TestMountedHandlerAndStatic(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>space</h1>"), 0644); err != nil {
		t.Fatalf("Failed to write index: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "app.js"), []byte("connect()"), 0644); err != nil {
		t.Fatalf("Failed to write script: %v", err)
	}

	mcp := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("mcp"))
	})
	server := NewServer(&MockWorldService{}, nil,
		WithStaticDir(dir),
		WithHandler("/mcp", mcp))

	rr := doRequest(t, server, "POST", "/mcp")
	if rr.Body.String() != "mcp" {
		t.Errorf("Expected mounted handler, got %q", rr.Body.String())
	}

	rr = doRequest(t, server, "GET", "/")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "space") {
		t.Errorf("Expected static index, got %d %q", rr.Code, rr.Body.String())
	}

	rr = doRequest(t, server, "GET", "/static/app.js")
	if rr.Code != http.StatusOK || rr.Body.String() != "connect()" {
		t.Errorf("Expected script under /static/, got %d %q", rr.Code, rr.Body.String())
	}

	// API routes are not shadowed by the static catch-all
	rr = doRequest(t, server, "GET", "/api/world")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "count") {
		t.Errorf("Expected world snapshot, got %d %q", rr.Code, rr.Body.String())
	}
}
