package service

import (
	"time"

	"github.com/wricardo/mcp-training/sharedspace/game/session"
	"github.com/wricardo/mcp-training/sharedspace/game/world"
	"github.com/wricardo/mcp-training/sharedspace/transport/websocket"
)

// WorldSnapshot is the whole world state at one instant
type WorldSnapshot struct {
	Count int              `json:"count"`
	Users world.WorldState `json:"users"`
}

// UserInfo describes one connected user
type UserInfo struct {
	ID          string          `json:"id"`
	State       world.UserState `json:"state"`
	ConnectedAt *time.Time      `json:"connected_at,omitempty"`
}

// ServerStats aggregates runtime counters
type ServerStats struct {
	StartedAt     time.Time               `json:"started_at"`
	UptimeSeconds float64                 `json:"uptime_seconds"`
	Ordering      string                  `json:"ordering"`
	StoreEntries  int                     `json:"store_entries"`
	IDsAllocated  uint64                  `json:"ids_allocated"`
	Sessions      session.MetricsSnapshot `json:"sessions"`
	Relay         websocket.RelayStats    `json:"relay"`
	Process       *ProcessStats           `json:"process,omitempty"`
}

// ProcessStats describes the server process
type ProcessStats struct {
	PID        int32   `json:"pid"`
	RSSBytes   uint64  `json:"rss_bytes"`
	CPUPercent float64 `json:"cpu_percent"`
	NumThreads int32   `json:"num_threads"`
	Goroutines int     `json:"goroutines"`
}
