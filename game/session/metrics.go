package session

import "sync/atomic"

// Metrics counts lifecycle events. Safe for concurrent use.
type Metrics struct {
	connects    atomic.Int64
	disconnects atomic.Int64
	updates     atomic.Int64
	malformed   atomic.Int64
	stale       atomic.Int64
	races       atomic.Int64
}

// MetricsSnapshot is a point-in-time copy of Metrics
type MetricsSnapshot struct {
	Active           int   `json:"active"`
	Connects         int64 `json:"connects"`
	Disconnects      int64 `json:"disconnects"`
	UpdatesAccepted  int64 `json:"updates_accepted"`
	MalformedDropped int64 `json:"malformed_dropped"`
	StaleRejected    int64 `json:"stale_rejected"`
	StoreRaces       int64 `json:"store_races"`
}

// Snapshot returns a copy of the counters
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Connects:         m.connects.Load(),
		Disconnects:      m.disconnects.Load(),
		UpdatesAccepted:  m.updates.Load(),
		MalformedDropped: m.malformed.Load(),
		StaleRejected:    m.stale.Load(),
		StoreRaces:       m.races.Load(),
	}
}
