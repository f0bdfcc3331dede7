package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/sharedspace/game/registry"
	"github.com/wricardo/mcp-training/sharedspace/game/session"
	"github.com/wricardo/mcp-training/sharedspace/game/world"
	"github.com/wricardo/mcp-training/sharedspace/logging"
	"github.com/wricardo/mcp-training/sharedspace/transport/websocket"
)

// RelayStatter reports relay counters
type RelayStatter interface {
	Stats() websocket.RelayStats
}

// worldServiceImpl implements the WorldService interface
type worldServiceImpl struct {
	store     *world.Store
	sessions  *session.Manager
	relay     RelayStatter
	registry  *registry.Registry
	startedAt time.Time
	log       *zap.Logger
}

// NewWorldService creates a new world service instance
func NewWorldService(store *world.Store, sessions *session.Manager, relay RelayStatter, reg *registry.Registry, log *zap.Logger) WorldService {
	return &worldServiceImpl{
		store:     store,
		sessions:  sessions,
		relay:     relay,
		registry:  reg,
		startedAt: time.Now(),
		log:       logging.OrNop(log).Named("service"),
	}
}

// Snapshot returns the current world state
func (s *worldServiceImpl) Snapshot(ctx context.Context) (*WorldSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	users := s.store.Snapshot()
	return &WorldSnapshot{Count: len(users), Users: users}, nil
}

// GetUser returns one user's state
func (s *worldServiceImpl) GetUser(ctx context.Context, id string) (*UserInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	state, ok := s.store.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, id)
	}

	info := &UserInfo{ID: id, State: state}
	if sess, ok := s.sessions.Get(id); ok {
		connectedAt := sess.ConnectedAt
		info.ConnectedAt = &connectedAt
	}
	return info, nil
}

// Stats aggregates counters. Process stats are best effort.
func (s *worldServiceImpl) Stats(ctx context.Context) (*ServerStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stats := &ServerStats{
		StartedAt:     s.startedAt,
		UptimeSeconds: time.Since(s.startedAt).Seconds(),
		Ordering:      string(s.sessions.Ordering()),
		StoreEntries:  s.store.Len(),
		IDsAllocated:  s.registry.Allocated(),
		Sessions:      s.sessions.Metrics(),
		Relay:         s.relay.Stats(),
	}

	proc, err := readProcessStats(ctx)
	if err != nil {
		s.log.Debug("process stats unavailable", zap.Error(err))
	} else {
		stats.Process = proc
	}

	return stats, nil
}
