package service

import (
	"context"
	"errors"
)

var ErrUserNotFound = errors.New("user not found")

// WorldService is the read-only view of the shared space used by the HTTP
// inspection API and the MCP tools.
type WorldService interface {
	// Snapshot returns every connected user's state at one instant
	Snapshot(ctx context.Context) (*WorldSnapshot, error)
	// GetUser returns one user's state, or ErrUserNotFound
	GetUser(ctx context.Context, id string) (*UserInfo, error)
	// Stats reports counters from the session manager, relay and process
	Stats(ctx context.Context) (*ServerStats, error)
}
