package session

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/sharedspace/game/protocol"
	"github.com/wricardo/mcp-training/sharedspace/game/registry"
	"github.com/wricardo/mcp-training/sharedspace/game/world"
	"github.com/wricardo/mcp-training/sharedspace/logging"
)

var (
	ErrNotJoined    = errors.New("session is not joined")
	ErrInvalidOrder = errors.New("invalid ordering policy")
)

// Phase is the lifecycle state of a session
type Phase int32

const (
	PhaseConnecting Phase = iota
	PhaseJoined
	PhaseDisconnected
)

func (p Phase) String() string {
	switch p {
	case PhaseConnecting:
		return "connecting"
	case PhaseJoined:
		return "joined"
	case PhaseDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("phase(%d)", int32(p))
	}
}

// Session is the server-side identity of one connection
type Session struct {
	ID          string
	ConnectedAt time.Time

	phase atomic.Int32
	// serializes Update and Disconnect so a leave is never followed by an
	// update from the same session
	mu sync.Mutex
}

// Phase returns the current lifecycle phase
func (s *Session) Phase() Phase {
	return Phase(s.phase.Load())
}

// Outbox is the outbound half of one connection. Send must not block; it
// reports false when the frame was dropped.
type Outbox interface {
	Send(frame []byte) bool
	Close()
}

// Relay delivers frames to attached connections.
type Relay interface {
	// Attach registers out under id. first is called while no broadcast can
	// interleave, and its frame is the first one out receives.
	Attach(id string, out Outbox, first func() ([]byte, error)) error
	Detach(id string) bool
	Broadcast(frame []byte, exclude string)
}

// Ordering selects how concurrent writes for one id are reconciled.
type Ordering string

const (
	// OrderingOverwrite applies every update as received.
	OrderingOverwrite Ordering = "overwrite"
	// OrderingMonotonic rejects updates whose lastModified is lower than the
	// stored one.
	OrderingMonotonic Ordering = "monotonic"
)

// ParseOrdering converts a config value into an Ordering. Empty means
// OrderingOverwrite.
func ParseOrdering(s string) (Ordering, error) {
	switch Ordering(s) {
	case "", OrderingOverwrite:
		return OrderingOverwrite, nil
	case OrderingMonotonic:
		return OrderingMonotonic, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidOrder, s)
	}
}

func (o Ordering) accept() world.AcceptFunc {
	if o != OrderingMonotonic {
		return nil
	}
	return func(current, next world.UserState) bool {
		return next.LastModified >= current.LastModified
	}
}

// Option configures a Manager
type Option func(*Manager)

// WithArena sets the spawn bounds for new sessions
func WithArena(a world.Arena) Option {
	return func(m *Manager) { m.arena = a }
}

// WithOrdering sets the update ordering policy
func WithOrdering(o Ordering) Option {
	return func(m *Manager) { m.ordering = o }
}

// WithRand sets the random source used for spawn positions
func WithRand(r *rand.Rand) Option {
	return func(m *Manager) { m.rng = r }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// Manager handles connect, update and disconnect for every connection
type Manager struct {
	store    *world.Store
	registry *registry.Registry
	relay    Relay

	arena    world.Arena
	ordering Ordering
	log      *zap.Logger

	rngMu sync.Mutex
	rng   *rand.Rand

	sessions map[string]*Session
	mu       sync.RWMutex

	metrics Metrics
}

// NewManager creates a session manager over the given collaborators
func NewManager(store *world.Store, reg *registry.Registry, relay Relay, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		registry: reg,
		relay:    relay,
		arena:    world.DefaultArena(),
		ordering: OrderingOverwrite,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.rng == nil {
		m.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	m.log = logging.OrNop(m.log).Named("session")
	return m
}

// Connect admits a new connection. The new connection receives the join
// snapshot first; every other connection then learns about it through a
// peer-update.
func (m *Manager) Connect(out Outbox) (*Session, error) {
	id := m.registry.Allocate()
	sess := &Session{ID: id, ConnectedAt: time.Now()}

	state := world.UserState{Position: m.spawn(), LastModified: 0}
	if err := m.store.Insert(id, state); err != nil {
		return nil, fmt.Errorf("failed to insert user state: %w", err)
	}

	err := m.relay.Attach(id, out, func() ([]byte, error) {
		return protocol.EncodeJoinSnapshot(id, m.store.Snapshot())
	})
	if err != nil {
		m.store.Remove(id)
		return nil, fmt.Errorf("failed to attach connection: %w", err)
	}

	m.mu.Lock()
	m.sessions[id] = sess
	m.mu.Unlock()
	sess.phase.Store(int32(PhaseJoined))
	m.metrics.connects.Add(1)

	m.log.Info("session connected", zap.String("id", id), zap.Stringer("position", state.Position))

	frame, err := protocol.EncodePeerUpdate(id, state)
	if err != nil {
		m.log.Error("failed to encode join announcement", zap.String("id", id), zap.Error(err))
		return sess, nil
	}
	m.relay.Broadcast(frame, id)

	return sess, nil
}

// Update applies a raw self-update frame on behalf of sess and relays it to
// every other session. The returned error explains why a frame was dropped;
// it never means the connection should close.
func (m *Manager) Update(sess *Session, frame []byte) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.Phase() != PhaseJoined {
		return ErrNotJoined
	}

	state, err := protocol.DecodeSelfUpdate(frame)
	if err != nil {
		m.metrics.malformed.Add(1)
		m.log.Debug("dropping malformed message", zap.String("id", sess.ID), zap.Error(err))
		return err
	}

	if err := m.store.SetIf(sess.ID, state, m.ordering.accept()); err != nil {
		switch {
		case errors.Is(err, world.ErrStale):
			m.metrics.stale.Add(1)
		case errors.Is(err, world.ErrNotFound):
			m.metrics.races.Add(1)
		}
		m.log.Debug("dropping update", zap.String("id", sess.ID), zap.Error(err))
		return err
	}
	m.metrics.updates.Add(1)

	out, err := protocol.EncodePeerUpdate(sess.ID, state)
	if err != nil {
		m.log.Error("failed to encode peer update", zap.String("id", sess.ID), zap.Error(err))
		return err
	}
	m.relay.Broadcast(out, sess.ID)
	return nil
}

// Disconnect removes sess from the world and tells every remaining session.
// Calling it more than once is a no-op.
func (m *Manager) Disconnect(sess *Session) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	prev := Phase(sess.phase.Swap(int32(PhaseDisconnected)))
	if prev == PhaseDisconnected {
		return
	}

	m.relay.Detach(sess.ID)
	if !m.store.Remove(sess.ID) {
		m.log.Debug("user state already removed", zap.String("id", sess.ID))
	}

	m.mu.Lock()
	delete(m.sessions, sess.ID)
	m.mu.Unlock()
	m.metrics.disconnects.Add(1)

	m.log.Info("session disconnected", zap.String("id", sess.ID),
		zap.Duration("connected_for", time.Since(sess.ConnectedAt)))

	frame, err := protocol.EncodePeerLeft(sess.ID)
	if err != nil {
		m.log.Error("failed to encode peer left", zap.String("id", sess.ID), zap.Error(err))
		return
	}
	m.relay.Broadcast(frame, "")
}

// Get returns the live session with the given id
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	return sess, ok
}

// List returns all live sessions
func (m *Manager) List() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		result = append(result, sess)
	}
	return result
}

// Count returns the number of live sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Ordering returns the configured ordering policy
func (m *Manager) Ordering() Ordering {
	return m.ordering
}

// Metrics returns a copy of the manager's counters
func (m *Manager) Metrics() MetricsSnapshot {
	snap := m.metrics.Snapshot()
	snap.Active = m.Count()
	return snap
}

func (m *Manager) spawn() world.Vector3 {
	m.rngMu.Lock()
	defer m.rngMu.Unlock()
	return m.arena.Spawn(m.rng)
}
