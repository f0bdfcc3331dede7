package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/sharedspace/game/protocol"
	"github.com/wricardo/mcp-training/sharedspace/game/world"
	"github.com/wricardo/mcp-training/sharedspace/logging"
)

// MinSendInterval is the shortest gap between two updates from one bot
const MinSendInterval = 100 * time.Millisecond

var ErrNoSnapshot = errors.New("server did not send a join snapshot")

// BotOptions controls one bot's movement
type BotOptions struct {
	URL      string
	Interval time.Duration
	// units per second
	Speed float64
	Arena world.Arena
}

// Bot joins the shared space and wanders around the arena
type Bot struct {
	opts BotOptions
	rng  *rand.Rand
	log  *zap.Logger

	position world.Vector3
	heading  float64
	start    time.Time

	mu    sync.Mutex
	id    string
	peers map[string]world.UserState

	sent     atomic.Uint64
	received atomic.Uint64
}

// NewBot creates a bot. seed makes its walk reproducible.
func NewBot(opts BotOptions, seed uint64, log *zap.Logger) *Bot {
	if opts.Interval < MinSendInterval {
		opts.Interval = MinSendInterval
	}
	return &Bot{
		opts:  opts,
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		log:   logging.OrNop(log),
		peers: make(map[string]world.UserState),
	}
}

// ID returns the id assigned by the server, empty before joining
func (b *Bot) ID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.id
}

// Peers returns how many other users the bot currently knows about
func (b *Bot) Peers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.peers)
}

// Sent returns the number of updates sent
func (b *Bot) Sent() uint64 {
	return b.sent.Load()
}

// Received returns the number of frames received after the snapshot
func (b *Bot) Received() uint64 {
	return b.received.Load()
}

// Run connects, joins and wanders until ctx is done or the connection fails.
func (b *Bot) Run(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, b.opts.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", b.opts.URL, err)
	}
	defer conn.Close()

	if err := b.join(conn); err != nil {
		return err
	}
	b.log.Info("joined", zap.String("id", b.ID()), zap.Stringer("position", b.position), zap.Int("peers", b.Peers()))

	readErr := make(chan error, 1)
	go func() {
		readErr <- b.readLoop(conn)
	}()

	ticker := time.NewTicker(b.opts.Interval)
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return nil

		case err := <-readErr:
			return fmt.Errorf("connection lost: %w", err)

		case now := <-ticker.C:
			b.step(now.Sub(last))
			last = now

			frame, err := protocol.EncodeSelfUpdate(world.UserState{
				Position:     b.position,
				LastModified: float64(time.Since(b.start)) / float64(time.Millisecond),
			})
			if err != nil {
				return err
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return fmt.Errorf("failed to send update: %w", err)
			}
			b.sent.Add(1)
		}
	}
}

func (b *Bot) join(conn *websocket.Conn) error {
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	defer conn.SetReadDeadline(time.Time{})

	_, data, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	env, err := protocol.Decode(data)
	if err != nil {
		return err
	}
	if env.Event != protocol.EventJoinSnapshot {
		return fmt.Errorf("%w: got %s", ErrNoSnapshot, env.Event)
	}

	var snap protocol.JoinSnapshot
	if err := json.Unmarshal(env.Data, &snap); err != nil {
		return fmt.Errorf("%w: %v", protocol.ErrMalformed, err)
	}

	b.position = snap.Users[snap.SelfID].Position
	b.heading = b.rng.Float64() * 2 * math.Pi
	b.start = time.Now()

	b.mu.Lock()
	b.id = snap.SelfID
	for id, st := range snap.Users {
		if id != snap.SelfID {
			b.peers[id] = st
		}
	}
	b.mu.Unlock()
	return nil
}

func (b *Bot) readLoop(conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		b.received.Add(1)

		env, err := protocol.Decode(data)
		if err != nil {
			b.log.Debug("ignoring frame", zap.Error(err))
			continue
		}

		switch env.Event {
		case protocol.EventPeerUpdate:
			var upd protocol.PeerUpdate
			if json.Unmarshal(env.Data, &upd) != nil {
				continue
			}
			b.mu.Lock()
			for id, st := range upd {
				b.peers[id] = st
			}
			b.mu.Unlock()

		case protocol.EventPeerLeft:
			var left protocol.PeerLeft
			if json.Unmarshal(env.Data, &left) != nil {
				continue
			}
			b.mu.Lock()
			delete(b.peers, left.ID)
			b.mu.Unlock()
		}
	}
}

// step advances the bot along its heading, turning a little each time and
// bouncing off the arena edges.
func (b *Bot) step(dt time.Duration) {
	b.heading += (b.rng.Float64() - 0.5) * 0.6
	dist := b.opts.Speed * dt.Seconds()

	next := world.Vector3{
		X: b.position.X + math.Cos(b.heading)*dist,
		Y: b.position.Y,
		Z: b.position.Z + math.Sin(b.heading)*dist,
	}
	if !b.opts.Arena.Contains(next) {
		b.heading += math.Pi
		next.X = clamp(next.X, b.opts.Arena.Min.X, b.opts.Arena.Max.X)
		next.Z = clamp(next.Z, b.opts.Arena.Min.Z, b.opts.Arena.Max.Z)
		next.Y = clamp(next.Y, b.opts.Arena.Min.Y, b.opts.Arena.Max.Y)
	}
	b.position = next
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
