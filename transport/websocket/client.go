package websocket

import (
	"sync"
	"time"

	"github.com/eapache/queue"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/sharedspace/game/session"
	"github.com/wricardo/mcp-training/sharedspace/logging"
)

// Options tunes per-connection behaviour
type Options struct {
	// Frames queued for one connection before new ones are dropped
	SendQueueLimit int
	// Maximum inbound message size in bytes
	MaxMessageSize int64
	// Time allowed to write a message to the peer
	WriteWait time.Duration
	// Time allowed to read the next pong message from the peer
	PongWait time.Duration
}

// DefaultOptions returns the options used when none are configured
func DefaultOptions() Options {
	return Options{
		SendQueueLimit: 256,
		MaxMessageSize: 4096,
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
	}
}

// Send pings to peer with this period. Must be less than PongWait.
func (o Options) pingPeriod() time.Duration {
	return (o.PongWait * 9) / 10
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.SendQueueLimit <= 0 {
		o.SendQueueLimit = def.SendQueueLimit
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = def.MaxMessageSize
	}
	if o.WriteWait <= 0 {
		o.WriteWait = def.WriteWait
	}
	if o.PongWait <= 0 || o.pingPeriod() <= 0 {
		o.PongWait = def.PongWait
	}
	return o
}

// Client is one websocket connection. It implements session.Outbox: frames
// are queued in FIFO order and written by a dedicated goroutine.
type Client struct {
	conn *websocket.Conn
	opts Options
	log  *zap.Logger

	mu     sync.Mutex
	queue  *queue.Queue
	closed bool

	// wakes the write pump, capacity 1
	notify chan struct{}
	done   chan struct{}
}

var _ session.Outbox = (*Client)(nil)

func newClient(conn *websocket.Conn, opts Options, log *zap.Logger) *Client {
	return &Client{
		conn:   conn,
		opts:   opts,
		log:    logging.OrNop(log),
		queue:  queue.New(),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Send queues frame without blocking. It returns false when the client is
// closed or its queue is full.
func (c *Client) Send(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.queue.Length() >= c.opts.SendQueueLimit {
		return false
	}
	c.queue.Add(frame)

	select {
	case c.notify <- struct{}{}:
	default:
	}
	return true
}

// Close stops accepting frames. Frames already queued are still written
// before the connection is closed.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}

// Pending returns the number of queued frames
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.Length()
}

func (c *Client) drain() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.queue.Length()
	if n == 0 {
		return nil
	}
	frames := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		frames = append(frames, c.queue.Remove().([]byte))
	}
	return frames
}

// readPump feeds inbound frames to the manager until the connection fails,
// then disconnects the session.
func (c *Client) readPump(manager *session.Manager, sess *session.Session) {
	defer func() {
		manager.Disconnect(sess)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.opts.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("websocket read failed", zap.String("id", sess.ID), zap.Error(err))
			}
			return
		}
		// Rejected frames are dropped, the connection stays open
		_ = manager.Update(sess, message)
	}
}

// writePump writes queued frames to the connection and keeps it alive with
// pings. Once it returns the client accepts no more frames.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.opts.pingPeriod())
	defer func() {
		ticker.Stop()
		c.Close()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.notify:
			if !c.write(c.drain()) {
				return
			}

		case <-c.done:
			// Flush what was queued before the close
			if !c.write(c.drain()) {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) write(frames [][]byte) bool {
	for _, frame := range frames {
		c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			c.log.Debug("websocket write failed", zap.Error(err))
			return false
		}
	}
	return true
}
