package websocket

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/sharedspace/game/session"
	"github.com/wricardo/mcp-training/sharedspace/logging"
)

// Handler upgrades HTTP requests to websocket connections and hands them to
// the session manager.
type Handler struct {
	manager  *session.Manager
	opts     Options
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewHandler creates a websocket handler
func NewHandler(manager *session.Manager, opts Options, log *zap.Logger) *Handler {
	return &Handler{
		manager: manager,
		opts:    opts.withDefaults(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The browser client may be served from anywhere
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: logging.OrNop(log).Named("websocket"),
	}
}

// ServeHTTP handles websocket requests from clients
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := newClient(conn, h.opts, h.log)
	go client.writePump()

	sess, err := h.manager.Connect(client)
	if err != nil {
		h.log.Error("failed to connect session", zap.String("remote", r.RemoteAddr), zap.Error(err))
		client.Close()
		return
	}

	h.log.Debug("websocket connected", zap.String("id", sess.ID), zap.String("remote", r.RemoteAddr))
	go client.readPump(h.manager, sess)
}
