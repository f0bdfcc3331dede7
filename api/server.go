package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/sharedspace/game/service"
	"github.com/wricardo/mcp-training/sharedspace/logging"
)

// Server represents the HTTP server: inspection API, websocket endpoint and
// static assets
type Server struct {
	service   service.WorldService
	ws        http.Handler
	router    *mux.Router
	staticDir string
	mounts    []mount
	log       *zap.Logger
}

type mount struct {
	path    string
	handler http.Handler
}

// Option configures a Server
type Option func(*Server)

// WithStaticDir serves files from dir for every path no other route matches
func WithStaticDir(dir string) Option {
	return func(s *Server) { s.staticDir = dir }
}

// WithHandler mounts an extra handler under path, ahead of static files
func WithHandler(path string, h http.Handler) Option {
	return func(s *Server) { s.mounts = append(s.mounts, mount{path: path, handler: h}) }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.log = l }
}

// NewServer creates a new HTTP server. ws handles websocket upgrades on /ws
// and may be nil.
func NewServer(worldService service.WorldService, ws http.Handler, opts ...Option) *Server {
	s := &Server{
		service: worldService,
		ws:      ws,
		router:  mux.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logging.OrNop(s.log).Named("api")

	s.setupRoutes()
	return s
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(s.logRequests)

	api.HandleFunc("/world", s.handleWorld).Methods("GET")
	api.HandleFunc("/world/users/{id}", s.handleGetUser).Methods("GET")
	api.HandleFunc("/stats", s.handleStats).Methods("GET")

	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")

	if s.ws != nil {
		s.router.Handle("/ws", s.ws)
	}

	for _, m := range s.mounts {
		s.router.PathPrefix(m.path).Handler(m.handler)
	}

	if s.staticDir != "" {
		files := http.FileServer(http.Dir(s.staticDir))
		s.router.PathPrefix("/static/").Handler(http.StripPrefix("/static/", files))
		s.router.PathPrefix("/").Handler(files)
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("took", time.Since(start)))
	})
}

func (s *Server) handleWorld(w http.ResponseWriter, r *http.Request) {
	snap, err := s.service.Snapshot(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	user, err := s.service.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, user)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
