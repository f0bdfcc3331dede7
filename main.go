// Command sharedspace starts the shared space server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing the websocket endpoint, the inspection API, static files and an /mcp endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP server if none is available
//
// Settings come from defaults, an optional YAML file, SHAREDSPACE_ environment
// variables and flags, in increasing order of precedence.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/mcp-training/sharedspace/api"
	"github.com/wricardo/mcp-training/sharedspace/game/config"
	"github.com/wricardo/mcp-training/sharedspace/game/registry"
	"github.com/wricardo/mcp-training/sharedspace/game/service"
	"github.com/wricardo/mcp-training/sharedspace/game/session"
	"github.com/wricardo/mcp-training/sharedspace/game/world"
	"github.com/wricardo/mcp-training/sharedspace/logging"
	"github.com/wricardo/mcp-training/sharedspace/transport/mcp"
	"github.com/wricardo/mcp-training/sharedspace/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "sharedspace"
)

// main loads .env, then runs the selected command.
func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
	}

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    AppName,
		Usage:   "relay positions between clients sharing a virtual space",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config file", Sources: cli.EnvVars("SHAREDSPACE_CONFIG")},
			&cli.StringFlag{Name: "host", Usage: "HTTP server host"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "HTTP server port"},
			&cli.StringFlag{Name: "static-dir", Usage: "directory served at /"},
			&cli.BoolFlag{Name: "debug", Usage: "enable debug logging"},
			&cli.BoolFlag{Name: "ngrok", Usage: "enable ngrok tunnel"},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "custom ngrok domain (optional)"},
		},
		Action: runServer,
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "run HTTP server with websocket, inspection API and MCP endpoint",
				Action:  runServer,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "run MCP stdio server, starting an internal HTTP server if needed",
				Action:  runStdioMCP,
			},
		},
	}
}

// loadConfig merges flags that were explicitly set on top of file and
// environment configuration.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	if cmd.IsSet("host") {
		cfg.Server.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Server.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("static-dir") {
		cfg.Server.StaticDir = cmd.String("static-dir")
	}
	if cmd.Bool("debug") {
		cfg.Log.Level = "debug"
	}
	if cmd.Bool("ngrok") {
		cfg.Ngrok.Enabled = true
	}
	if cmd.IsSet("ngrok-domain") {
		cfg.Ngrok.Domain = cmd.String("ngrok-domain")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// app holds the wired components of one server instance.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	store    *world.Store
	registry *registry.Registry
	hub      *websocket.Hub
	sessions *session.Manager
	service  service.WorldService
}

func newServerApp(cfg *config.Config, log *zap.Logger) *app {
	store := world.NewStore()
	reg := registry.New()
	hub := websocket.NewHub(log)
	sessions := session.NewManager(store, reg, hub,
		session.WithArena(cfg.World.Arena),
		session.WithOrdering(cfg.Ordering()),
		session.WithLogger(log))

	return &app{
		cfg:      cfg,
		log:      log,
		store:    store,
		registry: reg,
		hub:      hub,
		sessions: sessions,
		service:  service.NewWorldService(store, sessions, hub, reg, log),
	}
}

// handler builds the HTTP handler. mcpClient may be nil.
func (a *app) handler(mcpClient *mcp.Client) http.Handler {
	wsOpts := websocket.Options{
		SendQueueLimit: a.cfg.Relay.SendQueueLimit,
		MaxMessageSize: a.cfg.Relay.MaxMessageSize,
		WriteWait:      a.cfg.Relay.WriteWait,
		PongWait:       a.cfg.Relay.PongWait,
	}

	opts := []api.Option{
		api.WithStaticDir(a.cfg.Server.StaticDir),
		api.WithLogger(a.log),
	}
	if mcpClient != nil {
		opts = append(opts, api.WithHandler("/mcp", mcpClient.HTTPHandler()))
	}

	return api.NewServer(a.service, websocket.NewHandler(a.sessions, wsOpts, a.log), opts...)
}

func setupLogger(cfg *config.Config) (*zap.Logger, error) {
	log, err := logging.New(cfg.Log.Options())
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return log, nil
}

// runServer starts the HTTP server and, if enabled, an ngrok tunnel serving
// the same handler. It returns after SIGINT or SIGTERM.
func runServer(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := setupLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	log.Info("starting", zap.String("app", AppName), zap.String("version", Version),
		zap.String("ordering", string(cfg.Ordering())))

	listener, err := net.Listen("tcp", cfg.Server.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Server.Addr(), err)
	}

	a := newServerApp(cfg, log)
	mcpClient := mcp.NewClient(loopbackURL(listener.Addr()), Version)
	handler := a.handler(mcpClient)

	httpServer := &http.Server{
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		addr := listener.Addr().String()
		log.Info("HTTP server listening", zap.String("addr", addr))
		log.Info("endpoints",
			zap.String("websocket", "ws://"+addr+"/ws"),
			zap.String("api", "http://"+addr+"/api/world"),
			zap.String("mcp", "http://"+addr+"/mcp"))

		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			stop()
		}
	}()

	if cfg.Ngrok.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, cfg.Ngrok, handler, log)
		}()
	}

	<-ctx.Done()
	log.Info("shutting down")

	a.hub.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP server shutdown error", zap.Error(err))
	}

	wg.Wait()
	log.Info("server stopped")

	select {
	case err := <-serveErr:
		return fmt.Errorf("HTTP server failed: %w", err)
	default:
		return nil
	}
}

// runNgrok serves handler through an ngrok tunnel until ctx is done.
func runNgrok(ctx context.Context, cfg config.NgrokConfig, handler http.Handler, log *zap.Logger) {
	log = log.Named("ngrok")

	authOpt := ngrok.WithAuthtokenFromEnv()
	if cfg.Authtoken != "" {
		authOpt = ngrok.WithAuthtoken(cfg.Authtoken)
	}

	var tunnel ngrokConfig.Tunnel
	if cfg.Domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.Domain))
		log.Info("using custom domain", zap.String("domain", cfg.Domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, authOpt)
	if err != nil {
		log.Error("failed to start tunnel", zap.Error(err))
		return
	}

	publicURL := tun.URL()
	log.Info("tunnel established",
		zap.String("url", publicURL),
		zap.String("websocket", strings.Replace(publicURL, "https://", "wss://", 1)+"/ws"),
		zap.String("mcp", publicURL+"/mcp"))

	srv := &http.Server{Handler: handler}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	if err := srv.Serve(tun); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Warn("tunnel server error", zap.Error(err))
	}
	log.Info("tunnel closed")
}

// runStdioMCP runs an MCP stdio server. It reuses an API already listening on
// the configured port; otherwise it starts an internal server on a random
// loopback port and targets that.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := setupLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	externalURL := "http://" + net.JoinHostPort("localhost", strconv.Itoa(cfg.Server.Port))
	baseURL := externalURL

	log.Info("checking for external API server", zap.String("url", externalURL))
	if !apiAvailable(externalURL) {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		a := newServerApp(cfg, log)
		internal := &http.Server{Handler: a.handler(nil)}
		go func() {
			if err := internal.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("internal HTTP server error", zap.Error(err))
			}
		}()
		defer func() {
			a.hub.Shutdown()
			internal.Close()
		}()

		baseURL = loopbackURL(listener.Addr())
		log.Info("started internal HTTP server", zap.String("url", baseURL))
	} else {
		log.Info("external API server found")
	}

	mcpClient := mcp.NewClient(baseURL, Version)
	log.Info("MCP stdio server ready", zap.String("api", baseURL))

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

func apiAvailable(baseURL string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/healthz")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// loopbackURL returns an http URL reaching addr from this host.
func loopbackURL(addr net.Addr) string {
	host := "127.0.0.1"
	port := "0"
	if tcp, ok := addr.(*net.TCPAddr); ok {
		if !tcp.IP.IsUnspecified() {
			host = tcp.IP.String()
		}
		port = strconv.Itoa(tcp.Port)
	}
	return "http://" + net.JoinHostPort(host, port)
}
