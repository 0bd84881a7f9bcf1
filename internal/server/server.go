package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"github.com/muurk/otastub/internal/config"
	"github.com/muurk/otastub/internal/discovery"
	"github.com/muurk/otastub/internal/logging"
	"github.com/muurk/otastub/internal/protocol"
)

// ScriptDelay is the pause before each scripted tool call.
const ScriptDelay = 500 * time.Millisecond

const shutdownTimeout = 10 * time.Second

// Server hosts the OTA check-in endpoint and the WebSocket session endpoint
type Server struct {
	config     *config.Config
	router     *httprouter.Router
	httpServer *http.Server
	advertiser *discovery.Advertiser

	scriptDelay time.Duration
	now         func() time.Time

	mu          sync.Mutex
	activeConns map[*websocket.Conn]string
}

// New creates a new Server. cfg must already be validated and is not modified.
func New(cfg *config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	s := &Server{
		config:      cfg,
		router:      httprouter.New(),
		scriptDelay: ScriptDelay,
		now:         time.Now,
		activeConns: make(map[*websocket.Conn]string),
	}
	s.setupRoutes()

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// OTA check-in; devices use either method
	s.router.GET("/", s.handleOTA)
	s.router.POST("/", s.handleOTA)

	s.router.GET(config.WebSocketPath, s.handleWebSocket)
	s.router.GET(config.WebSocketPath+"/", s.handleWebSocket)
}

// Handler returns the HTTP handler serving both endpoints.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured port and blocks until SIGINT/SIGTERM or a
// fatal listener error.
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return s.Run(ctx)
}

// Run listens on the configured port and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	addr := s.config.ListenAddr()

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	return s.Serve(ctx, listener)
}

// Serve accepts connections on listener until ctx is done.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	logging.Info("Starting OTA stub server",
		zap.String("addr", listener.Addr().String()),
		zap.String("websocket_url", s.config.WebSocketURL()),
		zap.String("scene", s.config.Scene),
		zap.Int("brightness", s.config.Brightness),
		zap.Int("speed", s.config.Speed),
		zap.Bool("log_binary", s.config.LogBinary),
		zap.Bool("do_get", s.config.DoGet),
	)

	for _, w := range s.config.Warnings() {
		logging.Warn("Configuration warning", zap.String("detail", w))
	}

	if !protocol.IsKnownScene(s.config.Scene) {
		logging.Warn("Scene is not built into the LED firmware, device will fall back to its default",
			zap.String("scene", s.config.Scene),
			zap.Strings("known_scenes", protocol.KnownScenes),
		)
	}

	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	if s.config.MDNS {
		s.startAdvertising()
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.httpServer.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		logging.Info("Shutdown signal received, stopping server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		s.advertiser.Shutdown()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server stopped: %w", err)
	}
}

func (s *Server) startAdvertising() {
	adv, err := discovery.Advertise(discovery.Advertisement{
		Instance:     s.config.MDNSName,
		Port:         s.config.Port,
		WebSocketURL: s.config.WebSocketURL(),
		Version:      protocol.OTAVersion,
	})
	if err != nil {
		// The stub is still reachable by address
		logging.Warn("mDNS advertisement failed", zap.Error(err))
		return
	}
	s.advertiser = adv
	logging.Info("Advertising over mDNS",
		zap.String("instance", s.config.MDNSName),
		zap.String("service", discovery.ServiceType),
	)
}

// Shutdown stops accepting connections and closes open sessions.
// Hijacked WebSocket connections are not tracked by http.Server, so they are
// closed here explicitly.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	s.advertiser.Shutdown()

	s.mu.Lock()
	for conn, addr := range s.activeConns {
		logging.Info("Closing active connection", zap.String("remote_addr", addr))
		_ = conn.Close()
	}
	s.mu.Unlock()

	var err error
	if s.httpServer != nil {
		if err = s.httpServer.Shutdown(ctx); err != nil {
			logging.Warn("Shutdown timeout, forcing close", zap.Error(err))
			err = s.httpServer.Close()
		}
	}

	logging.Sync()

	return err
}

// GetActiveConnections returns the number of open WebSocket sessions
func (s *Server) GetActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}

func (s *Server) track(conn *websocket.Conn, remoteAddr string) {
	s.mu.Lock()
	s.activeConns[conn] = remoteAddr
	s.mu.Unlock()
}

func (s *Server) untrack(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.activeConns, conn)
	s.mu.Unlock()
}
