// Package server serves generated cave maps to browser clients over WebSocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/m7alleus/mazer/internal/cave"
	"github.com/m7alleus/mazer/internal/config"
	"github.com/m7alleus/mazer/internal/database"
	"github.com/m7alleus/mazer/internal/logger"
)

// RunStore archives and retrieves generation runs.
type RunStore interface {
	SaveRun(m *cave.Map, cfg cave.Config) (int64, error)
	GetRun(id int64) (*database.Run, error)
	ListRuns(limit int) ([]*database.Run, error)
}

// Server is the WebSocket map service.
type Server struct {
	serverConfig *config.ServerConfig
	defaults     cave.Config
	store        RunStore

	httpServer   *http.Server
	clients      map[*WebSocketClient]string
	mu           sync.RWMutex
	shutdownOnce sync.Once
	StartTime    time.Time

	connLimiter *ConnLimiter
	rateLimiter *RequestRateLimiter
}

// NewServer creates a server that fills unspecified request fields from
// defaults.
func NewServer(cfg *config.ServerConfig, defaults cave.Config) *Server {
	return &Server{
		serverConfig: cfg,
		defaults:     defaults,
		clients:      make(map[*WebSocketClient]string),
		StartTime:    time.Now(),
		connLimiter:  NewConnLimiter(cfg.Connections),
		rateLimiter:  NewRequestRateLimiter(cfg.RateLimit),
	}
}

// SetStore enables the run archive. Without a store, generated maps are not
// saved and replay/list requests fail.
func (s *Server) SetStore(store RunStore) {
	s.mu.Lock()
	s.store = store
	s.mu.Unlock()
}

func (s *Server) runStore() RunStore {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store
}

// GetServerConfig returns the server configuration.
func (s *Server) GetServerConfig() *config.ServerConfig {
	return s.serverConfig
}

// Handler returns the HTTP handler serving the /ws endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocketUpgrade)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		total, _ := s.connLimiter.Stats()
		fmt.Fprintf(w, "ok %d\n", total)
	})
	return mux
}

// StartWebSocket listens on address until Shutdown is called.
func (s *Server) StartWebSocket(address string) error {
	s.mu.Lock()
	s.httpServer = &http.Server{
		Addr:              address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	logger.Info("WebSocket server listening", "address", address)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// handleWebSocketUpgrade upgrades an HTTP connection to WebSocket.
func (s *Server) handleWebSocketUpgrade(w http.ResponseWriter, r *http.Request) {
	clientIP := getRealIP(r)

	if !s.connLimiter.TryAcquire(clientIP) {
		logger.Warning("WebSocket connection rejected - limit exceeded",
			"remote_addr", r.RemoteAddr,
			"client_ip", clientIP)
		http.Error(w, "Too many connections. Please try again later.", http.StatusTooManyRequests)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			allowed := s.serverConfig.WebSocket.IsOriginAllowed(origin, r.Host)
			if !allowed {
				logger.Warning("WebSocket connection rejected - origin not allowed",
					"origin", origin,
					"host", r.Host,
					"remote_addr", r.RemoteAddr)
			}
			return allowed
		},
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", "error", err)
		s.connLimiter.Release(clientIP)
		return
	}

	go s.handleWebSocketConnection(wsConn, clientIP)
}

// handleWebSocketConnection serves requests until the client disconnects.
func (s *Server) handleWebSocketConnection(wsConn *websocket.Conn, clientIP string) {
	client := NewWebSocketClient(wsConn, s.serverConfig.WebSocket.MaxMessageSize)

	s.mu.Lock()
	s.clients[client] = clientIP
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.clients, client)
		s.mu.Unlock()

		s.connLimiter.Release(clientIP)
		client.Close()
		logger.Info("Client disconnected", "client_ip", clientIP)
	}()

	logger.Info("Client connected", "remote_addr", client.RemoteAddr(), "client_ip", clientIP)

	for {
		req, err := client.ReadRequest()
		if err != nil {
			if isDecodeError(err) {
				if sendErr := client.Send(errorResponse("malformed request")); sendErr != nil {
					return
				}
				continue
			}
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("WebSocket read failed", "client_ip", clientIP, "error", err)
			}
			return
		}

		if err := client.Send(s.safeHandleRequest(clientIP, req)); err != nil {
			logger.Debug("WebSocket write failed", "client_ip", clientIP, "error", err)
			return
		}
	}
}

// safeHandleRequest answers a panicking handler with an internal error reply.
func (s *Server) safeHandleRequest(clientIP string, req Request) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Request handler panicked", "client_ip", clientIP, "type", req.Type, "panic", r)
			resp = errorResponse("internal error")
		}
	}()
	return s.handleRequest(clientIP, req)
}

func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.ErrUnexpectedEOF)
}

// getRealIP extracts the real client IP from an HTTP request.
// It checks X-Forwarded-For header first (for reverse proxy setups),
// then falls back to the direct remote address.
func getRealIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// "client, proxy1, proxy2"
		first, _, _ := strings.Cut(xff, ",")
		if clientIP := strings.TrimSpace(first); clientIP != "" {
			return clientIP
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	return extractIP(r.RemoteAddr)
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// GetUptime returns how long the server has been running.
func (s *Server) GetUptime() time.Duration {
	return time.Since(s.StartTime)
}

// Shutdown stops the listener, closes client connections and stops the
// rate limiter. It is safe to call more than once.
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		srv := s.httpServer
		for client := range s.clients {
			client.Close()
		}
		s.mu.Unlock()

		if srv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("HTTP server shutdown failed", "error", err)
			}
		}

		s.rateLimiter.Stop()
		logger.Info("Server shutdown complete")
	})
}
