// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeChain Contributors

package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/samber/oops"

	"github.com/safechain/safechain/internal/observability"
)

// ServerOptions configures the API server.
type ServerOptions struct {
	// AllowedOrigins for CORS. Empty means all origins.
	AllowedOrigins []string
	// Metrics enables the per-request counter middleware when set.
	Metrics *observability.Metrics
	// Logger for request logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// Server is the mobile-facing HTTP server.
type Server struct {
	addr       string
	engine     *gin.Engine
	handler    *Handler
	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// NewServer builds the router and wires the handler routes.
func NewServer(addr string, h *Handler, opts ServerOptions) (*Server, error) {
	if h == nil {
		return nil, oops.Code("SERVER_INVALID").Errorf("handler is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(RequestLogger(logger))
	if opts.Metrics != nil {
		engine.Use(RequestMetrics(opts.Metrics))
	}

	origins := opts.AllowedOrigins
	allowAll := len(origins) == 0
	engine.Use(cors.New(cors.Config{
		AllowAllOrigins:  allowAll,
		AllowOrigins:     origins,
		AllowMethods:     []string{"POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: !allowAll,
		MaxAge:           12 * time.Hour,
	}))

	engine.HandleMethodNotAllowed = true
	engine.NoMethod(func(c *gin.Context) {
		respondError(c, http.StatusMethodNotAllowed, "invalid request method")
	})
	engine.NoRoute(func(c *gin.Context) {
		respondError(c, http.StatusNotFound, "resource not found")
	})

	h.RegisterRoutes(engine)

	return &Server{
		addr:    addr,
		engine:  engine,
		handler: h,
	}, nil
}

// Start begins serving requests. It returns an error channel that receives
// any error from the HTTP server after startup; the channel is closed on
// graceful shutdown.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("api server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			slog.Error("api server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	slog.Info("api server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the server and drains in-flight reset emails.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_api_server").Wrap(err)
		}
	}

	s.handler.Wait()

	slog.Info("api server stopped")
	return nil
}

// Addr returns the address the server is listening on, or empty if not
// running.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
