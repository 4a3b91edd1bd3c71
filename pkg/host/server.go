// Package host is the HTTP server handed to plugins as the host reference
// during Configure.
//
// Plugins that serve HTTP type-assert the host to Host and mount routes on
// its router:
//
//	func (p *Weather) Configure(ctx context.Context, r container.Resolver, h any) error {
//	    if web, ok := h.(host.Host); ok {
//	        web.Router().Get("/weatherforecast", p.forecast)
//	    }
//	    return nil
//	}
package host

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/plughost/internal/logger"
	"github.com/marmos91/plughost/pkg/host/handlers"
)

// Host is the capability plugins look for in the host reference.
type Host interface {
	Router() chi.Router
}

// Server is the plugin host's HTTP server.
type Server struct {
	config Config
	router chi.Router
	server *http.Server

	mu       sync.Mutex
	listener net.Listener

	shutdownOnce sync.Once
}

var _ Host = (*Server)(nil)

// NewServer creates a stopped server listing the plugins of lister, which
// may be nil.
func NewServer(cfg Config, lister handlers.PluginLister) *Server {
	cfg.applyDefaults()
	router := NewRouter(lister, cfg)

	return &Server{
		config: cfg,
		router: router,
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
	}
}

// Router returns the router plugins mount their routes on.
func (s *Server) Router() chi.Router { return s.router }

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Start listens and serves until ctx is cancelled or serving fails.
// Cancellation triggers a graceful shutdown bounded by ShutdownTimeout.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("HTTP host listen: %w", err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		logger.Info("HTTP host listening", "addr", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		logger.Info("HTTP host shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		err := s.Stop(shutdownCtx)
		<-errChan
		return err
	case err, ok := <-errChan:
		if !ok {
			return nil
		}
		return fmt.Errorf("HTTP host failed: %w", err)
	}
}

// Stop shuts the server down gracefully. It is safe to call more than once.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("HTTP host shutdown: %w", err)
			logger.Error("HTTP host shutdown error", logger.Err(err))
			return
		}
		logger.Info("HTTP host stopped gracefully")
	})
	return shutdownErr
}

// Addr returns the listening address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}
