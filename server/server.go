// Package server runs the viewer server: an HTTP endpoint for page
// snapshots and a websocket stream over which clients request renders
// and receive progressive chunk and continuation events.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lumenweave/lumen/config"
	"github.com/lumenweave/lumen/errors"
	"github.com/lumenweave/lumen/page"
)

// Server owns the client set and the HTTP listener.
type Server struct {
	cfg      *config.Config
	renderer *page.Renderer
	logger   *zap.SugaredLogger

	mu         sync.RWMutex
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client

	httpServer *http.Server
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// New creates a Server around a renderer.
func New(cfg *config.Config, renderer *page.Renderer, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:        cfg,
		renderer:   renderer,
		logger:     logger,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Port returns the configured listen port.
func (s *Server) Port() int {
	if s.cfg.Server.Port != nil {
		return *s.cfg.Server.Port
	}
	return config.DefaultServerPort
}

// Start binds the listener and serves until Shutdown. Blocks.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/page", s.handlePage)

	addr := fmt.Sprintf(":%d", s.Port())
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run()
	}()

	s.logger.Infow("viewer server listening",
		"addr", addr,
		"network", s.cfg.Network.Name,
	)

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return errors.Wrap(err, "viewer server")
}

// Shutdown stops the listener, disconnects clients, and waits for
// in-flight work.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}

	s.mu.Lock()
	for client := range s.clients {
		client.close()
	}
	s.clients = make(map[*Client]bool)
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Infow("viewer server stopped")
	return err
}

// run owns the client registry.
func (s *Server) run() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case client := <-s.register:
			s.mu.Lock()
			s.clients[client] = true
			count := len(s.clients)
			s.mu.Unlock()
			s.logger.Infow("viewer connected",
				"client_id", client.id,
				"clients", count,
			)
		case client := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				client.close()
			}
			count := len(s.clients)
			s.mu.Unlock()
			s.logger.Infow("viewer disconnected",
				"client_id", client.id,
				"clients", count,
			)
		}
	}
}
