package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// checkOrigin allows requests with no Origin header (direct websocket
// clients, curl) and otherwise prefix-matches against the configured
// allowed origins so any port number works.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.Server.AllowedOrigins {
		if strings.HasPrefix(origin, allowed) {
			return true
		}
	}
	return false
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: s.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnw("websocket upgrade failed",
			"error", err.Error(),
			"remote", r.RemoteAddr,
		)
		return
	}

	client := &Client{
		server:  s,
		conn:    conn,
		sendMsg: make(chan interface{}, sendBuffer),
		id:      uuid.NewString()[:8],
	}

	s.register <- client

	go client.writePump()
	go client.readPump()
}

// handleResolve renders a page for one client, streaming progress as it
// goes. The render moves to its own goroutine so the read pump keeps
// servicing pings.
func (c *Client) handleResolve(msg *RequestMessage) {
	if msg.Contract == "" {
		c.send(ResolveErrorMessage{
			Type:      "resolve_error",
			Path:      msg.Path,
			Error:     "contract is required",
			Timestamp: time.Now().Unix(),
		})
		return
	}

	go c.server.resolveForClient(c, msg.Contract, msg.Path, msg.Viewer)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	clients := len(s.clients)
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"network": s.cfg.Network.Name,
		"clients": clients,
	})
}

// handlePage serves the last persisted snapshot for a page, if any.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	contract := r.URL.Query().Get("contract")
	if contract == "" {
		http.Error(w, "contract is required", http.StatusBadRequest)
		return
	}
	path := r.URL.Query().Get("path")
	viewer := r.URL.Query().Get("viewer")

	snap, err := s.renderer.Snapshot(r.Context(), contract, path, viewer)
	if err != nil {
		s.logger.Warnw("snapshot lookup failed",
			"contract", contract,
			"error", err.Error(),
		)
		http.Error(w, "snapshot lookup failed", http.StatusInternalServerError)
		return
	}
	if snap == nil {
		http.Error(w, "no snapshot", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"contract":   snap.ContractID,
		"path":       snap.Path,
		"content":    snap.Content,
		"digest":     snap.Digest,
		"created_at": snap.CreatedAt.Unix(),
	})
}
