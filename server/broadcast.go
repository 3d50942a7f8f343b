package server

import (
	"time"

	"github.com/lumenweave/lumen/chunk"
	"github.com/lumenweave/lumen/page"
)

// broadcastMessage sends a message to all connected clients. Returns
// the number of clients that accepted it (channel not full).
func (s *Server) broadcastMessage(msg interface{}) int {
	s.mu.RLock()
	clients := make([]*Client, 0, len(s.clients))
	for client := range s.clients {
		clients = append(clients, client)
	}
	s.mu.RUnlock()

	sent := 0
	for _, client := range clients {
		client.closeMu.Lock()
		if !client.closed {
			select {
			case client.sendMsg <- msg:
				sent++
			default:
			}
		}
		client.closeMu.Unlock()
	}
	return sent
}

// resolveForClient renders one page, streaming progress to the
// requesting client and broadcasting chunk events so every viewer of
// the page stays current.
func (s *Server) resolveForClient(c *Client, contract, path, viewer string) {
	c.send(ResolveStartedMessage{
		Type:      "resolve_started",
		Contract:  contract,
		Path:      path,
		Timestamp: time.Now().Unix(),
	})

	// Warm start: show the last persisted render while resolving.
	if snap, err := s.renderer.Snapshot(s.ctx, contract, path, viewer); err == nil && snap != nil {
		c.send(SnapshotMessage{
			Type:      "snapshot",
			Contract:  contract,
			Path:      path,
			Content:   snap.Content,
			Digest:    snap.Digest,
			Timestamp: snap.CreatedAt.Unix(),
		})
	}

	result, err := s.renderer.Render(s.ctx, contract, path, viewer, page.Callbacks{
		OnIncludesResolved: func(content string) {
			c.send(IncludesResolvedMessage{
				Type:      "includes_resolved",
				Contract:  contract,
				Path:      path,
				Content:   content,
				Timestamp: time.Now().Unix(),
			})
		},
		OnChunkLoaded: func(r chunk.Result) {
			s.broadcastMessage(ChunkLoadedMessage{
				Type:       "chunk_loaded",
				Collection: r.Collection,
				Index:      r.Index,
				Content:    r.Content,
				Timestamp:  time.Now().Unix(),
			})
		},
		OnChunkProgress: func(loaded, total int) {
			c.send(ChunkProgressMessage{
				Type:      "chunk_progress",
				Loaded:    loaded,
				Total:     total,
				Timestamp: time.Now().Unix(),
			})
		},
		OnChunkError: func(collection string, index int, err error) {
			c.send(ChunkErrorMessage{
				Type:       "chunk_error",
				Collection: collection,
				Index:      index,
				Error:      err.Error(),
				Timestamp:  time.Now().Unix(),
			})
		},
		OnContinuationError: func(p string, err error) {
			c.send(ContinuationErrorMessage{
				Type:      "continuation_error",
				Path:      p,
				Error:     err.Error(),
				Timestamp: time.Now().Unix(),
			})
		},
	})
	if err != nil {
		s.logger.Warnw("resolve failed",
			"contract", contract,
			"path", path,
			"client_id", c.id,
			"error", err.Error(),
		)
		c.send(ResolveErrorMessage{
			Type:      "resolve_error",
			Contract:  contract,
			Path:      path,
			Error:     err.Error(),
			Timestamp: time.Now().Unix(),
		})
		return
	}

	c.send(ResolveCompleteMessage{
		Type:                "resolve_complete",
		Contract:            contract,
		Path:                path,
		Content:             result.Content,
		CycleDetected:       result.CycleDetected,
		ResolvedKeys:        result.ResolvedKeys,
		ChunksLoaded:        result.ChunksLoaded,
		ContinuationsLoaded: result.ContinuationsLoaded,
		DurationMs:          result.Duration.Milliseconds(),
		Timestamp:           time.Now().Unix(),
	})
}
