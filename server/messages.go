package server

// RequestMessage is an incoming websocket message from a viewer.
type RequestMessage struct {
	Type     string `json:"type"`
	Contract string `json:"contract,omitempty"`
	Path     string `json:"path,omitempty"`
	Viewer   string `json:"viewer,omitempty"`
}

// SnapshotMessage carries the last persisted render, sent immediately
// while a fresh resolution runs.
type SnapshotMessage struct {
	Type      string `json:"type"` // "snapshot"
	Contract  string `json:"contract"`
	Path      string `json:"path"`
	Content   string `json:"content"`
	Digest    string `json:"digest"`
	Timestamp int64  `json:"timestamp"`
}

// ResolveStartedMessage acknowledges a resolve request.
type ResolveStartedMessage struct {
	Type      string `json:"type"` // "resolve_started"
	Contract  string `json:"contract"`
	Path      string `json:"path"`
	Timestamp int64  `json:"timestamp"`
}

// IncludesResolvedMessage carries the document after include resolution,
// before chunks and continuations land.
type IncludesResolvedMessage struct {
	Type      string `json:"type"` // "includes_resolved"
	Contract  string `json:"contract"`
	Path      string `json:"path"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// ChunkLoadedMessage reports one materialized chunk.
type ChunkLoadedMessage struct {
	Type       string `json:"type"` // "chunk_loaded"
	Collection string `json:"collection"`
	Index      int    `json:"index"`
	Content    string `json:"content"`
	Timestamp  int64  `json:"timestamp"`
}

// ChunkProgressMessage reports running chunk-load progress.
type ChunkProgressMessage struct {
	Type      string `json:"type"` // "chunk_progress"
	Loaded    int    `json:"loaded"`
	Total     int    `json:"total"`
	Timestamp int64  `json:"timestamp"`
}

// ChunkErrorMessage reports a failed chunk; the rest keep loading.
type ChunkErrorMessage struct {
	Type       string `json:"type"` // "chunk_error"
	Collection string `json:"collection"`
	Index      int    `json:"index"`
	Error      string `json:"error"`
	Timestamp  int64  `json:"timestamp"`
}

// ContinuationErrorMessage reports a failed sub-page fetch.
type ContinuationErrorMessage struct {
	Type      string `json:"type"` // "continuation_error"
	Path      string `json:"path"`
	Error     string `json:"error"`
	Timestamp int64  `json:"timestamp"`
}

// ResolveCompleteMessage carries the final rendered page.
type ResolveCompleteMessage struct {
	Type                string `json:"type"` // "resolve_complete"
	Contract            string `json:"contract"`
	Path                string `json:"path"`
	Content             string `json:"content"`
	CycleDetected       bool   `json:"cycle_detected"`
	ResolvedKeys        int    `json:"resolved_keys"`
	ChunksLoaded        int    `json:"chunks_loaded"`
	ContinuationsLoaded int    `json:"continuations_loaded"`
	DurationMs          int64  `json:"duration_ms"`
	Timestamp           int64  `json:"timestamp"`
}

// ResolveErrorMessage reports a render that could not start or finish.
type ResolveErrorMessage struct {
	Type      string `json:"type"` // "resolve_error"
	Contract  string `json:"contract"`
	Path      string `json:"path"`
	Error     string `json:"error"`
	Timestamp int64  `json:"timestamp"`
}
