// Package page composes the full render pipeline for one contract page:
// fetch the root render, resolve includes, follow render continuations,
// then materialize chunked collections. The viewer server and the CLI
// both drive pages through this package.
package page

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lumenweave/lumen/chunk"
	"github.com/lumenweave/lumen/config"
	"github.com/lumenweave/lumen/resolve"
	"github.com/lumenweave/lumen/rpc"
	"github.com/lumenweave/lumen/store"
	"github.com/lumenweave/lumen/tag"
	"github.com/lumenweave/lumen/waterfall"
)

// Callbacks surfaces pipeline progress. All fields are optional.
type Callbacks struct {
	OnChunkLoaded       func(chunk.Result)
	OnChunkProgress     func(loaded, total int)
	OnChunkError        func(collection string, index int, err error)
	OnContinuationError func(path string, err error)
	OnIncludesResolved  func(content string)
}

// Result is a fully rendered page.
type Result struct {
	Content             string
	CycleDetected       bool
	ResolvedKeys        int
	ChunksLoaded        int
	ContinuationsLoaded int
	Duration            time.Duration
}

// Renderer renders pages against one gateway. The include cache is
// shared across Render calls, so a Renderer is one page session.
type Renderer struct {
	fetcher   rpc.Fetcher
	cfg       *config.Config
	snapshots *store.Store
	cache     *resolve.Cache
	logger    *zap.SugaredLogger
}

// NewRenderer creates a Renderer. snapshots may be nil to skip
// persistence; logger may be nil for silence.
func NewRenderer(fetcher rpc.Fetcher, cfg *config.Config, snapshots *store.Store, logger *zap.SugaredLogger) *Renderer {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Renderer{
		fetcher:   fetcher,
		cfg:       cfg,
		snapshots: snapshots,
		cache:     resolve.NewCache(),
		logger:    logger,
	}
}

// Snapshot returns the last persisted render for the tuple, or nil when
// there is none or no store is attached.
func (r *Renderer) Snapshot(ctx context.Context, contractID, path, viewer string) (*store.Snapshot, error) {
	if r.snapshots == nil {
		return nil, nil
	}
	return r.snapshots.Get(ctx, r.cfg.Network.Name, contractID, path, viewer)
}

// Render fetches and fully resolves one page.
func (r *Renderer) Render(ctx context.Context, contractID, path, viewer string, cb Callbacks) (*Result, error) {
	started := time.Now()

	root, err := r.fetcher.Call(ctx, contractID, "render", rpc.Positional{Path: path, Viewer: viewer})
	if err != nil {
		return nil, err
	}

	resolved, err := resolve.Includes(ctx, r.fetcher, root, r.resolveOptions(contractID, viewer))
	if err != nil {
		return nil, err
	}
	if cb.OnIncludesResolved != nil {
		cb.OnIncludesResolved(resolved.Content)
	}

	// Render continuations may splice in content that carries its own
	// include tags, so the post-processor resolves each sub-page before
	// substitution.
	wf := waterfall.Load(ctx, r.fetcher, resolved.Content, waterfall.Options{
		ContractID:       contractID,
		Viewer:           viewer,
		MaxContinuations: r.cfg.Waterfall.MaxContinuations,
		MaxConcurrent:    r.cfg.Waterfall.MaxConcurrent,
		PostProcess: func(ctx context.Context, subPath, content string) (string, error) {
			sub, err := resolve.Includes(ctx, r.fetcher, content, r.resolveOptions(contractID, viewer))
			if err != nil {
				return "", err
			}
			return sub.Content, nil
		},
		Logger: r.logger,
	})
	for _, pe := range wf.Errors {
		r.logger.Warnw("render continuation failed",
			"path", pe.Path,
			"error", pe.Err.Error(),
		)
		if cb.OnContinuationError != nil {
			cb.OnContinuationError(pe.Path, pe.Err)
		}
	}

	content := wf.Content

	loader := chunk.NewLoader(r.fetcher, contractID, chunk.Options{
		MaxConcurrent: r.cfg.Chunks.MaxConcurrent,
		BatchSize:     r.cfg.Chunks.BatchSize,
		OnChunkLoaded: cb.OnChunkLoaded,
		OnProgress:    cb.OnChunkProgress,
		OnError:       cb.OnChunkError,
		Logger:        r.logger,
	})
	chunks := loader.LoadTags(ctx, tag.ParseChunks(content), tag.ParseContinuations(content))
	content = chunk.Apply(content, chunks)

	result := &Result{
		Content:             content,
		CycleDetected:       resolved.CycleDetected,
		ResolvedKeys:        len(resolved.ResolvedKeys),
		ChunksLoaded:        len(chunks),
		ContinuationsLoaded: wf.ContinuationsLoaded,
		Duration:            time.Since(started),
	}

	if r.snapshots != nil {
		if err := r.snapshots.Save(ctx, store.Snapshot{
			Network:       r.cfg.Network.Name,
			ContractID:    contractID,
			Path:          path,
			Viewer:        viewer,
			Content:       content,
			CycleDetected: result.CycleDetected,
			ResolvedKeys:  result.ResolvedKeys,
		}); err != nil {
			// The render already succeeded; persistence failure is
			// reported but not fatal.
			r.logger.Warnw("snapshot save failed",
				"contract", contractID,
				"path", path,
				"error", err.Error(),
			)
		}
	}

	r.logger.Infow("page rendered",
		"contract", contractID,
		"path", path,
		"chunks", result.ChunksLoaded,
		"continuations", result.ContinuationsLoaded,
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, nil
}

func (r *Renderer) resolveOptions(contractID, viewer string) resolve.Options {
	return resolve.Options{
		ContractID: contractID,
		Viewer:     viewer,
		Cache:      r.cache,
		TTL:        time.Duration(r.cfg.Resolver.TTLSeconds) * time.Second,
		MaxDepth:   r.cfg.Resolver.MaxDepth,
		Logger:     r.logger,
	}
}
