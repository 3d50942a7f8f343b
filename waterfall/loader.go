// Package waterfall loads render continuations: whole sub-pages
// referenced by {{render path=...}} placeholders. Each round fetches
// the newly discovered paths, runs the content through a caller
// post-processor, and splices it in, repeating until no unfetched
// paths remain or the continuation limit is reached.
package waterfall

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/lumenweave/lumen/rpc"
	"github.com/lumenweave/lumen/tag"
)

const (
	// DefaultMaxContinuations caps sub-page fetches per loader run.
	DefaultMaxContinuations = 10
	// DefaultMaxConcurrent bounds parallel fetches within one round.
	DefaultMaxConcurrent = 4
)

// PostProcessor transforms fetched sub-page content before it is
// substituted. It may introduce new {{render}} placeholders, which the
// next round picks up.
type PostProcessor func(ctx context.Context, path, content string) (string, error)

// Options configures one Load run.
type Options struct {
	// ContractID is the contract whose render function serves paths.
	ContractID string
	// Viewer is forwarded to render calls, empty for anonymous.
	Viewer string

	MaxContinuations int
	MaxConcurrent    int
	PostProcess      PostProcessor

	Logger *zap.SugaredLogger
}

// PathError records one failed sub-page fetch.
type PathError struct {
	Path string
	Err  error
}

// Result is the outcome of a Load run.
type Result struct {
	Content             string
	ContinuationsLoaded int
	Errors              []PathError
}

// Load resolves render placeholders in initial until convergence. A
// path is fetched at most once per run, even if newly loaded content
// repeats its placeholder verbatim. Per-path failures are collected in
// Result.Errors; the failed placeholder is removed so it cannot
// retrigger, and other paths keep loading.
func Load(ctx context.Context, fetcher rpc.Fetcher, initial string, opts Options) *Result {
	if opts.MaxContinuations <= 0 {
		opts.MaxContinuations = DefaultMaxContinuations
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = DefaultMaxConcurrent
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	result := &Result{Content: initial}
	fetched := make(map[string]struct{})

	for result.ContinuationsLoaded < opts.MaxContinuations {
		paths := newPaths(result.Content, fetched)
		if len(paths) == 0 {
			break
		}
		if remaining := opts.MaxContinuations - result.ContinuationsLoaded; len(paths) > remaining {
			logger.Warnw("continuation limit reached",
				"limit", opts.MaxContinuations,
				"pending", len(paths),
			)
			paths = paths[:remaining]
		}

		// Mark before fetching so a placeholder reappearing in this
		// round's own output can never be fetched twice.
		for _, p := range paths {
			fetched[p] = struct{}{}
		}

		loaded, errs := fetchRound(ctx, fetcher, paths, opts)
		result.Errors = append(result.Errors, errs...)
		result.ContinuationsLoaded += len(loaded)

		result.Content = substitute(result.Content, loaded, errs)

		logger.Debugw("continuation round complete",
			"loaded", result.ContinuationsLoaded,
			"continuations", len(paths),
		)
	}

	return result
}

// newPaths returns the placeholder paths in content that have not been
// fetched yet, in document order without duplicates.
func newPaths(content string, fetched map[string]struct{}) []string {
	var paths []string
	seen := make(map[string]struct{})
	for _, r := range tag.ParseRenders(content) {
		if _, done := fetched[r.Path]; done {
			continue
		}
		if _, dup := seen[r.Path]; dup {
			continue
		}
		seen[r.Path] = struct{}{}
		paths = append(paths, r.Path)
	}
	return paths
}

// fetchRound fetches one batch of paths with bounded concurrency and
// returns the post-processed content per path.
func fetchRound(ctx context.Context, fetcher rpc.Fetcher, paths []string, opts Options) (map[string]string, []PathError) {
	var (
		mu     sync.Mutex
		loaded = make(map[string]string, len(paths))
		errs   []PathError
	)

	sem := make(chan struct{}, opts.MaxConcurrent)
	var wg sync.WaitGroup
	for _, path := range paths {
		wg.Add(1)
		sem <- struct{}{}
		go func(path string) {
			defer wg.Done()
			defer func() { <-sem }()

			content, err := fetcher.Call(ctx, opts.ContractID, "render", rpc.Positional{
				Path:   path,
				Viewer: opts.Viewer,
			})
			if err == nil && opts.PostProcess != nil {
				content, err = opts.PostProcess(ctx, path, content)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, PathError{Path: path, Err: err})
				return
			}
			loaded[path] = content
		}(path)
	}
	wg.Wait()

	sort.Slice(errs, func(i, j int) bool { return errs[i].Path < errs[j].Path })
	return loaded, errs
}

// substitute replaces every placeholder whose path loaded this round
// with its content, and strips placeholders for paths that failed.
// Replacement runs in reverse offset order so earlier offsets stay
// valid while splicing.
func substitute(content string, loaded map[string]string, errs []PathError) string {
	failed := make(map[string]struct{}, len(errs))
	for _, e := range errs {
		failed[e.Path] = struct{}{}
	}

	renders := tag.ParseRenders(content)
	for i := len(renders) - 1; i >= 0; i-- {
		r := renders[i]
		replacement, ok := loaded[r.Path]
		if !ok {
			if _, fail := failed[r.Path]; !fail {
				continue
			}
			replacement = ""
		}
		var b strings.Builder
		b.Grow(len(content) - (r.End - r.Start) + len(replacement))
		b.WriteString(content[:r.Start])
		b.WriteString(replacement)
		b.WriteString(content[r.End:])
		content = b.String()
	}
	return content
}
