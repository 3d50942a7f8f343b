// Package chunk materializes numbered chunks of on-chain collections.
// Contracts store large content (comment threads, long posts) as indexed
// chunks behind get_chunk / get_chunk_meta; the loader fetches them with
// bounded concurrency, coalesces duplicate requests, and expands
// open-ended {{continue}} tags into concrete indices using the chunk
// count from metadata.
package chunk

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/lumenweave/lumen/rpc"
	"github.com/lumenweave/lumen/tag"
)

const (
	// DefaultMaxConcurrent bounds parallel chunk fetches per batch step.
	DefaultMaxConcurrent = 4
	// DefaultBatchSize scales the outer batch: batchSize * maxConcurrent
	// chunks are taken per batch before the abort flag is rechecked.
	DefaultBatchSize = 2
)

// Result is one loaded chunk.
type Result struct {
	Collection string
	Index      int
	Content    string
}

// Options configures a Loader. All callbacks are optional and are invoked
// serially, never from two goroutines at once.
type Options struct {
	MaxConcurrent int
	BatchSize     int

	// OnChunkLoaded fires after each successful chunk fetch.
	OnChunkLoaded func(Result)
	// OnProgress fires after each chunk completes, success or not, with
	// the running (loaded, total) counts for the current LoadTags run.
	OnProgress func(loaded, total int)
	// OnError fires for each failed chunk; remaining chunks keep loading.
	OnError func(collection string, index int, err error)

	Logger *zap.SugaredLogger
}

// Loader fetches chunks for one contract. The chunk cache and in-flight
// map live for the loader's lifetime; Reset clears both.
type Loader struct {
	fetcher    rpc.Fetcher
	contractID string
	opts       Options
	logger     *zap.SugaredLogger

	mu       sync.Mutex
	cache    map[string]string
	inflight map[string]*inflightFetch
	aborted  bool

	// cbMu serializes callback invocations and the progress counters.
	cbMu   sync.Mutex
	loaded int
	total  int
}

// inflightFetch coalesces duplicate requests: late arrivals wait on done
// and share the first fetch's outcome instead of firing their own.
type inflightFetch struct {
	done    chan struct{}
	content string
	err     error
}

// NewLoader creates a Loader for contractID.
func NewLoader(fetcher rpc.Fetcher, contractID string, opts Options) *Loader {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = DefaultMaxConcurrent
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Loader{
		fetcher:    fetcher,
		contractID: contractID,
		opts:       opts,
		logger:     logger,
		cache:      make(map[string]string),
		inflight:   make(map[string]*inflightFetch),
	}
}

func chunkID(collection string, index int) string {
	return collection + ":" + strconv.Itoa(index)
}

// LoadChunk fetches one chunk, deduplicating against the cache and any
// identical in-flight request.
func (l *Loader) LoadChunk(ctx context.Context, collection string, index int) (string, error) {
	id := chunkID(collection, index)

	l.mu.Lock()
	if content, ok := l.cache[id]; ok {
		l.mu.Unlock()
		return content, nil
	}
	if flight, ok := l.inflight[id]; ok {
		l.mu.Unlock()
		<-flight.done
		return flight.content, flight.err
	}
	flight := &inflightFetch{done: make(chan struct{})}
	l.inflight[id] = flight
	l.mu.Unlock()

	content, err := l.fetcher.Call(ctx, l.contractID, "get_chunk", rpc.ChunkArgs(collection, index))

	l.mu.Lock()
	if err == nil {
		l.cache[id] = content
	}
	delete(l.inflight, id)
	l.mu.Unlock()

	flight.content = content
	flight.err = err
	close(flight.done)

	if err != nil {
		return "", err
	}
	return content, nil
}

// Meta fetches chunk metadata for a collection. Failures and absent
// metadata both come back as nil: an unreadable collection degrades to
// zero chunks instead of aborting the page.
func (l *Loader) Meta(ctx context.Context, collection string) *rpc.Meta {
	meta, err := l.fetcher.ChunkMeta(ctx, l.contractID, collection)
	if err != nil {
		l.logger.Warnw("chunk metadata unavailable",
			"collection", collection,
			"error", err.Error(),
		)
		return nil
	}
	return meta
}

// LoadTags loads every chunk named by the given chunk and continuation
// tags. Continuations without a total are bounded by a metadata query.
// Chunks load in batches of BatchSize*MaxConcurrent with at most
// MaxConcurrent fetches in parallel; individual failures go to OnError
// and do not stop the rest. Returns the successfully loaded chunks
// sorted by collection then index.
func (l *Loader) LoadTags(ctx context.Context, chunks []tag.Chunk, continuations []tag.Continuation) []Result {
	expanded := l.expand(ctx, chunks, continuations)

	l.cbMu.Lock()
	l.loaded = 0
	l.total = len(expanded)
	l.cbMu.Unlock()

	if len(expanded) == 0 {
		return nil
	}

	var (
		resultsMu sync.Mutex
		results   []Result
	)

	batch := l.opts.BatchSize * l.opts.MaxConcurrent
	for start := 0; start < len(expanded); start += batch {
		if l.isAborted() {
			l.logger.Debugw("chunk loading aborted", "loaded", len(results), "total", len(expanded))
			break
		}

		end := start + batch
		if end > len(expanded) {
			end = len(expanded)
		}

		sem := make(chan struct{}, l.opts.MaxConcurrent)
		var wg sync.WaitGroup
		for _, ref := range expanded[start:end] {
			if l.isAborted() {
				break
			}
			wg.Add(1)
			sem <- struct{}{}
			go func(ref chunkRef) {
				defer wg.Done()
				defer func() { <-sem }()

				content, err := l.LoadChunk(ctx, ref.collection, ref.index)
				if err != nil {
					l.notifyError(ref.collection, ref.index, err)
					return
				}
				r := Result{
					Collection: ref.collection,
					Index:      ref.index,
					Content:    content,
				}
				resultsMu.Lock()
				results = append(results, r)
				resultsMu.Unlock()
				l.notifyLoaded(r)
			}(ref)
		}
		wg.Wait()
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Collection != results[j].Collection {
			return results[i].Collection < results[j].Collection
		}
		return results[i].Index < results[j].Index
	})
	return results
}

// Abort stops new batches and chunks from starting. In-flight fetches
// finish; their results still land in the cache.
func (l *Loader) Abort() {
	l.mu.Lock()
	l.aborted = true
	l.mu.Unlock()
}

// Reset clears the cache, in-flight state, and the abort flag.
func (l *Loader) Reset() {
	l.mu.Lock()
	l.cache = make(map[string]string)
	l.inflight = make(map[string]*inflightFetch)
	l.aborted = false
	l.mu.Unlock()

	l.cbMu.Lock()
	l.loaded = 0
	l.total = 0
	l.cbMu.Unlock()
}

func (l *Loader) isAborted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.aborted
}

type chunkRef struct {
	collection string
	index      int
}

// expand produces the concrete chunk list: explicit chunk tags first,
// then each continuation unrolled to from..total-1, querying metadata
// when the tag carries no total. Duplicates collapse.
func (l *Loader) expand(ctx context.Context, chunks []tag.Chunk, continuations []tag.Continuation) []chunkRef {
	seen := make(map[string]struct{})
	var refs []chunkRef

	add := func(collection string, index int) {
		id := chunkID(collection, index)
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		refs = append(refs, chunkRef{collection: collection, index: index})
	}

	for _, c := range chunks {
		add(c.Collection, c.Index)
	}

	for _, cont := range continuations {
		if l.isAborted() {
			break
		}
		total := cont.Total
		if !cont.HasTotal {
			meta := l.Meta(ctx, cont.Collection)
			if meta == nil {
				continue
			}
			total = int(meta.Count)
		}
		for i := cont.From; i < total; i++ {
			add(cont.Collection, i)
		}
	}

	return refs
}

func (l *Loader) notifyLoaded(r Result) {
	l.cbMu.Lock()
	defer l.cbMu.Unlock()

	l.loaded++
	if l.opts.OnChunkLoaded != nil {
		l.opts.OnChunkLoaded(r)
	}
	if l.opts.OnProgress != nil {
		l.opts.OnProgress(l.loaded, l.total)
	}
}

func (l *Loader) notifyError(collection string, index int, err error) {
	l.cbMu.Lock()
	defer l.cbMu.Unlock()

	if l.opts.OnError != nil {
		l.opts.OnError(collection, index, err)
	}
	if l.opts.OnProgress != nil {
		l.opts.OnProgress(l.loaded, l.total)
	}
}
