package resolve

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lumenweave/lumen/errors"
	"github.com/lumenweave/lumen/rpc"
	"github.com/lumenweave/lumen/tag"
)

const (
	// DefaultTTL bounds cache entry freshness when the caller does not
	// supply one. Short on purpose: contract state changes between blocks.
	DefaultTTL = 30 * time.Second

	// DefaultMaxDepth caps non-cyclic include chains. Cycles are caught by
	// the ancestor set; this guards against A→B→C→... towers that are
	// technically acyclic but practically runaway.
	DefaultMaxDepth = 16
)

// SelfContract is the sentinel reference meaning "the contract currently
// being rendered".
const SelfContract = "SELF"

// Inline markers substituted for includes that could not be resolved.
// They are plain markdown so a reader sees what went wrong in place.
const (
	cycleMarker = "> ⚠ circular include skipped"
	depthMarker = "> ⚠ include depth limit reached"
)

func errorMarker(reason string) string {
	return "> ⚠ include failed: " + reason
}

// Options configures one resolution call.
type Options struct {
	// ContractID is the contract being rendered; SELF references resolve
	// to it. Required.
	ContractID string
	// Viewer is the optional viewing account, passed to legacy-convention
	// renders and as the viewer named parameter.
	Viewer string
	// Cache may be shared across resolution calls within a page session.
	// Nil gets a fresh private cache.
	Cache *Cache
	// TTL judges cache entry freshness. Zero means DefaultTTL.
	TTL time.Duration
	// Aliases seeds the table before any {{aliases}} tags are collected.
	Aliases AliasTable
	// MaxDepth caps include recursion. Zero means DefaultMaxDepth.
	MaxDepth int
	// Logger defaults to a nop logger.
	Logger *zap.SugaredLogger
}

// Result is the outcome of one resolution call. Cycles and fetch failures
// are recovered into inline markers, never returned as errors; an error
// from Includes means a programmer error escaped the fetcher.
type Result struct {
	Content       string
	CycleDetected bool
	ResolvedKeys  []Key
}

// Includes resolves every include tag in text, recursively, and returns
// the flat document.
func Includes(ctx context.Context, fetcher rpc.Fetcher, text string, opts Options) (*Result, error) {
	if opts.TTL == 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxDepth == 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.Cache == nil {
		opts.Cache = NewCache()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}

	aliases := NewAliasTable()
	for name, value := range opts.Aliases {
		aliases[name] = value
	}

	r := &resolver{
		fetcher: fetcher,
		opts:    opts,
		aliases: aliases,
		logger:  opts.Logger,
	}

	content, err := r.pass(ctx, text, make(AncestorSet), 0)
	if err != nil {
		return nil, err
	}

	return &Result{
		Content:       content,
		CycleDetected: r.cycleDetected,
		ResolvedKeys:  r.resolvedKeys,
	}, nil
}

type resolver struct {
	fetcher rpc.Fetcher
	opts    Options
	aliases AliasTable
	logger  *zap.SugaredLogger

	cycleDetected bool
	resolvedKeys  []Key
}

// pass resolves one snapshot of text. It runs the noparse guard, folds in
// alias definitions, then walks include tags in reverse document order so
// earlier offsets stay valid while later spans are replaced. Ancestors is
// this call's lineage only; it is extended copy-on-recurse.
func (r *resolver) pass(ctx context.Context, text string, ancestors AncestorSet, depth int) (string, error) {
	text, guard := extractNoparse(text)

	if tag.HasAliasTags(text) {
		r.aliases.Collect(text)
		r.aliases.ResolveValues()
		text = stripAliasTags(text)
	}

	includes := tag.ParseIncludes(text)
	if len(includes) == 0 {
		return guard.restore(text), nil
	}

	// Replacements indexed like includes; filled back-to-front.
	replacements := make([]string, len(includes))
	for i := len(includes) - 1; i >= 0; i-- {
		replacement, err := r.resolveOne(ctx, includes[i], ancestors, depth)
		if err != nil {
			return "", err
		}
		replacements[i] = replacement
	}

	return guard.restore(splice(text, includes, replacements)), nil
}

// resolveOne produces the replacement text for a single include tag.
// Cycles, depth limits, and remote failures come back as inline markers;
// only unexpected errors propagate.
func (r *resolver) resolveOne(ctx context.Context, inc tag.Include, ancestors AncestorSet, depth int) (string, error) {
	contractID := r.resolveContract(inc.Contract)
	function := inc.TargetFunction()
	key := BuildKey(contractID, function, inc.Path, inc.Params)

	if ancestors.Has(key) {
		r.cycleDetected = true
		r.logger.Debugw("include cycle detected", "key", string(key), "contract", contractID)
		return cycleMarker, nil
	}

	if cached, ok := r.opts.Cache.Get(key, r.opts.TTL); ok {
		// Cached content is already fully resolved; no recursion.
		r.resolvedKeys = append(r.resolvedKeys, key)
		r.logger.Debugw("include cache hit", "key", string(key))
		return cached, nil
	}

	if depth+1 > r.opts.MaxDepth {
		r.logger.Warnw("include depth limit reached", "contract", contractID, "depth", depth)
		return depthMarker, nil
	}

	raw, err := r.fetcher.Call(ctx, contractID, function, r.callArgs(inc))
	if err != nil {
		if errors.IsRemoteCall(err) {
			r.logger.Warnw("include fetch failed",
				"contract", contractID,
				"error", err.Error(),
			)
			return errorMarker(err.Error()), nil
		}
		return "", err
	}

	resolved, err := r.pass(ctx, raw, ancestors.With(key), depth+1)
	if err != nil {
		return "", err
	}

	r.opts.Cache.Put(key, resolved)
	r.resolvedKeys = append(r.resolvedKeys, key)
	return resolved, nil
}

// resolveContract maps the tag's contract reference to a concrete id.
// SELF means the contract being rendered; alias references fall back to
// the literal string when unresolved, deferring the failure to the fetch.
func (r *resolver) resolveContract(ref string) string {
	if ref == SelfContract {
		return r.opts.ContractID
	}
	resolved, ok := r.aliases.Resolve(ref)
	if !ok {
		r.logger.Warnw("alias unresolved, using literal reference", "contract", ref)
	}
	return resolved
}

// callArgs picks the calling convention for an include. Parameterized
// includes pass path, viewer, and their params as named arguments; legacy
// includes use the conventional positional (path, viewer) pair.
func (r *resolver) callArgs(inc tag.Include) rpc.Args {
	if !inc.Parameterized() {
		return rpc.Positional{Path: inc.Path, Viewer: r.opts.Viewer}
	}

	var named rpc.Named
	if inc.Path != "" {
		named = append(named, rpc.NamedArg{Name: "path", Value: inc.Path})
	}
	if r.opts.Viewer != "" {
		named = append(named, rpc.NamedArg{Name: "viewer", Value: r.opts.Viewer})
	}
	for _, name := range inc.Params.SortedNames() {
		attr := inc.Params[name]
		named = append(named, rpc.NamedArg{
			Name:   name,
			Value:  attr.Value,
			IsFlag: attr.IsFlag,
		})
	}
	return named
}

// splice rebuilds text with each tag span replaced, as one ordered walk
// over (literal, replacement) segments. Offsets refer to the snapshot the
// tags were parsed from, so no incremental slicing can invalidate them.
func splice(text string, includes []tag.Include, replacements []string) string {
	var b strings.Builder
	b.Grow(len(text))

	last := 0
	for i, inc := range includes {
		b.WriteString(text[last:inc.Start])
		b.WriteString(replacements[i])
		last = inc.End
	}
	b.WriteString(text[last:])
	return b.String()
}

// stripAliasTags removes {{aliases ...}} tags from text. They are
// directives, not content; leaving them in would render as literal text.
func stripAliasTags(text string) string {
	aliases := tag.ParseAliases(text)
	if len(aliases) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, a := range aliases {
		b.WriteString(text[last:a.Start])
		last = a.End
	}
	b.WriteString(text[last:])
	return b.String()
}
