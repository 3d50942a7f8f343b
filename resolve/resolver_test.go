package resolve

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenweave/lumen/rpc"
)

func resolveText(t *testing.T, fetcher rpc.Fetcher, text string, opts Options) *Result {
	t.Helper()
	if opts.ContractID == "" {
		opts.ContractID = "C1"
	}
	result, err := Includes(context.Background(), fetcher, text, opts)
	require.NoError(t, err)
	return result
}

func TestIncludes_NoTagsIsNoop(t *testing.T) {
	stub := rpc.NewStubFetcher()
	text := "# Just markdown\n\nwith *no* tags at all."

	result := resolveText(t, stub, text, Options{})

	assert.Equal(t, text, result.Content)
	assert.False(t, result.CycleDetected)
	assert.Empty(t, result.ResolvedKeys)
	assert.Zero(t, stub.TotalCalls(), "nothing to resolve, nothing fetched")
}

func TestIncludes_BasicSubstitution(t *testing.T) {
	stub := rpc.NewStubFetcher().Respond("X", "render_h", "H")

	result := resolveText(t, stub, `A {{include contract=X func="h"}} B`, Options{})

	assert.Equal(t, "A H B", result.Content)
	assert.False(t, result.CycleDetected)
	require.Len(t, result.ResolvedKeys, 1)
	assert.Equal(t, 1, stub.CallCount("X", "render_h"))
}

func TestIncludes_DefaultFunctionIsRender(t *testing.T) {
	stub := rpc.NewStubFetcher().Respond("X", "render", "page")

	result := resolveText(t, stub, `{{include contract=X}}`, Options{})

	assert.Equal(t, "page", result.Content)
	assert.Equal(t, 1, stub.CallCount("X", "render"))
}

func TestIncludes_LegacyCallingConvention(t *testing.T) {
	stub := rpc.NewStubFetcher().Respond("X", "render_nav", "nav")

	resolveText(t, stub, `{{include contract=X func="nav" path="/home"}}`, Options{
		Viewer: "GVIEWER",
	})

	calls := stub.Calls()
	require.Len(t, calls, 1)
	pos, ok := calls[0].Args.(rpc.Positional)
	require.True(t, ok, "no params and no _include suffix selects positional args")
	assert.Equal(t, "/home", pos.Path)
	assert.Equal(t, "GVIEWER", pos.Viewer)
}

func TestIncludes_ParameterizedCallingConvention(t *testing.T) {
	stub := rpc.NewStubFetcher().Respond("X", "stats_include", "stats")

	resolveText(t, stub, `{{include contract=X func="stats_include" limit="10" verbose}}`, Options{})

	calls := stub.Calls()
	require.Len(t, calls, 1)
	named, ok := calls[0].Args.(rpc.Named)
	require.True(t, ok, "_include suffix selects named args")

	byName := map[string]rpc.NamedArg{}
	for _, a := range named {
		byName[a.Name] = a
	}
	assert.Equal(t, "10", byName["limit"].Value)
	assert.True(t, byName["verbose"].IsFlag)
}

func TestIncludes_SelfResolvesToOwnContract(t *testing.T) {
	stub := rpc.NewStubFetcher().Respond("C1", "render_footer", "footer")

	result := resolveText(t, stub, `{{include contract=SELF func="footer"}}`, Options{ContractID: "C1"})

	assert.Equal(t, "footer", result.Content)
	assert.Equal(t, 1, stub.CallCount("C1", "render_footer"))
}

func TestIncludes_DirectCycle(t *testing.T) {
	// C1's render_self returns the same include tag again.
	stub := rpc.NewStubFetcher().Respond("C1", "render_self", `{{include contract=SELF func="self"}}`)

	result := resolveText(t, stub, `{{include contract=SELF func="self"}}`, Options{ContractID: "C1"})

	assert.True(t, result.CycleDetected)
	assert.Equal(t, 1, stub.CallCount("C1", "render_self"), "exactly one fetch before the cycle is caught")
	assert.Contains(t, result.Content, "circular include")
}

func TestIncludes_IndirectCycle(t *testing.T) {
	stub := rpc.NewStubFetcher().
		Respond("A", "render", `from A: {{include contract=B}}`).
		Respond("B", "render", `from B: {{include contract=A}}`)

	result := resolveText(t, stub, `{{include contract=A}}`, Options{})

	assert.True(t, result.CycleDetected)
	assert.Equal(t, 1, stub.CallCount("A", "render"))
	assert.Equal(t, 1, stub.CallCount("B", "render"))
	assert.Contains(t, result.Content, "from A")
	assert.Contains(t, result.Content, "from B")
}

func TestIncludes_SiblingsAreNotAncestors(t *testing.T) {
	// The same contract included twice as siblings is not a cycle.
	stub := rpc.NewStubFetcher().Respond("X", "render_h", "H")

	result := resolveText(t, stub, `{{include contract=X func="h"}} {{include contract=X func="h"}}`, Options{})

	assert.False(t, result.CycleDetected)
	assert.Equal(t, "H H", result.Content)
	assert.Equal(t, 1, stub.CallCount("X", "render_h"), "second sibling is served from cache")
}

func TestIncludes_FetchFailureRecoveredInline(t *testing.T) {
	stub := rpc.NewStubFetcher().
		Fail("BAD", "render", errRemote("simulation failed")).
		Respond("GOOD", "render", "ok")

	result := resolveText(t, stub, `{{include contract=BAD}} {{include contract=GOOD}}`, Options{})

	assert.Contains(t, result.Content, "include failed")
	assert.Contains(t, result.Content, "simulation failed")
	assert.Contains(t, result.Content, "ok", "siblings keep resolving after a failure")
	assert.False(t, result.CycleDetected)
}

func TestIncludes_CacheSharedAcrossCalls(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	cache := NewCacheWithClock(clock.Now)
	stub := rpc.NewStubFetcher().Respond("X", "render_h", "H")
	opts := Options{ContractID: "C1", Cache: cache, TTL: 30 * time.Second}

	first := resolveText(t, stub, `{{include contract=X func="h"}}`, opts)
	second := resolveText(t, stub, `{{include contract=X func="h"}}`, opts)

	assert.Equal(t, first.Content, second.Content)
	assert.Equal(t, 1, stub.CallCount("X", "render_h"), "second resolution hits the cache")

	clock.Advance(31 * time.Second)
	resolveText(t, stub, `{{include contract=X func="h"}}`, opts)
	assert.Equal(t, 2, stub.CallCount("X", "render_h"), "TTL expiry triggers a refetch")
}

func TestIncludes_Deterministic(t *testing.T) {
	text := `start {{include contract=X func="a"}} mid {{include contract=X func="b"}} end`

	run := func() string {
		stub := rpc.NewStubFetcher().
			Respond("X", "render_a", "AAA").
			Respond("X", "render_b", "BBB")
		return resolveText(t, stub, text, Options{}).Content
	}

	first := run()
	second := run()
	assert.Equal(t, first, second)
	assert.Equal(t, "start AAA mid BBB end", first)
}

func TestIncludes_NoparseProtectsTagText(t *testing.T) {
	stub := rpc.NewStubFetcher()
	inner := `{{include contract=X func="h"}}`
	text := "docs: {{noparse}}" + inner + "{{/noparse}}"

	result := resolveText(t, stub, text, Options{})

	assert.Equal(t, "docs: "+inner, result.Content)
	assert.Zero(t, stub.TotalCalls(), "protected tags are never fetched")
	assert.Empty(t, result.ResolvedKeys)
}

func TestIncludes_NoparseInFetchedContent(t *testing.T) {
	stub := rpc.NewStubFetcher().
		Respond("X", "render", `example: {{noparse}}{{include contract=Y}}{{/noparse}}`)

	result := resolveText(t, stub, `{{include contract=X}}`, Options{})

	assert.Equal(t, "example: {{include contract=Y}}", result.Content)
	assert.Zero(t, stub.CallCount("Y", "render"))
}

func TestIncludes_AliasResolution(t *testing.T) {
	stub := rpc.NewStubFetcher().Respond("CTHEME", "render_header", "HEADER")

	text := `{{aliases theme=CTHEME}}{{include contract=@theme func="header"}}`
	result := resolveText(t, stub, text, Options{})

	assert.Equal(t, "HEADER", result.Content, "aliases tags are stripped from output")
	assert.Equal(t, 1, stub.CallCount("CTHEME", "render_header"))
}

func TestIncludes_AliasFromOptions(t *testing.T) {
	stub := rpc.NewStubFetcher().Respond("CTHEME", "render", "themed")

	result := resolveText(t, stub, `{{include contract=@theme}}`, Options{
		Aliases: AliasTable{"theme": "CTHEME"},
	})

	assert.Equal(t, "themed", result.Content)
}

func TestIncludes_UnresolvedAliasFailsAtFetch(t *testing.T) {
	stub := rpc.NewStubFetcher()

	result := resolveText(t, stub, `{{include contract=@nowhere}}`, Options{})

	// Literal fallback: the fetch against "@nowhere" fails and is
	// recovered inline.
	assert.Contains(t, result.Content, "include failed")
	assert.Equal(t, 1, stub.CallCount("@nowhere", "render"))
}

func TestIncludes_DepthLimit(t *testing.T) {
	// Each level includes a distinct contract so the ancestor set never
	// fires; only the depth ceiling stops the tower.
	stub := rpc.NewStubFetcher().
		Respond("L1", "render", `{{include contract=L2}}`).
		Respond("L2", "render", `{{include contract=L3}}`).
		Respond("L3", "render", `{{include contract=L4}}`).
		Respond("L4", "render", "bottom")

	result := resolveText(t, stub, `{{include contract=L1}}`, Options{MaxDepth: 3})

	assert.Contains(t, result.Content, "depth limit")
	assert.Zero(t, stub.CallCount("L4", "render"), "no fetch past the ceiling")
}

func TestIncludes_MalformedTagLeftAlone(t *testing.T) {
	stub := rpc.NewStubFetcher()
	text := `before {{include func="h"}} after`

	result := resolveText(t, stub, text, Options{})

	assert.Equal(t, text, result.Content, "includes without a contract render as literal text")
	assert.Zero(t, stub.TotalCalls())
}

func TestIncludes_ReverseOrderSubstitution(t *testing.T) {
	// Replacements of different lengths must not shift unprocessed tags.
	stub := rpc.NewStubFetcher().
		Respond("X", "render_long", "a much longer replacement than the tag itself was").
		Respond("X", "render_short", "s")

	text := `[{{include contract=X func="long"}}|{{include contract=X func="short"}}]`
	result := resolveText(t, stub, text, Options{})

	assert.Equal(t, "[a much longer replacement than the tag itself was|s]", result.Content)
}

func TestIncludes_ChunkTagsPassThrough(t *testing.T) {
	// Chunk and continuation placeholders are someone else's job; the
	// include resolver must leave them intact.
	stub := rpc.NewStubFetcher().
		Respond("X", "render", `intro {{chunk collection="posts" index=0}}{{continue collection="posts" from=1}}`)

	result := resolveText(t, stub, `{{include contract=X}}`, Options{})

	assert.Contains(t, result.Content, `{{chunk collection="posts" index=0}}`)
	assert.Contains(t, result.Content, `{{continue collection="posts" from=1}}`)
}

// errRemote builds a plain error that the stub wraps as a RemoteCallError.
func errRemote(msg string) error {
	return &stubErr{msg: msg}
}

type stubErr struct{ msg string }

func (e *stubErr) Error() string { return e.msg }
