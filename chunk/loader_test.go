package chunk

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenweave/lumen/errors"
	"github.com/lumenweave/lumen/rpc"
	"github.com/lumenweave/lumen/tag"
)

const testContract = "CAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

func TestLoadChunk_FetchesAndCaches(t *testing.T) {
	stub := rpc.NewStubFetcher().
		RespondChunk(testContract, "comments", 0, "first comment")
	loader := NewLoader(stub, testContract, Options{})

	content, err := loader.LoadChunk(context.Background(), "comments", 0)
	require.NoError(t, err)
	assert.Equal(t, "first comment", content)

	// Second load hits the cache, no new fetch.
	content, err = loader.LoadChunk(context.Background(), "comments", 0)
	require.NoError(t, err)
	assert.Equal(t, "first comment", content)
	assert.Equal(t, 1, stub.CallCount(testContract, "get_chunk"))
}

func TestLoadChunk_CoalescesConcurrentRequests(t *testing.T) {
	stub := rpc.NewStubFetcher().
		RespondChunk(testContract, "posts", 5, "body")
	loader := NewLoader(stub, testContract, Options{})

	const goroutines = 8
	var wg sync.WaitGroup
	results := make([]string, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			content, err := loader.LoadChunk(context.Background(), "posts", 5)
			if assert.NoError(t, err) {
				results[i] = content
			}
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, "body", r)
	}
	// The cache check and in-flight registration share one lock, so
	// identical concurrent requests produce exactly one fetch.
	assert.Equal(t, 1, stub.CallCount(testContract, "get_chunk"))
}

func TestLoadTags_LoadsAllChunkTags(t *testing.T) {
	stub := rpc.NewStubFetcher().
		RespondChunk(testContract, "comments", 0, "alpha").
		RespondChunk(testContract, "comments", 1, "beta")
	loader := NewLoader(stub, testContract, Options{})

	text := `intro {{chunk collection=comments index=0}} mid {{chunk collection=comments index=1}} outro`
	chunks := tag.ParseChunks(text)
	require.Len(t, chunks, 2)

	results := loader.LoadTags(context.Background(), chunks, nil)
	require.Len(t, results, 2)

	out := Apply(text, results)
	assert.Equal(t, "intro alpha mid beta outro", out)
}

func TestLoadTags_ExpandsContinuationFromMetadata(t *testing.T) {
	stub := rpc.NewStubFetcher().
		RespondMeta(testContract, "thread", &rpc.Meta{Count: 3}).
		RespondChunk(testContract, "thread", 0, "one ").
		RespondChunk(testContract, "thread", 1, "two ").
		RespondChunk(testContract, "thread", 2, "three")
	loader := NewLoader(stub, testContract, Options{})

	text := `{{continue collection=thread from=0}}`
	conts := tag.ParseContinuations(text)
	require.Len(t, conts, 1)
	require.False(t, conts[0].HasTotal)

	results := loader.LoadTags(context.Background(), nil, conts)
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, "thread", r.Collection)
		assert.Equal(t, i, r.Index)
	}

	out := Apply(text, results)
	assert.Equal(t, "one two three", out)
}

func TestLoadTags_ContinuationWithExplicitTotalSkipsMetadata(t *testing.T) {
	stub := rpc.NewStubFetcher().
		RespondChunk(testContract, "thread", 1, "b").
		RespondChunk(testContract, "thread", 2, "c")
	loader := NewLoader(stub, testContract, Options{})

	conts := tag.ParseContinuations(`{{continue collection=thread from=1 total=3}}`)
	require.Len(t, conts, 1)

	results := loader.LoadTags(context.Background(), nil, conts)
	require.Len(t, results, 2)
	assert.Equal(t, 0, stub.CallCount(testContract, "get_chunk_meta"))
}

func TestLoadTags_MissingMetadataDegradesToNothing(t *testing.T) {
	stub := rpc.NewStubFetcher()
	loader := NewLoader(stub, testContract, Options{})

	conts := tag.ParseContinuations(`{{continue collection=ghost from=0}}`)
	require.Len(t, conts, 1)

	results := loader.LoadTags(context.Background(), nil, conts)
	assert.Empty(t, results)
	assert.Equal(t, 0, stub.CallCount(testContract, "get_chunk"))
}

func TestLoadTags_PartialFailureKeepsLoading(t *testing.T) {
	stub := rpc.NewStubFetcher().
		RespondChunk(testContract, "comments", 0, "ok").
		Fail(testContract, "get_chunk", errors.New("chunk store unavailable"))

	var (
		mu     sync.Mutex
		failed []int
	)
	loader := NewLoader(stub, testContract, Options{
		MaxConcurrent: 1,
		OnError: func(collection string, index int, err error) {
			mu.Lock()
			failed = append(failed, index)
			mu.Unlock()
		},
	})

	text := `{{chunk collection=comments index=0}}{{chunk collection=comments index=1}}`
	results := loader.LoadTags(context.Background(), tag.ParseChunks(text), nil)

	require.Len(t, results, 1)
	assert.Equal(t, 0, results[0].Index)
	assert.Equal(t, []int{1}, failed)
}

func TestLoadTags_ProgressCallback(t *testing.T) {
	stub := rpc.NewStubFetcher().
		RespondChunk(testContract, "c", 0, "x").
		RespondChunk(testContract, "c", 1, "y").
		RespondChunk(testContract, "c", 2, "z")

	var (
		mu       sync.Mutex
		progress [][2]int
	)
	loader := NewLoader(stub, testContract, Options{
		MaxConcurrent: 1,
		OnProgress: func(loaded, total int) {
			mu.Lock()
			progress = append(progress, [2]int{loaded, total})
			mu.Unlock()
		},
	})

	text := `{{chunk collection=c index=0}}{{chunk collection=c index=1}}{{chunk collection=c index=2}}`
	results := loader.LoadTags(context.Background(), tag.ParseChunks(text), nil)
	require.Len(t, results, 3)

	require.Len(t, progress, 3)
	assert.Equal(t, [2]int{1, 3}, progress[0])
	assert.Equal(t, [2]int{2, 3}, progress[1])
	assert.Equal(t, [2]int{3, 3}, progress[2])
}

func TestLoadTags_DeduplicatesOverlappingTags(t *testing.T) {
	stub := rpc.NewStubFetcher().
		RespondMeta(testContract, "c", &rpc.Meta{Count: 2}).
		RespondChunk(testContract, "c", 0, "x").
		RespondChunk(testContract, "c", 1, "y")
	loader := NewLoader(stub, testContract, Options{})

	text := `{{chunk collection=c index=0}}{{continue collection=c from=0}}`
	results := loader.LoadTags(context.Background(), tag.ParseChunks(text), tag.ParseContinuations(text))

	require.Len(t, results, 2)
	assert.Equal(t, 2, stub.CallCount(testContract, "get_chunk"))
}

func TestAbort_StopsNewBatches(t *testing.T) {
	stub := rpc.NewStubFetcher().
		RespondChunk(testContract, "c", 0, "x")
	loader := NewLoader(stub, testContract, Options{})

	loader.Abort()

	text := `{{chunk collection=c index=0}}`
	results := loader.LoadTags(context.Background(), tag.ParseChunks(text), nil)
	assert.Empty(t, results)
	assert.Equal(t, 0, stub.CallCount(testContract, "get_chunk"))
}

func TestReset_ClearsCacheAndAbort(t *testing.T) {
	stub := rpc.NewStubFetcher().
		RespondChunk(testContract, "c", 0, "x")
	loader := NewLoader(stub, testContract, Options{})

	_, err := loader.LoadChunk(context.Background(), "c", 0)
	require.NoError(t, err)
	loader.Abort()
	loader.Reset()

	// Cache is gone, so the same chunk fetches again, and the abort
	// flag no longer blocks loading.
	_, err = loader.LoadChunk(context.Background(), "c", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, stub.CallCount(testContract, "get_chunk"))

	text := `{{chunk collection=c index=0}}`
	results := loader.LoadTags(context.Background(), tag.ParseChunks(text), nil)
	assert.Len(t, results, 1)
}

func TestApply_LeavesUnloadedTagsInPlace(t *testing.T) {
	text := `{{chunk collection=c index=0}} {{chunk collection=other index=0}}`
	out := Apply(text, []Result{{Collection: "c", Index: 0, Content: "loaded"}})
	assert.Equal(t, `loaded {{chunk collection=other index=0}}`, out)
}

func TestApply_ContinuationConcatenatesFromIndex(t *testing.T) {
	results := []Result{
		{Collection: "t", Index: 0, Content: "zero"},
		{Collection: "t", Index: 1, Content: "one"},
		{Collection: "t", Index: 2, Content: "two"},
	}
	out := Apply(`{{continue collection=t from=1}}`, results)
	assert.Equal(t, "onetwo", out)
}
