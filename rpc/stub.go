package rpc

import (
	"context"
	"fmt"
	"sync"

	"github.com/lumenweave/lumen/errors"
)

// StubFetcher is an in-memory Fetcher for tests. Responses are keyed by
// "contract:function"; chunk responses additionally by index. Every call
// is recorded so tests can assert fetch counts and argument shapes.
type StubFetcher struct {
	mu        sync.Mutex
	responses map[string]string
	failures  map[string]error
	meta      map[string]*Meta
	calls     []StubCall
}

// StubCall is one recorded Call invocation.
type StubCall struct {
	ContractID string
	Function   string
	Args       Args
}

// NewStubFetcher returns an empty stub. Unknown calls fail with a
// RemoteCallError, matching how a gateway reports a missing function.
func NewStubFetcher() *StubFetcher {
	return &StubFetcher{
		responses: make(map[string]string),
		failures:  make(map[string]error),
		meta:      make(map[string]*Meta),
	}
}

func callKey(contractID, function string) string {
	return contractID + ":" + function
}

// Respond registers fixed output for contract:function.
func (s *StubFetcher) Respond(contractID, function, output string) *StubFetcher {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[callKey(contractID, function)] = output
	return s
}

// RespondChunk registers output for get_chunk(collection, index).
func (s *StubFetcher) RespondChunk(contractID, collection string, index int, output string) *StubFetcher {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[chunkKey(contractID, collection, index)] = output
	return s
}

// Fail registers a transport failure for contract:function.
func (s *StubFetcher) Fail(contractID, function string, err error) *StubFetcher {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[callKey(contractID, function)] = err
	return s
}

// RespondMeta registers chunk metadata for contract's collection.
func (s *StubFetcher) RespondMeta(contractID, collection string, meta *Meta) *StubFetcher {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta[callKey(contractID, collection)] = meta
	return s
}

func chunkKey(contractID, collection string, index int) string {
	return fmt.Sprintf("%s:get_chunk:%s:%d", contractID, collection, index)
}

// Call implements Fetcher.
func (s *StubFetcher) Call(ctx context.Context, contractID, function string, args Args) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.NewRemoteCallError(contractID, function, err)
	}

	s.mu.Lock()
	s.calls = append(s.calls, StubCall{ContractID: contractID, Function: function, Args: args})

	if function == "get_chunk" {
		if named, ok := args.(Named); ok {
			collection, index := "", ""
			for _, a := range named {
				switch a.Name {
				case "collection":
					collection = a.Value
				case "index":
					index = a.Value
				}
			}
			key := contractID + ":get_chunk:" + collection + ":" + index
			if out, ok := s.responses[key]; ok {
				s.mu.Unlock()
				return out, nil
			}
		}
	}

	if err, ok := s.failures[callKey(contractID, function)]; ok {
		s.mu.Unlock()
		return "", errors.NewRemoteCallError(contractID, function, err)
	}
	if out, ok := s.responses[callKey(contractID, function)]; ok {
		s.mu.Unlock()
		return out, nil
	}
	s.mu.Unlock()

	return "", errors.NewRemoteCallError(contractID, function,
		errors.Newf("no stub response for %s.%s", contractID, function))
}

// ChunkMeta implements Fetcher. Unregistered collections return (nil, nil).
func (s *StubFetcher) ChunkMeta(ctx context.Context, contractID, collection string) (*Meta, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewRemoteCallError(contractID, "get_chunk_meta", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, StubCall{ContractID: contractID, Function: "get_chunk_meta"})
	return s.meta[callKey(contractID, collection)], nil
}

// Calls returns a copy of every recorded call.
func (s *StubFetcher) Calls() []StubCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StubCall, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallCount returns how many times contract:function was invoked.
func (s *StubFetcher) CallCount(contractID, function string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.ContractID == contractID && c.Function == function {
			n++
		}
	}
	return n
}

// TotalCalls returns the total number of recorded calls.
func (s *StubFetcher) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}
