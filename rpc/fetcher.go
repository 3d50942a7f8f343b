// Package rpc is the remote-fetch boundary: read-only contract calls
// against a render gateway, plus the chunk-metadata query the progressive
// loader needs. Everything above this package sees only the Fetcher
// interface; tests substitute a StubFetcher.
package rpc

import (
	"context"
	"strconv"
)

// Meta describes a chunked collection, as reported by get_chunk_meta.
type Meta struct {
	Count      uint32 `json:"count"`
	TotalBytes uint64 `json:"total_bytes"`
	Version    uint32 `json:"version"`
}

// Fetcher performs read-only contract calls.
//
// Call invokes function on the contract and returns its rendered output.
// Transport and simulation failures come back as *errors.RemoteCallError;
// anything else is a programmer error and propagates unchanged.
//
// ChunkMeta returns nil (no error) when the contract has no metadata for
// the collection. Absence degrades to zero chunks, it does not abort.
type Fetcher interface {
	Call(ctx context.Context, contractID, function string, args Args) (string, error)
	ChunkMeta(ctx context.Context, contractID, collection string) (*Meta, error)
}

// Args is the argument list for a contract call: either the conventional
// positional (path, viewer) pair or arbitrary named parameters.
type Args interface {
	isArgs()
}

// Positional is the legacy calling convention: render(path, viewer).
// Empty strings encode as absent optionals on the wire.
type Positional struct {
	Path   string
	Viewer string
}

func (Positional) isArgs() {}

// NamedArg is one named parameter. Flags carry no value and encode as
// boolean true.
type NamedArg struct {
	Name   string
	Value  string
	IsFlag bool
}

// Named is the parameterized calling convention: ordered named arguments.
type Named []NamedArg

func (Named) isArgs() {}

// ChunkArgs builds the argument list for get_chunk(collection, index).
func ChunkArgs(collection string, index int) Args {
	return Named{
		{Name: "collection", Value: collection},
		{Name: "index", Value: strconv.Itoa(index)},
	}
}
