package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/lumenweave/lumen/errors"
	"github.com/lumenweave/lumen/internal/httpclient"
)

// GatewayFetcher talks JSON-RPC to a render gateway, which performs the
// actual transaction simulation and XDR plumbing against the network.
// The client never signs anything; every call is read-only.
type GatewayFetcher struct {
	url    string
	http   *httpclient.Client
	burst  *rate.Limiter
	window *Limiter
	logger *zap.SugaredLogger
}

// Options configures a GatewayFetcher.
type Options struct {
	// Timeout applies per request. Zero means 30s.
	Timeout time.Duration
	// MaxCallsPerMinute bounds the sliding window. Zero disables it.
	MaxCallsPerMinute int
	// BurstPerSecond bounds the token bucket. Zero disables it.
	BurstPerSecond int
	// Hardened selects the server-side HTTP client that refuses private
	// address targets. Leave false for CLI use against local gateways.
	Hardened bool
}

// NewGatewayFetcher creates a fetcher for the given gateway URL.
func NewGatewayFetcher(url string, opts Options, logger *zap.SugaredLogger) *GatewayFetcher {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	var hc *httpclient.Client
	if opts.Hardened {
		hc = httpclient.NewHardened(timeout)
	} else {
		hc = httpclient.New(timeout)
	}

	f := &GatewayFetcher{
		url:    url,
		http:   hc,
		logger: logger,
	}
	if opts.BurstPerSecond > 0 {
		f.burst = rate.NewLimiter(rate.Limit(opts.BurstPerSecond), opts.BurstPerSecond)
	}
	if opts.MaxCallsPerMinute > 0 {
		f.window = NewLimiter(opts.MaxCallsPerMinute)
	}
	return f
}

// wire types

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type simulateParams struct {
	ContractID string    `json:"contract_id"`
	Function   string    `json:"function"`
	Args       []wireArg `json:"args"`
}

type simulateResult struct {
	Output string `json:"output"`
}

type metaParams struct {
	ContractID string `json:"contract_id"`
	Collection string `json:"collection"`
}

// wireArg is one encoded argument. Positional args carry no name.
type wireArg struct {
	Name  string `json:"name,omitempty"`
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// Call invokes function on the contract through the gateway.
func (f *GatewayFetcher) Call(ctx context.Context, contractID, function string, args Args) (string, error) {
	params, err := json.Marshal(simulateParams{
		ContractID: contractID,
		Function:   function,
		Args:       encodeArgs(args),
	})
	if err != nil {
		return "", errors.Wrap(err, "encoding simulate params")
	}

	raw, err := f.post(ctx, "simulate", params)
	if err != nil {
		return "", errors.NewRemoteCallError(contractID, function, err)
	}

	var result simulateResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", errors.NewRemoteCallError(contractID, function, errors.Wrap(err, "malformed gateway result"))
	}
	return result.Output, nil
}

// ChunkMeta queries get_chunk_meta for a collection. A null result means
// the collection has no metadata; that returns (nil, nil).
func (f *GatewayFetcher) ChunkMeta(ctx context.Context, contractID, collection string) (*Meta, error) {
	params, err := json.Marshal(metaParams{ContractID: contractID, Collection: collection})
	if err != nil {
		return nil, errors.Wrap(err, "encoding meta params")
	}

	raw, err := f.post(ctx, "chunk_meta", params)
	if err != nil {
		return nil, errors.NewRemoteCallError(contractID, "get_chunk_meta", err)
	}

	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var meta Meta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, errors.NewRemoteCallError(contractID, "get_chunk_meta", errors.Wrap(err, "malformed gateway result"))
	}
	return &meta, nil
}

func (f *GatewayFetcher) post(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	if f.window != nil {
		if err := f.window.Allow(); err != nil {
			return nil, err
		}
	}
	if f.burst != nil {
		if err := f.burst.Wait(ctx); err != nil {
			return nil, err
		}
	}

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := f.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("gateway returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, errors.Wrap(err, "reading gateway response")
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		return nil, errors.Wrap(err, "decoding gateway response")
	}
	if rpcResp.Error != nil {
		return nil, errors.Newf("gateway error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}

	if f.logger != nil {
		f.logger.Debugw("gateway call",
			"method", method,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	return rpcResp.Result, nil
}

// encodeArgs lowers Args to wire form. Named values go through scalar type
// inference so contracts with u32/u64/address parameters get properly
// typed arguments without any contract metadata.
func encodeArgs(args Args) []wireArg {
	switch a := args.(type) {
	case Positional:
		return []wireArg{
			{Type: "option_string", Value: optional(a.Path)},
			{Type: "option_address", Value: optional(a.Viewer)},
		}
	case Named:
		out := make([]wireArg, 0, len(a))
		for _, arg := range a {
			out = append(out, encodeNamed(arg))
		}
		return out
	case nil:
		return nil
	}
	return nil
}

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func encodeNamed(arg NamedArg) wireArg {
	if arg.IsFlag {
		return wireArg{Name: arg.Name, Type: "bool", Value: true}
	}

	typ, val := inferScalar(arg.Value)
	return wireArg{Name: arg.Name, Type: typ, Value: val}
}

// inferScalar classifies a parameter value: u32, u64, address, or string.
// Contract addresses are 56-char strkeys starting with C (contracts) or
// G (accounts).
func inferScalar(value string) (string, any) {
	if n, err := strconv.ParseUint(value, 10, 32); err == nil {
		return "u32", n
	}
	if n, err := strconv.ParseUint(value, 10, 64); err == nil {
		return "u64", n
	}
	if isStrkey(value) {
		return "address", value
	}
	return "string", value
}

func isStrkey(value string) bool {
	if len(value) != 56 {
		return false
	}
	if value[0] != 'C' && value[0] != 'G' {
		return false
	}
	for _, c := range value {
		if (c < 'A' || c > 'Z') && (c < '2' || c > '7') {
			return false
		}
	}
	return true
}
