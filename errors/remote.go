package errors

import (
	"fmt"
)

// Sentinel errors shared across the loaders.
var (
	// ErrAborted is returned when a loader's Abort was called before new
	// work could start. In-flight fetches are allowed to finish.
	ErrAborted = New("loader aborted")

	// ErrLimitReached is returned when a continuation or depth ceiling was
	// hit. The caller still receives the partial result.
	ErrLimitReached = New("resource limit reached")
)

// RemoteCallError wraps a failed read-only contract call. It carries the
// target and function so the resolver can render a useful inline marker
// without losing the transport-level cause.
type RemoteCallError struct {
	ContractID string
	Function   string
	Cause      error
}

func (e *RemoteCallError) Error() string {
	if e.Function != "" {
		return fmt.Sprintf("remote call %s.%s failed: %v", e.ContractID, e.Function, e.Cause)
	}
	return fmt.Sprintf("remote call to %s failed: %v", e.ContractID, e.Cause)
}

func (e *RemoteCallError) Unwrap() error { return e.Cause }

// NewRemoteCallError wraps err as a RemoteCallError for the given target.
func NewRemoteCallError(contractID, function string, err error) *RemoteCallError {
	return &RemoteCallError{ContractID: contractID, Function: function, Cause: err}
}

// IsRemoteCall reports whether err is (or wraps) a RemoteCallError.
// The resolvers use this to decide between recovering an error inline
// and propagating it as a programmer error.
func IsRemoteCall(err error) bool {
	var rce *RemoteCallError
	return As(err, &rce)
}
