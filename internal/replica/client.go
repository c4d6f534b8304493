package replica

import (
	"context"
	"errors"
)

// ErrUnreachable marks a call that timed out, failed in transport, or was
// refused by an open circuit breaker.
var ErrUnreachable = errors.New("node unreachable")

// GetResult is one node's copy of a key.
type GetResult struct {
	Found   bool
	Value   []byte
	Version int64
}

// Client talks to one storage node.
type Client interface {
	// Put stores value at version. It returns false if the node rejected
	// the write.
	Put(ctx context.Context, key string, value []byte, version int64) (bool, error)
	// Get fetches the node's copy of key.
	Get(ctx context.Context, key string) (GetResult, error)
	// Delete removes key. It returns false if the node did not hold it.
	Delete(ctx context.Context, key string) (bool, error)
	// ListKeys returns every key held by the node.
	ListKeys(ctx context.Context) ([]string, error)
}

// Source hands out a Client per node address.
type Source interface {
	Client(node string) (Client, error)
}

// Forgetter is implemented by sources that hold per-node resources which
// can be released once a node is no longer addressed.
type Forgetter interface {
	Forget(node string) error
}
