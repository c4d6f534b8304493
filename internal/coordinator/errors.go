package coordinator

import "errors"

var (
	// ErrNoQuorum is returned when too few replicas acknowledged a write
	// or answered a read.
	ErrNoQuorum = errors.New("quorum not met")
	// ErrNotFound is returned when no reachable replica holds the key.
	ErrNotFound = errors.New("key not found")
	// ErrEmptyKey is returned for requests without a key.
	ErrEmptyKey = errors.New("key cannot be empty")
	// ErrEmptyNode is returned by ring administration without a node.
	ErrEmptyNode = errors.New("node address cannot be empty")
)
