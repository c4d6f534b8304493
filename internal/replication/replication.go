// Package replication holds the replication policy shared by the ring and
// the coordinator: how many replicas a key has and how many of them must
// answer a write or a read.
package replication

import (
	"errors"
	"fmt"
)

const (
	// DefaultReplicationFactor is the number of distinct nodes per key.
	DefaultReplicationFactor = 2
	// DefaultWriteQuorum acknowledges a write as soon as one replica stores it.
	DefaultWriteQuorum = 1
	// DefaultReadQuorum places no minimum on the number of replicas that
	// answer a read.
	DefaultReadQuorum = 0
)

// ErrInvalidPolicy is returned by Validate.
var ErrInvalidPolicy = errors.New("invalid replication policy")

// Policy is the N/W/R triple.
type Policy struct {
	// N is the replication factor.
	N int
	// W is the number of acknowledgements a write needs.
	W int
	// R is the number of replicas that must answer a read (found or not).
	R int
}

// DefaultPolicy returns N=2, W=1, R=0.
func DefaultPolicy() Policy {
	return Policy{
		N: DefaultReplicationFactor,
		W: DefaultWriteQuorum,
		R: DefaultReadQuorum,
	}
}

// Validate checks 1 <= W <= N and 0 <= R <= N.
func (p Policy) Validate() error {
	if p.N < 1 {
		return fmt.Errorf("%w: N=%d must be at least 1", ErrInvalidPolicy, p.N)
	}
	if p.W < 1 || p.W > p.N {
		return fmt.Errorf("%w: W=%d must be between 1 and N=%d", ErrInvalidPolicy, p.W, p.N)
	}
	if p.R < 0 || p.R > p.N {
		return fmt.Errorf("%w: R=%d must be between 0 and N=%d", ErrInvalidPolicy, p.R, p.N)
	}
	return nil
}

// Strict reports whether every read overlaps every acknowledged write.
func (p Policy) Strict() bool {
	return p.R+p.W > p.N
}

// RequiredAcks caps W at the number of targets actually available for a key.
func (p Policy) RequiredAcks(targets int) int {
	return min(p.W, targets)
}

// RequiredResponses caps R at the number of targets actually available.
func (p Policy) RequiredResponses(targets int) int {
	return min(p.R, targets)
}

// String renders the policy as "N=2 W=1 R=0".
func (p Policy) String() string {
	return fmt.Sprintf("N=%d W=%d R=%d", p.N, p.W, p.R)
}
