package ring

import (
	"bytes"
	"crypto/md5"
	"sort"
	"strconv"
	"sync"
)

// Position is a point on the 128-bit hash circle, stored big-endian so that
// byte order equals numeric order.
type Position [md5.Size]byte

// Compare returns -1, 0 or +1 depending on whether p is less than, equal to,
// or greater than q.
func (p Position) Compare(q Position) int {
	return bytes.Compare(p[:], q[:])
}

// Hash returns the ring position of an arbitrary string (node or key).
func Hash(s string) Position {
	return md5.Sum([]byte(s))
}

// Option configures a Ring.
type Option func(*Ring)

// WithVirtualNodes places every node at v positions instead of one.
func WithVirtualNodes(v int) Option {
	return func(r *Ring) {
		if v > 0 {
			r.vnodesPerNode = v
		}
	}
}

// Ring implements consistent hashing over node addresses.
type Ring struct {
	mu                sync.RWMutex
	replicationFactor int
	vnodesPerNode     int
	owners            map[Position]string
	positions         []Position // ascending, same set as the keys of owners
	nodes             map[string]struct{}
}

// NewRing creates an empty ring that returns up to replicationFactor
// distinct nodes per key.
func NewRing(replicationFactor int, opts ...Option) *Ring {
	if replicationFactor <= 0 {
		replicationFactor = 1
	}
	r := &Ring{
		replicationFactor: replicationFactor,
		vnodesPerNode:     1,
		owners:            make(map[Position]string),
		positions:         make([]Position, 0),
		nodes:             make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReplicationFactor returns the maximum number of nodes GetNodes returns.
func (r *Ring) ReplicationFactor() int {
	return r.replicationFactor
}

// SetNodes rebuilds the ring with the given nodes.
func (r *Ring) SetNodes(nodes []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.owners = make(map[Position]string)
	r.positions = make([]Position, 0, len(nodes)*r.vnodesPerNode)
	r.nodes = make(map[string]struct{})
	for _, node := range nodes {
		r.addLocked(node)
	}
}

// AddNode places node on the ring. Adding a node twice is harmless.
func (r *Ring) AddNode(node string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addLocked(node)
}

func (r *Ring) addLocked(node string) {
	r.nodes[node] = struct{}{}
	for _, pos := range r.nodePositions(node) {
		if _, exists := r.owners[pos]; !exists {
			idx := sort.Search(len(r.positions), func(i int) bool {
				return r.positions[i].Compare(pos) >= 0
			})
			r.positions = append(r.positions, Position{})
			copy(r.positions[idx+1:], r.positions[idx:])
			r.positions[idx] = pos
		}
		r.owners[pos] = node
	}
}

// RemoveNode takes node off the ring. Unknown nodes are ignored.
func (r *Ring) RemoveNode(node string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.nodes, node)
	for _, pos := range r.nodePositions(node) {
		if owner, exists := r.owners[pos]; !exists || owner != node {
			continue
		}
		delete(r.owners, pos)
		idx := sort.Search(len(r.positions), func(i int) bool {
			return r.positions[i].Compare(pos) >= 0
		})
		if idx < len(r.positions) && r.positions[idx] == pos {
			r.positions = append(r.positions[:idx], r.positions[idx+1:]...)
		}
	}
}

// GetNodes returns the nodes responsible for key in ring-walk order. The
// first node is the primary, the rest are replicas. The result holds at most
// ReplicationFactor distinct nodes and is empty for an empty ring.
func (r *Ring) GetNodes(key string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.positions) == 0 {
		return []string{}
	}

	keyHash := Hash(key)

	// First position >= keyHash; wrap around past the last one.
	idx := sort.Search(len(r.positions), func(i int) bool {
		return r.positions[i].Compare(keyHash) >= 0
	})
	if idx >= len(r.positions) {
		idx = 0
	}

	result := make([]string, 0, min(r.replicationFactor, len(r.nodes)))
	seen := make(map[string]bool, r.replicationFactor)
	for i := 0; i < len(r.positions) && len(result) < r.replicationFactor; i++ {
		node := r.owners[r.positions[(idx+i)%len(r.positions)]]
		if !seen[node] {
			seen[node] = true
			result = append(result, node)
		}
	}
	return result
}

// Nodes returns every node on the ring, sorted.
func (r *Ring) Nodes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	nodes := make([]string, 0, len(r.nodes))
	for node := range r.nodes {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)
	return nodes
}

// Len returns the number of nodes on the ring.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

// nodePositions lists the positions a node occupies. The first one is always
// the digest of the bare node name.
func (r *Ring) nodePositions(node string) []Position {
	positions := make([]Position, 0, r.vnodesPerNode)
	positions = append(positions, Hash(node))
	for i := 1; i < r.vnodesPerNode; i++ {
		positions = append(positions, Hash(node+"#"+strconv.Itoa(i)))
	}
	return positions
}
