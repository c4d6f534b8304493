package coordinator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"kvgateway/internal/replica"
)

type record struct {
	value   []byte
	version int64
}

type putCall struct {
	key     string
	value   string
	version int64
}

// fakeNode is an in-memory replica with LWW semantics and switchable
// failures.
type fakeNode struct {
	mu       sync.Mutex
	name     string
	data     map[string]record
	down     bool
	reject   bool
	delay    time.Duration
	failPuts int // fail this many puts, then recover
	puts     []putCall
}

func newFakeNode(name string) *fakeNode {
	return &fakeNode{name: name, data: make(map[string]record)}
}

func (n *fakeNode) setDown(down bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.down = down
}

func (n *fakeNode) seed(key, value string, version int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.data[key] = record{value: []byte(value), version: version}
}

func (n *fakeNode) record(key string) (record, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	r, ok := n.data[key]
	return r, ok
}

func (n *fakeNode) putCalls() []putCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]putCall(nil), n.puts...)
}

func (n *fakeNode) wait(ctx context.Context) error {
	n.mu.Lock()
	delay, down := n.delay, n.down
	n.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("%w: %s: %w", replica.ErrUnreachable, n.name, ctx.Err())
		}
	}
	if down {
		return fmt.Errorf("%w: %s: connection refused", replica.ErrUnreachable, n.name)
	}
	return nil
}

func (n *fakeNode) Put(ctx context.Context, key string, value []byte, version int64) (bool, error) {
	if err := n.wait(ctx); err != nil {
		return false, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.puts = append(n.puts, putCall{key: key, value: string(value), version: version})
	if n.failPuts > 0 {
		n.failPuts--
		return false, fmt.Errorf("%w: %s: transient", replica.ErrUnreachable, n.name)
	}
	if n.reject {
		return false, nil
	}
	if cur, ok := n.data[key]; ok && version < cur.version {
		return true, nil
	}
	n.data[key] = record{value: append([]byte(nil), value...), version: version}
	return true, nil
}

func (n *fakeNode) Get(ctx context.Context, key string) (replica.GetResult, error) {
	if err := n.wait(ctx); err != nil {
		return replica.GetResult{}, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	r, ok := n.data[key]
	if !ok {
		return replica.GetResult{}, nil
	}
	return replica.GetResult{Found: true, Value: r.value, Version: r.version}, nil
}

func (n *fakeNode) Delete(ctx context.Context, key string) (bool, error) {
	if err := n.wait(ctx); err != nil {
		return false, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.data[key]
	delete(n.data, key)
	return ok, nil
}

func (n *fakeNode) ListKeys(ctx context.Context) ([]string, error) {
	if err := n.wait(ctx); err != nil {
		return nil, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	keys := make([]string, 0, len(n.data))
	for k := range n.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// fakeCluster implements replica.Source.
type fakeCluster struct {
	nodes     map[string]*fakeNode
	forgotten []string
}

func newFakeCluster(names ...string) *fakeCluster {
	c := &fakeCluster{nodes: make(map[string]*fakeNode)}
	for _, name := range names {
		c.nodes[name] = newFakeNode(name)
	}
	return c
}

func (c *fakeCluster) Client(node string) (replica.Client, error) {
	n, ok := c.nodes[node]
	if !ok {
		return nil, fmt.Errorf("%w: unknown node %s", replica.ErrUnreachable, node)
	}
	return n, nil
}

func (c *fakeCluster) Forget(node string) error {
	c.forgotten = append(c.forgotten, node)
	return nil
}
