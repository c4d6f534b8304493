package replica

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Pool manages one gRPC connection and Client per storage node.
type Pool struct {
	mu       sync.RWMutex
	conns    map[string]*grpc.ClientConn
	clients  map[string]*GRPCClient
	opts     Options
	dialOpts []grpc.DialOption
}

// NewPool creates a pool. Connections use insecure transport credentials
// unless dialOpts override them.
func NewPool(opts Options, dialOpts ...grpc.DialOption) *Pool {
	return &Pool{
		conns:    make(map[string]*grpc.ClientConn),
		clients:  make(map[string]*GRPCClient),
		opts:     opts.withDefaults(),
		dialOpts: append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, dialOpts...),
	}
}

// Client returns the client for node, creating the connection on first use.
// Connections are lazy: an unreachable node fails its calls, not this method.
func (p *Pool) Client(node string) (Client, error) {
	p.mu.RLock()
	client, exists := p.clients[node]
	p.mu.RUnlock()

	if exists {
		return client, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Double-check after acquiring write lock
	if client, exists := p.clients[node]; exists {
		return client, nil
	}

	conn, err := grpc.NewClient(dialTarget(node), p.dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create client for %s: %w", ErrUnreachable, node, err)
	}

	client = NewGRPCClient(node, conn, p.opts)
	p.conns[node] = conn
	p.clients[node] = client
	return client, nil
}

// Forget closes and drops the connection to node, if any.
func (p *Pool) Forget(node string) error {
	p.mu.Lock()
	conn, exists := p.conns[node]
	delete(p.conns, node)
	delete(p.clients, node)
	p.mu.Unlock()

	if !exists {
		return nil
	}
	return conn.Close()
}

// Close closes all connections.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for node, conn := range p.conns {
		if err := conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", node, err))
		}
	}
	p.conns = make(map[string]*grpc.ClientConn)
	p.clients = make(map[string]*GRPCClient)
	return errors.Join(errs...)
}

// dialTarget hands plain host:port addresses to the dialer unresolved.
func dialTarget(node string) string {
	if strings.Contains(node, "://") {
		return node
	}
	return "passthrough:///" + node
}
