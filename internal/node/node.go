// Package node runs a storage node: an in-memory last-writer-wins store
// served over the kvstore.KeyValueStore gRPC service.
package node

import (
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"kvgateway/internal/api"
	"kvgateway/internal/storage"
)

// Node represents a single storage node.
type Node struct {
	nodeID     string
	listenAddr string
	store      storage.Store
	logger     *zap.Logger

	mu         sync.Mutex
	grpcServer *grpc.Server
	addr       net.Addr
}

// NewNode creates a new node instance with an empty store.
func NewNode(nodeID, listenAddr string, logger *zap.Logger) *Node {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Node{
		nodeID:     nodeID,
		listenAddr: listenAddr,
		store:      storage.NewInMemoryStore(),
		logger:     logger,
	}
}

// Store returns the node's store.
func (n *Node) Store() storage.Store {
	return n.store
}

// Start listens on the configured address and serves until Stop.
func (n *Node) Start() error {
	lis, err := net.Listen("tcp", n.listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", n.listenAddr, err)
	}
	return n.Serve(lis)
}

// Serve serves on lis until Stop.
func (n *Node) Serve(lis net.Listener) error {
	n.mu.Lock()
	n.grpcServer = grpc.NewServer()
	api.RegisterKeyValueStoreServer(n.grpcServer, NewServer(n.store, n.nodeID, n.logger))
	// Enable gRPC reflection for grpcurl
	reflection.Register(n.grpcServer)
	n.addr = lis.Addr()
	srv := n.grpcServer
	n.mu.Unlock()

	n.logger.Info("starting storage node",
		zap.String("node_id", n.nodeID),
		zap.String("addr", lis.Addr().String()))

	if err := srv.Serve(lis); err != nil {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// Addr returns the bound address once serving, nil before.
func (n *Node) Addr() net.Addr {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.addr
}

// Stop gracefully stops the node.
func (n *Node) Stop() {
	n.mu.Lock()
	srv := n.grpcServer
	n.mu.Unlock()

	if srv != nil {
		n.logger.Info("stopping storage node", zap.String("node_id", n.nodeID))
		srv.GracefulStop()
	}
}
