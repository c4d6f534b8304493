// Package it runs storage nodes and a gateway in-process on loopback ports
// for end-to-end tests.
package it

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"kvgateway/internal/api"
	"kvgateway/internal/coordinator"
	"kvgateway/internal/gateway"
	"kvgateway/internal/metrics"
	"kvgateway/internal/node"
	"kvgateway/internal/replica"
	"kvgateway/internal/replication"
	"kvgateway/internal/ring"
)

// Cluster represents a test cluster of storage nodes behind one gateway.
type Cluster struct {
	t      testing.TB
	logger *zap.Logger
	nodes  []*Node
	mu     sync.Mutex

	pool    *replica.Pool
	coord   *coordinator.Coordinator
	server  *httptest.Server
	metrics *prometheus.Registry
}

// Node represents a single storage node in the test cluster.
type Node struct {
	ID     string
	Addr   string
	node   *node.Node
	done   chan error
	conn   *grpc.ClientConn
	client api.KeyValueStoreClient
	once   sync.Once
}

// NewCluster creates an empty cluster. Everything it starts is stopped when
// the test ends.
func NewCluster(t testing.TB) *Cluster {
	c := &Cluster{
		t:      t,
		logger: zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel)),
	}
	t.Cleanup(c.Stop)
	return c
}

// StartNode starts a storage node on a free loopback port.
func (c *Cluster) StartNode(nodeID string) (*Node, error) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}

	n := node.NewNode(nodeID, lis.Addr().String(), c.logger)
	done := make(chan error, 1)
	go func() { done <- n.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///"+lis.Addr().String(),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		n.Stop()
		return nil, fmt.Errorf("failed to dial node %s: %w", nodeID, err)
	}

	sn := &Node{
		ID:     nodeID,
		Addr:   lis.Addr().String(),
		node:   n,
		done:   done,
		conn:   conn,
		client: api.NewKeyValueStoreClient(conn),
	}

	if err := waitForReady(sn, 5*time.Second); err != nil {
		sn.Stop()
		return nil, fmt.Errorf("node %s failed to become ready: %w", nodeID, err)
	}

	c.mu.Lock()
	c.nodes = append(c.nodes, sn)
	c.mu.Unlock()
	return sn, nil
}

// waitForReady polls ListKeys until the node answers.
func waitForReady(n *Node, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		_, err := n.client.ListKeys(ctx, &api.Empty{})
		cancel()
		if err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timeout waiting for node %s: %w", n.ID, err)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

// StartCluster starts count storage nodes named n1..n<count> and a gateway
// in front of them.
func (c *Cluster) StartCluster(count int, policy replication.Policy) error {
	for i := 1; i <= count; i++ {
		if _, err := c.StartNode(fmt.Sprintf("n%d", i)); err != nil {
			return err
		}
	}
	return c.StartGateway(policy)
}

// StartGateway serves the gateway over HTTP for the nodes started so far.
func (c *Cluster) StartGateway(policy replication.Policy) error {
	addrs := c.Addrs()
	r := ring.NewRing(policy.N)
	r.SetNodes(addrs)

	c.metrics = prometheus.NewRegistry()
	m := metrics.New(c.metrics)

	c.pool = replica.NewPool(replica.Options{
		CallTimeout: time.Second,
		Logger:      c.logger,
	})
	c.coord = coordinator.New(r, c.pool,
		coordinator.WithPolicy(policy),
		coordinator.WithTimeout(2*time.Second),
		coordinator.WithLogger(c.logger),
		coordinator.WithMetrics(m),
	)
	c.server = httptest.NewServer(gateway.NewRouter(c.coord, gateway.Options{
		Logger:   c.logger,
		Metrics:  m,
		Gatherer: c.metrics,
	}))
	return nil
}

// Addrs returns the addresses of all started nodes in start order.
func (c *Cluster) Addrs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	addrs := make([]string, 0, len(c.nodes))
	for _, n := range c.nodes {
		addrs = append(addrs, n.Addr)
	}
	return addrs
}

// NodeByAddr returns the node listening on addr.
func (c *Cluster) NodeByAddr(addr string) *Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, n := range c.nodes {
		if n.Addr == addr {
			return n
		}
	}
	return nil
}

// Coordinator returns the gateway's coordinator.
func (c *Cluster) Coordinator() *coordinator.Coordinator {
	return c.coord
}

// KillNode stops the node listening on addr.
func (c *Cluster) KillNode(addr string) error {
	n := c.NodeByAddr(addr)
	if n == nil {
		return fmt.Errorf("node %s not found", addr)
	}
	n.Stop()
	return nil
}

// Stop stops the gateway and all nodes.
func (c *Cluster) Stop() {
	if c.server != nil {
		c.server.Close()
	}
	if c.pool != nil {
		_ = c.pool.Close()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, n := range c.nodes {
		n.Stop()
	}
	c.nodes = nil
}

// Stop stops a single node and waits for it to exit. Stopping twice is
// harmless.
func (n *Node) Stop() {
	n.once.Do(func() {
		n.node.Stop()
		<-n.done
		n.conn.Close()
	})
}

// GetClient returns a direct gRPC client for the node, bypassing the gateway.
func (n *Node) GetClient() api.KeyValueStoreClient {
	return n.client
}

// Response is a decoded gateway response.
type Response struct {
	Status int
	Body   map[string]any
}

// Do sends a request to the gateway. body, if not nil, is sent as JSON.
func (c *Cluster) Do(method, path string, body any) (Response, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return Response{}, err
		}
	}

	req, err := http.NewRequest(method, c.server.URL+path, &buf)
	if err != nil {
		return Response{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.server.Client().Do(req)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	out := Response{Status: resp.StatusCode}
	if err := json.NewDecoder(resp.Body).Decode(&out.Body); err != nil {
		return out, fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return out, nil
}

// Put stores key=value through the gateway.
func (c *Cluster) Put(key, value string) (Response, error) {
	return c.Do(http.MethodPost, "/put", map[string]string{"key": key, "value": value})
}

// Get reads key through the gateway.
func (c *Cluster) Get(key string) (Response, error) {
	return c.Do(http.MethodGet, "/get/"+url.PathEscape(key), nil)
}

// Delete removes key through the gateway.
func (c *Cluster) Delete(key string) (Response, error) {
	return c.Do(http.MethodDelete, "/delete/"+url.PathEscape(key), nil)
}

// MetricsText returns the gateway's /metrics page.
func (c *Cluster) MetricsText() (string, error) {
	resp, err := c.server.Client().Get(c.server.URL + "/metrics")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	return buf.String(), err
}
