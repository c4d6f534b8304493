package coordinator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"kvgateway/internal/clock"
	"kvgateway/internal/metrics"
	"kvgateway/internal/quorum"
	"kvgateway/internal/repair"
	"kvgateway/internal/replica"
	"kvgateway/internal/replication"
	"kvgateway/internal/ring"
)

const (
	// DefaultTimeout bounds one fan-out.
	DefaultTimeout = 2 * time.Second
	// DefaultRetryInterval is the first backoff step of a write retry.
	DefaultRetryInterval = 50 * time.Millisecond
)

// PutResult describes an accepted write.
type PutResult struct {
	Version int64
	// Targets lists every replica of the key in ring order.
	Targets []string
	// Acked lists the replicas that stored the write.
	Acked []string
}

// GetResult is the winning copy of a key.
type GetResult struct {
	Value   []byte
	Version int64
	// Source is the replica the winning copy came from.
	Source string
	// Repaired is true when stale replicas were found and rewritten,
	// whether or not every repair write succeeded.
	Repaired bool
	// RepairedNodes lists the replicas whose repair write succeeded.
	RepairedNodes []string
}

// DeleteResult reports how many replicas removed the key.
type DeleteResult struct {
	Deleted int
	Targets []string
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock sets the version source.
func WithClock(clk clock.Clock) Option {
	return func(c *Coordinator) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// WithPolicy sets the write and read quorums.
func WithPolicy(p replication.Policy) Option {
	return func(c *Coordinator) {
		c.policy = p
	}
}

// WithTimeout bounds every fan-out.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithWriteRetries retries unreachable replicas up to n extra times per
// write, with exponential backoff starting at initial.
func WithWriteRetries(n int, initial time.Duration) Option {
	return func(c *Coordinator) {
		if n >= 0 {
			c.writeRetries = n
		}
		if initial > 0 {
			c.retryInterval = initial
		}
	}
}

// WithMetrics records replica calls and repairs.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// WithStaticNodes sets the node list reported by ClusterStatus. It defaults
// to the ring's members when the coordinator is created.
func WithStaticNodes(nodes []string) Option {
	return func(c *Coordinator) {
		c.staticNodes = append([]string(nil), nodes...)
	}
}

// Coordinator routes requests to the replicas of a key.
type Coordinator struct {
	ring          *ring.Ring
	source        replica.Source
	staticNodes   []string
	clock         clock.Clock
	policy        replication.Policy
	timeout       time.Duration
	writeRetries  int
	retryInterval time.Duration
	repairer      *repair.ReadRepairer
	logger        *zap.Logger
	metrics       *metrics.Metrics
}

// New creates a coordinator over r that reaches nodes through source.
func New(r *ring.Ring, source replica.Source, opts ...Option) *Coordinator {
	c := &Coordinator{
		ring:          r,
		source:        source,
		clock:         clock.NewWall(),
		policy:        replication.DefaultPolicy(),
		timeout:       DefaultTimeout,
		retryInterval: DefaultRetryInterval,
		logger:        zap.NewNop(),
	}
	c.policy.N = r.ReplicationFactor()
	for _, opt := range opts {
		opt(c)
	}
	if c.staticNodes == nil {
		c.staticNodes = r.Nodes()
	}
	c.repairer = repair.NewReadRepairer(source, c.timeout, c.logger)
	c.metrics.SetRingNodes(r.Len())
	return c
}

// Policy returns the replication policy in use.
func (c *Coordinator) Policy() replication.Policy {
	return c.policy
}

// Put stamps value with a fresh version and writes it to every replica of
// key. It succeeds once W replicas acknowledged.
func (c *Coordinator) Put(ctx context.Context, key string, value []byte) (PutResult, error) {
	if key == "" {
		return PutResult{}, ErrEmptyKey
	}

	version := c.clock.Now()
	targets := c.ring.GetNodes(key)
	if len(targets) == 0 {
		return PutResult{}, fmt.Errorf("%w: no nodes on the ring", ErrNoQuorum)
	}

	required := c.policy.RequiredAcks(len(targets))
	start := time.Now()
	result := quorum.DoWrite(ctx, targets, required, c.timeout, func(ctx context.Context, node string) (bool, error) {
		return c.putReplica(ctx, node, key, value, version)
	})
	c.metrics.ObserveFanOut("put", time.Since(start).Seconds())

	if !result.Success {
		c.logger.Warn("write failed",
			zap.String("key", key),
			zap.Strings("targets", targets),
			zap.String("reason", result.ErrorMessage))
		if required == 1 {
			return PutResult{}, fmt.Errorf("%w: no node acknowledged the write", ErrNoQuorum)
		}
		return PutResult{}, fmt.Errorf("%w: %s", ErrNoQuorum, result.ErrorMessage)
	}

	c.logger.Debug("write accepted",
		zap.String("key", key),
		zap.Int64("version", version),
		zap.Strings("acked", result.Acked))

	return PutResult{
		Version: version,
		Targets: targets,
		Acked:   result.Acked,
	}, nil
}

// putReplica writes one replica, retrying unreachable nodes when write
// retries are enabled. A replica that answers success=false is not retried.
func (c *Coordinator) putReplica(ctx context.Context, node, key string, value []byte, version int64) (bool, error) {
	client, err := c.source.Client(node)
	if err != nil {
		c.metrics.ObserveReplicaCall("put", metrics.OutcomeUnreachable)
		return false, err
	}

	op := func() (bool, error) {
		ok, err := client.Put(ctx, key, value, version)
		c.metrics.ObserveReplicaCall("put", outcome(ok, err))
		if err != nil && !errors.Is(err, replica.ErrUnreachable) {
			return false, backoff.Permanent(err)
		}
		return ok, err
	}

	if c.writeRetries == 0 {
		return op()
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.writeRetries)), ctx)
	return backoff.RetryWithData(op, policy)
}

// Get reads key from every replica, returns the copy with the greatest
// version and rewrites replicas holding an older one before returning.
func (c *Coordinator) Get(ctx context.Context, key string) (GetResult, error) {
	if key == "" {
		return GetResult{}, ErrEmptyKey
	}

	targets := c.ring.GetNodes(key)
	required := c.policy.RequiredResponses(len(targets))

	start := time.Now()
	read := quorum.DoRead[replica.GetResult](ctx, targets, required, c.timeout, func(ctx context.Context, node string) (replica.GetResult, error) {
		client, err := c.source.Client(node)
		if err != nil {
			c.metrics.ObserveReplicaCall("get", metrics.OutcomeUnreachable)
			return replica.GetResult{}, err
		}
		res, err := client.Get(ctx, key)
		c.metrics.ObserveReplicaCall("get", outcome(true, err))
		return res, err
	})
	c.metrics.ObserveFanOut("get", time.Since(start).Seconds())

	if !read.Success {
		c.logger.Warn("read failed",
			zap.String("key", key),
			zap.Strings("targets", targets),
			zap.String("reason", read.ErrorMessage))
		return GetResult{}, fmt.Errorf("%w: %s", ErrNoQuorum, read.ErrorMessage)
	}

	candidates := make([]repair.Candidate, 0, len(read.Values))
	for _, v := range read.Values {
		if v.Value.Found {
			candidates = append(candidates, repair.Candidate{
				Node:    v.Node,
				Value:   v.Value.Value,
				Version: v.Value.Version,
			})
		}
	}

	reconciled := repair.Reconcile(candidates)
	if reconciled.IsNotFound() {
		return GetResult{}, ErrNotFound
	}

	winner := reconciled.Winner
	result := GetResult{
		Value:   winner.Value,
		Version: winner.Version,
		Source:  winner.Node,
	}

	if reconciled.NeedsRepair() {
		report := c.repairer.Repair(ctx, key, winner, reconciled.Stale)
		c.metrics.ObserveRepair(len(report.Repaired), len(report.Failed))
		result.Repaired = report.Triggered()
		result.RepairedNodes = report.Repaired
	}

	return result, nil
}

// Delete removes key from every replica. Deletes are not versioned: a
// replica that misses one can bring the key back through read repair.
func (c *Coordinator) Delete(ctx context.Context, key string) (DeleteResult, error) {
	if key == "" {
		return DeleteResult{}, ErrEmptyKey
	}

	targets := c.ring.GetNodes(key)
	start := time.Now()
	responses := quorum.FanOut[bool](ctx, targets, c.timeout, func(ctx context.Context, node string) (bool, error) {
		client, err := c.source.Client(node)
		if err != nil {
			c.metrics.ObserveReplicaCall("delete", metrics.OutcomeUnreachable)
			return false, err
		}
		ok, err := client.Delete(ctx, key)
		c.metrics.ObserveReplicaCall("delete", outcome(ok, err))
		return ok, err
	})
	c.metrics.ObserveFanOut("delete", time.Since(start).Seconds())

	result := DeleteResult{Targets: targets}
	for _, r := range responses {
		if r.Err == nil && r.Value {
			result.Deleted++
		}
	}
	return result, nil
}

// Targets returns the replicas of key in ring order.
func (c *Coordinator) Targets(key string) []string {
	return c.ring.GetNodes(key)
}

// Nodes returns the ring members.
func (c *Coordinator) Nodes() []string {
	return c.ring.Nodes()
}

// AddNode puts node on the ring.
func (c *Coordinator) AddNode(node string) error {
	if node == "" {
		return ErrEmptyNode
	}
	c.ring.AddNode(node)
	c.metrics.SetRingNodes(c.ring.Len())
	c.logger.Info("node added to ring", zap.String("node", node), zap.Int("ring_size", c.ring.Len()))
	return nil
}

// RemoveNode takes node off the ring. Unknown nodes are ignored.
func (c *Coordinator) RemoveNode(node string) error {
	if node == "" {
		return ErrEmptyNode
	}
	c.ring.RemoveNode(node)
	c.metrics.SetRingNodes(c.ring.Len())
	c.logger.Info("node removed from ring", zap.String("node", node), zap.Int("ring_size", c.ring.Len()))

	// Static nodes stay reachable for ClusterStatus.
	if f, ok := c.source.(replica.Forgetter); ok && !slices.Contains(c.staticNodes, node) {
		if err := f.Forget(node); err != nil {
			c.logger.Warn("failed to release node connection", zap.String("node", node), zap.Error(err))
		}
	}
	return nil
}

func outcome(ok bool, err error) string {
	switch {
	case err != nil:
		return metrics.OutcomeUnreachable
	case !ok:
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeOK
	}
}
