package replica

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"kvgateway/internal/api"
)

const (
	// DefaultCallTimeout bounds every call to a storage node.
	DefaultCallTimeout = 2 * time.Second
	// DefaultBreakerCooldown is how long an open breaker rejects calls
	// before letting a probe through.
	DefaultBreakerCooldown = 10 * time.Second
)

// Options configures the clients handed out by a Pool.
type Options struct {
	// CallTimeout bounds each call. Zero means DefaultCallTimeout.
	CallTimeout time.Duration
	// BreakerFailures is the number of consecutive failures that open a
	// node's circuit breaker. Zero disables the breaker.
	BreakerFailures uint32
	// BreakerCooldown is the open-state duration. Zero means
	// DefaultBreakerCooldown.
	BreakerCooldown time.Duration
	// Logger receives breaker state changes.
	Logger *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.CallTimeout <= 0 {
		o.CallTimeout = DefaultCallTimeout
	}
	if o.BreakerCooldown <= 0 {
		o.BreakerCooldown = DefaultBreakerCooldown
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// errCallerGone marks a failure caused by the caller cancelling, which says
// nothing about the node's health.
var errCallerGone = errors.New("caller cancelled")

// GRPCClient implements Client over the kvstore.KeyValueStore service.
type GRPCClient struct {
	node    string
	stub    api.KeyValueStoreClient
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker
}

// NewGRPCClient creates a client for node on an existing connection.
func NewGRPCClient(node string, cc grpc.ClientConnInterface, opts Options) *GRPCClient {
	opts = opts.withDefaults()
	c := &GRPCClient{
		node:    node,
		stub:    api.NewKeyValueStoreClient(cc),
		timeout: opts.CallTimeout,
	}
	if opts.BreakerFailures > 0 {
		logger := opts.Logger
		threshold := opts.BreakerFailures
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        node,
			MaxRequests: 1,
			Timeout:     opts.BreakerCooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, errCallerGone)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state changed",
					zap.String("node", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		})
	}
	return c
}

// call runs fn under the call timeout and the breaker, and normalizes any
// failure to ErrUnreachable.
func (c *GRPCClient) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	run := func() (interface{}, error) {
		err := fn(ctx)
		if err != nil && errors.Is(parent.Err(), context.Canceled) {
			return nil, fmt.Errorf("%w: %w", errCallerGone, err)
		}
		return nil, err
	}

	var err error
	if c.breaker != nil {
		_, err = c.breaker.Execute(run)
	} else {
		_, err = run()
	}
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrUnreachable, op, c.node, err)
	}
	return nil
}

// Put implements Client.
func (c *GRPCClient) Put(ctx context.Context, key string, value []byte, version int64) (bool, error) {
	var resp *api.PutResponse
	err := c.call(ctx, "put", func(ctx context.Context) error {
		var err error
		resp, err = c.stub.Put(ctx, &api.PutRequest{Key: key, Value: value, Version: version})
		return err
	})
	if err != nil {
		return false, err
	}
	return resp.Success, nil
}

// Get implements Client.
func (c *GRPCClient) Get(ctx context.Context, key string) (GetResult, error) {
	var resp *api.GetResponse
	err := c.call(ctx, "get", func(ctx context.Context) error {
		var err error
		resp, err = c.stub.Get(ctx, &api.GetRequest{Key: key})
		return err
	})
	if err != nil {
		return GetResult{}, err
	}
	return GetResult{Found: resp.Found, Value: resp.Value, Version: resp.Version}, nil
}

// Delete implements Client.
func (c *GRPCClient) Delete(ctx context.Context, key string) (bool, error) {
	var resp *api.DeleteResponse
	err := c.call(ctx, "delete", func(ctx context.Context) error {
		var err error
		resp, err = c.stub.Delete(ctx, &api.DeleteRequest{Key: key})
		return err
	})
	if err != nil {
		return false, err
	}
	return resp.Success, nil
}

// ListKeys implements Client.
func (c *GRPCClient) ListKeys(ctx context.Context) ([]string, error) {
	var resp *api.KeyListResponse
	err := c.call(ctx, "list_keys", func(ctx context.Context) error {
		var err error
		resp, err = c.stub.ListKeys(ctx, &api.Empty{})
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp.Keys, nil
}
