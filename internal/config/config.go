// Package config loads the static configuration of the gateway and storage
// node processes from command-line flags, with environment variables as
// defaults.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"kvgateway/internal/replication"
)

// Environment variables read by Load*.
const (
	EnvNodeAddresses     = "STORAGE_NODE_ADDRESSES"
	EnvReplicationFactor = "REPLICATION_FACTOR"
	EnvWriteQuorum       = "WRITE_QUORUM"
	EnvReadQuorum        = "READ_QUORUM"
	EnvGatewayListen     = "GATEWAY_LISTEN"
	EnvNodeListen        = "NODE_LISTEN"
	EnvNodeID            = "NODE_ID"
	EnvLogLevel          = "LOG_LEVEL"
)

const (
	DefaultNodeAddresses = "localhost:50051"
	DefaultGatewayListen = ":8080"
	DefaultNodeListen    = ":50051"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Gateway holds the gateway configuration.
type Gateway struct {
	Listen          string
	Nodes           []string
	Policy          replication.Policy
	VirtualNodes    int
	Timeout         time.Duration
	CallTimeout     time.Duration
	WriteRetries    int
	BreakerFailures uint32
	BreakerCooldown time.Duration
	LogLevel        string
	Development     bool
}

// StorageNode holds the storage node configuration.
type StorageNode struct {
	NodeID      string
	Listen      string
	LogLevel    string
	Development bool
}

// ParseNodes parses a comma-separated list of node addresses:
// "host1:50051,host2:50051". Entries are trimmed, empty entries skipped and
// duplicates rejected.
func ParseNodes(nodesStr string) ([]string, error) {
	if strings.TrimSpace(nodesStr) == "" {
		return []string{}, nil
	}

	parts := strings.Split(nodesStr, ",")
	nodes := make([]string, 0, len(parts))
	seen := make(map[string]bool, len(parts))

	for _, part := range parts {
		addr := strings.TrimSpace(part)
		if addr == "" {
			continue
		}
		if strings.ContainsAny(addr, " \t") {
			return nil, fmt.Errorf("invalid node address: %q", addr)
		}
		if seen[addr] {
			return nil, fmt.Errorf("duplicate node address: %s", addr)
		}
		seen[addr] = true
		nodes = append(nodes, addr)
	}

	return nodes, nil
}

// LoadGateway parses args (without the program name). getenv supplies
// flag defaults and is usually os.Getenv.
func LoadGateway(args []string, getenv func(string) string) (*Gateway, error) {
	fs := flag.NewFlagSet("gateway", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	env := envReader{getenv: getenv}
	def := replication.DefaultPolicy()

	listen := fs.String("listen", env.str(EnvGatewayListen, DefaultGatewayListen), "HTTP listen address")
	nodes := fs.String("nodes", env.str(EnvNodeAddresses, DefaultNodeAddresses), "comma-separated storage node addresses")
	n := fs.Int("replication-factor", env.num(EnvReplicationFactor, def.N), "distinct nodes per key (N)")
	w := fs.Int("write-quorum", env.num(EnvWriteQuorum, def.W), "acknowledgements a write needs (W)")
	r := fs.Int("read-quorum", env.num(EnvReadQuorum, def.R), "replicas that must answer a read (R), 0 for no minimum")
	vnodes := fs.Int("virtual-nodes", 1, "ring positions per node")
	timeout := fs.Duration("timeout", 2*time.Second, "deadline of one replica fan-out")
	callTimeout := fs.Duration("call-timeout", 2*time.Second, "deadline of one storage node call")
	retries := fs.Int("write-retries", 0, "extra attempts for unreachable replicas on write")
	breakerFailures := fs.Uint("breaker-failures", 5, "consecutive failures that open a node's circuit breaker, 0 disables it")
	breakerCooldown := fs.Duration("breaker-cooldown", 10*time.Second, "how long an open circuit breaker rejects calls")
	logLevel := fs.String("log-level", env.str(EnvLogLevel, "info"), "debug, info, warn or error")
	dev := fs.Bool("dev", false, "console logging")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := env.err(); err != nil {
		return nil, err
	}

	parsed, err := ParseNodes(*nodes)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if *breakerFailures > math.MaxUint32 {
		return nil, fmt.Errorf("%w: breaker-failures=%d exceeds %d", ErrInvalidConfig, *breakerFailures, uint32(math.MaxUint32))
	}

	cfg := &Gateway{
		Listen:          *listen,
		Nodes:           parsed,
		Policy:          replication.Policy{N: *n, W: *w, R: *r},
		VirtualNodes:    *vnodes,
		Timeout:         *timeout,
		CallTimeout:     *callTimeout,
		WriteRetries:    *retries,
		BreakerFailures: uint32(*breakerFailures),
		BreakerCooldown: *breakerCooldown,
		LogLevel:        *logLevel,
		Development:     *dev,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the gateway configuration.
func (c *Gateway) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("%w: listen address cannot be empty", ErrInvalidConfig)
	}
	if len(c.Nodes) == 0 {
		return fmt.Errorf("%w: at least one storage node is required", ErrInvalidConfig)
	}
	if err := c.Policy.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.VirtualNodes < 1 {
		return fmt.Errorf("%w: virtual-nodes=%d must be at least 1", ErrInvalidConfig, c.VirtualNodes)
	}
	if c.Timeout <= 0 || c.CallTimeout <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidConfig)
	}
	if c.WriteRetries < 0 {
		return fmt.Errorf("%w: write-retries=%d cannot be negative", ErrInvalidConfig, c.WriteRetries)
	}
	return nil
}

// LoadStorageNode parses the storage node flags.
func LoadStorageNode(args []string, getenv func(string) string) (*StorageNode, error) {
	fs := flag.NewFlagSet("storagenode", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	env := envReader{getenv: getenv}
	listen := fs.String("listen", env.str(EnvNodeListen, DefaultNodeListen), "gRPC listen address")
	nodeID := fs.String("node-id", env.str(EnvNodeID, ""), "node identifier used in logs, defaults to the listen address")
	logLevel := fs.String("log-level", env.str(EnvLogLevel, "info"), "debug, info, warn or error")
	dev := fs.Bool("dev", false, "console logging")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	cfg := &StorageNode{
		NodeID:      *nodeID,
		Listen:      *listen,
		LogLevel:    *logLevel,
		Development: *dev,
	}
	if cfg.Listen == "" {
		return nil, fmt.Errorf("%w: listen address cannot be empty", ErrInvalidConfig)
	}
	if cfg.NodeID == "" {
		cfg.NodeID = cfg.Listen
	}
	return cfg, nil
}

// envReader reads flag defaults from the environment and remembers the
// first malformed value.
type envReader struct {
	getenv  func(string) string
	invalid error
}

func (e *envReader) str(key, fallback string) string {
	if e.getenv == nil {
		return fallback
	}
	if v := strings.TrimSpace(e.getenv(key)); v != "" {
		return v
	}
	return fallback
}

func (e *envReader) num(key string, fallback int) int {
	v := e.str(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		if e.invalid == nil {
			e.invalid = fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, key, v)
		}
		return fallback
	}
	return n
}

func (e *envReader) err() error {
	return e.invalid
}
