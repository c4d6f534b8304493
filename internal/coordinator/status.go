package coordinator

import (
	"context"

	"go.uber.org/zap"

	"kvgateway/internal/quorum"
)

// NodeStatus is one node's entry in the cluster map.
type NodeStatus struct {
	Online bool
	// Keys is nil for offline nodes.
	Keys []string
}

// ClusterStatus asks every node of the static node list for its keys.
// Nodes that do not answer in time are reported offline.
func (c *Coordinator) ClusterStatus(ctx context.Context) map[string]NodeStatus {
	responses := quorum.FanOut[[]string](ctx, c.staticNodes, c.timeout, func(ctx context.Context, node string) ([]string, error) {
		client, err := c.source.Client(node)
		if err != nil {
			return nil, err
		}
		return client.ListKeys(ctx)
	})

	status := make(map[string]NodeStatus, len(responses))
	for _, r := range responses {
		if r.Err != nil {
			c.logger.Debug("node offline", zap.String("node", r.Node), zap.Error(r.Err))
			status[r.Node] = NodeStatus{Online: false}
			continue
		}
		keys := r.Value
		if keys == nil {
			keys = []string{}
		}
		status[r.Node] = NodeStatus{Online: true, Keys: keys}
	}
	return status
}

// StaticNodes returns the node list ClusterStatus reports on.
func (c *Coordinator) StaticNodes() []string {
	return append([]string(nil), c.staticNodes...)
}
