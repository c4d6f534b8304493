package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClusterStatus(t *testing.T) {
	c, cluster := newTestCoordinator(t, 2, []string{"A", "B", "C"})
	cluster.nodes["A"].seed("k2", "v", 1)
	cluster.nodes["A"].seed("k1", "v", 1)
	cluster.nodes["C"].setDown(true)

	status := c.ClusterStatus(context.Background())
	require.Len(t, status, 3)

	assert.True(t, status["A"].Online)
	assert.Equal(t, []string{"k1", "k2"}, status["A"].Keys)
	assert.True(t, status["B"].Online)
	assert.NotNil(t, status["B"].Keys)
	assert.Empty(t, status["B"].Keys)
	assert.False(t, status["C"].Online)
	assert.Nil(t, status["C"].Keys)
}

func TestClusterStatus_UsesStaticNodeList(t *testing.T) {
	c, _ := newTestCoordinator(t, 2, []string{"A", "B"})

	require.NoError(t, c.RemoveNode("B"))
	require.NoError(t, c.AddNode("D"))

	status := c.ClusterStatus(context.Background())
	assert.Len(t, status, 2)
	assert.Contains(t, status, "A")
	assert.Contains(t, status, "B")
	// D is on the ring but not in the configured list.
	assert.NotContains(t, status, "D")
	assert.Equal(t, []string{"A", "B"}, c.StaticNodes())
}

func TestClusterStatus_SlowNodeIsOffline(t *testing.T) {
	c, cluster := newTestCoordinator(t, 2, []string{"A", "B"}, WithTimeout(50*time.Millisecond))
	cluster.nodes["B"].delay = time.Second

	status := c.ClusterStatus(context.Background())
	assert.True(t, status["A"].Online)
	assert.False(t, status["B"].Online)
}
