package it

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kvgateway/internal/api"
	"kvgateway/internal/replication"
)

func TestSmoke_PutGetDelete_SingleKey(t *testing.T) {
	cluster := NewCluster(t)
	require.NoError(t, cluster.StartCluster(3, replication.DefaultPolicy()), "Failed to start cluster")

	// Put
	put, err := cluster.Put("test-key", "test-value")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, put.Status)
	assert.Equal(t, "Saved", put.Body["message"])
	assert.Len(t, put.Body["targets"], 2)

	// Get
	get, err := cluster.Get("test-key")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, get.Status)
	assert.Equal(t, "test-value", get.Body["value"])
	assert.Equal(t, put.Body["version"], get.Body["version"])
	assert.Equal(t, false, get.Body["repaired"])

	// Delete
	del, err := cluster.Delete("test-key")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, del.Status)
	assert.Equal(t, float64(2), del.Body["deleted_from"])

	// Get after delete
	get, err = cluster.Get("test-key")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, get.Status)
}

func TestQuorum_ToleratesOneNodeDown(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cluster := NewCluster(t)
	require.NoError(t, cluster.StartCluster(3, replication.DefaultPolicy()))

	targets := cluster.Coordinator().Targets("k1")
	require.Len(t, targets, 2)
	require.NoError(t, cluster.KillNode(targets[0]))

	put, err := cluster.Put("k1", "v1")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, put.Status, "write should survive one replica down: %v", put.Body)

	get, err := cluster.Get("k1")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, get.Status)
	assert.Equal(t, "v1", get.Body["value"])
	assert.Equal(t, targets[1], get.Body["source"])
}

func TestQuorum_StrictReadFailsWithNodeDown(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cluster := NewCluster(t)
	require.NoError(t, cluster.StartCluster(3, replication.Policy{N: 2, W: 1, R: 2}))

	put, err := cluster.Put("k1", "v1")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, put.Status)

	targets := cluster.Coordinator().Targets("k1")
	require.NoError(t, cluster.KillNode(targets[1]))

	get, err := cluster.Get("k1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, get.Status)
}

func TestReadRepair_RepairsStaleReplica(t *testing.T) {
	cluster := NewCluster(t)
	require.NoError(t, cluster.StartCluster(3, replication.DefaultPolicy()))

	targets := cluster.Coordinator().Targets("user:1")
	require.Len(t, targets, 2)
	stale, fresh := cluster.NodeByAddr(targets[0]), cluster.NodeByAddr(targets[1])

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Seed the replicas directly so they disagree.
	_, err := stale.GetClient().Put(ctx, &api.PutRequest{Key: "user:1", Value: []byte("old"), Version: 100})
	require.NoError(t, err)
	_, err = fresh.GetClient().Put(ctx, &api.PutRequest{Key: "user:1", Value: []byte("new"), Version: 200})
	require.NoError(t, err)

	get, err := cluster.Get("user:1")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, get.Status)
	assert.Equal(t, "new", get.Body["value"])
	assert.Equal(t, float64(200), get.Body["version"])
	assert.Equal(t, fresh.Addr, get.Body["source"])
	assert.Equal(t, true, get.Body["repaired"])

	// The repair is synchronous: the stale replica is already fixed.
	repaired, err := stale.GetClient().Get(ctx, &api.GetRequest{Key: "user:1"})
	require.NoError(t, err)
	assert.Equal(t, "new", string(repaired.Value))
	assert.Equal(t, int64(200), repaired.Version)

	// Reading again finds nothing to repair.
	get, err = cluster.Get("user:1")
	require.NoError(t, err)
	assert.Equal(t, false, get.Body["repaired"])

	text, err := cluster.MetricsText()
	require.NoError(t, err)
	assert.Contains(t, text, `gateway_read_repairs_total{outcome="ok"} 1`)
}

func TestConcurrentWrites_LastWriterWins(t *testing.T) {
	cluster := NewCluster(t)
	require.NoError(t, cluster.StartCluster(3, replication.DefaultPolicy()))

	var wg sync.WaitGroup
	versions := make([]float64, 10)
	for i := range versions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			put, err := cluster.Put("hot", fmt.Sprintf("v%d", i))
			if err == nil && put.Status == http.StatusOK {
				versions[i], _ = put.Body["version"].(float64)
			}
		}()
	}
	wg.Wait()

	latest := 0
	for i, v := range versions {
		require.NotZero(t, v, "write %d failed", i)
		if v > versions[latest] {
			latest = i
		}
	}

	get, err := cluster.Get("hot")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, get.Status)
	assert.Equal(t, fmt.Sprintf("v%d", latest), get.Body["value"])
}

func TestClusterMap_ReportsOfflineNode(t *testing.T) {
	cluster := NewCluster(t)
	require.NoError(t, cluster.StartCluster(3, replication.DefaultPolicy()))

	put, err := cluster.Put("k1", "v1")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, put.Status)

	addrs := cluster.Addrs()
	require.NoError(t, cluster.KillNode(addrs[2]))

	m, err := cluster.Do(http.MethodGet, "/map", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, m.Status)
	require.Len(t, m.Body, 3)

	offline := m.Body[addrs[2]].(map[string]any)
	assert.Equal(t, "Offline", offline["status"])

	holders := 0
	for _, addr := range addrs[:2] {
		state := m.Body[addr].(map[string]any)
		assert.Equal(t, "Online", state["status"])
		for _, k := range state["keys"].([]any) {
			if k == "k1" {
				holders++
			}
		}
	}
	assert.GreaterOrEqual(t, holders, 1)
}
