package repair

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"kvgateway/internal/replica"
)

type putCall struct {
	node    string
	key     string
	value   string
	version int64
}

// mockSource records repair writes per node.
type mockSource struct {
	mu      sync.Mutex
	calls   []putCall
	failFor map[string]bool
	delay   time.Duration
}

type mockClient struct {
	node string
	src  *mockSource
}

func (s *mockSource) Client(node string) (replica.Client, error) {
	return &mockClient{node: node, src: s}, nil
}

func (c *mockClient) Put(ctx context.Context, key string, value []byte, version int64) (bool, error) {
	if c.src.delay > 0 {
		select {
		case <-time.After(c.src.delay):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	c.src.mu.Lock()
	defer c.src.mu.Unlock()
	c.src.calls = append(c.src.calls, putCall{node: c.node, key: key, value: string(value), version: version})
	if c.src.failFor[c.node] {
		return false, replica.ErrUnreachable
	}
	return true, nil
}

func (c *mockClient) Get(ctx context.Context, key string) (replica.GetResult, error) {
	return replica.GetResult{}, errors.New("not implemented")
}

func (c *mockClient) Delete(ctx context.Context, key string) (bool, error) {
	return false, errors.New("not implemented")
}

func (c *mockClient) ListKeys(ctx context.Context) ([]string, error) {
	return nil, errors.New("not implemented")
}

func TestReadRepairer_Repair_SingleStale(t *testing.T) {
	src := &mockSource{}
	repairer := NewReadRepairer(src, time.Second, nil)

	winner := Candidate{Node: "b", Value: []byte("value"), Version: 200}
	stale := []Candidate{{Node: "a", Value: []byte("old"), Version: 100}}

	report := repairer.Repair(context.Background(), "test-key", winner, stale)

	if !report.Triggered() {
		t.Error("Expected repair to be triggered")
	}
	if len(report.Repaired) != 1 || report.Repaired[0] != "a" {
		t.Errorf("Expected a repaired, got %v", report.Repaired)
	}

	// Synchronous: the write has happened by the time Repair returns.
	if len(src.calls) != 1 {
		t.Fatalf("Expected 1 repair write, got %d", len(src.calls))
	}
	want := putCall{node: "a", key: "test-key", value: "value", version: 200}
	if src.calls[0] != want {
		t.Errorf("Expected %+v, got %+v", want, src.calls[0])
	}
}

func TestReadRepairer_Repair_NoStale(t *testing.T) {
	src := &mockSource{}
	repairer := NewReadRepairer(src, time.Second, nil)

	report := repairer.Repair(context.Background(), "test-key", Candidate{Node: "a", Version: 1}, nil)

	if report.Triggered() {
		t.Error("Expected no repair when no stale replicas")
	}
	if len(src.calls) != 0 {
		t.Error("Expected Put NOT to be called when no stale replicas")
	}
}

func TestReadRepairer_Repair_FailureIsReported(t *testing.T) {
	src := &mockSource{failFor: map[string]bool{"a": true}}
	repairer := NewReadRepairer(src, time.Second, nil)

	winner := Candidate{Node: "c", Value: []byte("value"), Version: 300}
	stale := []Candidate{{Node: "a", Version: 100}, {Node: "b", Version: 200}}

	report := repairer.Repair(context.Background(), "k", winner, stale)

	if len(report.Attempted) != 2 {
		t.Errorf("Expected 2 attempts, got %v", report.Attempted)
	}
	if len(report.Failed) != 1 || report.Failed[0] != "a" {
		t.Errorf("Expected a to fail, got %v", report.Failed)
	}
	if len(report.Repaired) != 1 || report.Repaired[0] != "b" {
		t.Errorf("Expected b repaired, got %v", report.Repaired)
	}
}

func TestReadRepairer_Repair_SurvivesCancelledCaller(t *testing.T) {
	src := &mockSource{delay: 20 * time.Millisecond}
	repairer := NewReadRepairer(src, time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := repairer.Repair(ctx, "k", Candidate{Node: "b", Version: 2}, []Candidate{{Node: "a", Version: 1}})

	if len(report.Repaired) != 1 {
		t.Errorf("Expected repair to complete despite cancelled caller, got %+v", report)
	}
}
