package repair

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"kvgateway/internal/quorum"
	"kvgateway/internal/replica"
)

// Report summarizes one read repair.
type Report struct {
	Attempted []string
	Repaired  []string
	Failed    []string
}

// Triggered reports whether any repair write was issued.
func (r Report) Triggered() bool {
	return len(r.Attempted) > 0
}

// ReadRepairer rewrites stale replicas with the winning record. Repairs
// are best effort: failures are logged and reported, never returned.
type ReadRepairer struct {
	source  replica.Source
	timeout time.Duration
	logger  *zap.Logger
}

// NewReadRepairer creates a new read repairer.
func NewReadRepairer(source replica.Source, timeout time.Duration, logger *zap.Logger) *ReadRepairer {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReadRepairer{
		source:  source,
		timeout: timeout,
		logger:  logger,
	}
}

// Repair writes winner to every stale replica and waits for the writes to
// finish. The writes run concurrently and outlive cancellation of ctx, up
// to the repair timeout, so a caller hanging up does not leave a repair
// half done.
func (r *ReadRepairer) Repair(ctx context.Context, key string, winner Candidate, stale []Candidate) Report {
	var report Report
	if len(stale) == 0 {
		return report
	}

	nodes := make([]string, 0, len(stale))
	for _, s := range stale {
		nodes = append(nodes, s.Node)
		r.logger.Info("repairing stale replica",
			zap.String("key", key),
			zap.String("node", s.Node),
			zap.Int64("old_version", s.Version),
			zap.Int64("new_version", winner.Version))
	}
	report.Attempted = nodes

	repairCtx := context.WithoutCancel(ctx)
	responses := quorum.FanOut[bool](repairCtx, nodes, r.timeout, func(ctx context.Context, node string) (bool, error) {
		return r.repairReplica(ctx, node, key, winner)
	})

	for _, resp := range responses {
		if resp.Err == nil && resp.Value {
			report.Repaired = append(report.Repaired, resp.Node)
			continue
		}
		err := resp.Err
		if err == nil {
			err = fmt.Errorf("replica rejected repair write")
		}
		report.Failed = append(report.Failed, resp.Node)
		r.logger.Warn("read repair failed",
			zap.String("key", key),
			zap.String("node", resp.Node),
			zap.Error(err))
	}

	return report
}

// repairReplica writes the winning record to one replica.
func (r *ReadRepairer) repairReplica(ctx context.Context, node, key string, winner Candidate) (bool, error) {
	client, err := r.source.Client(node)
	if err != nil {
		return false, fmt.Errorf("failed to get client: %w", err)
	}
	return client.Put(ctx, key, winner.Value, winner.Version)
}
