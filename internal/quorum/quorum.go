package quorum

import (
	"context"
	"fmt"
	"time"
)

const (
	// DefaultPerReplicaTimeout is the default deadline for one fan-out.
	DefaultPerReplicaTimeout = 2 * time.Second
)

// Response is the outcome of one replica call.
type Response[T any] struct {
	Node  string
	Value T
	Err   error
}

// WriteResult represents the result of a quorum write operation.
type WriteResult struct {
	Success      bool
	Acks         int
	Required     int
	Replicas     int
	Acked        []string
	Failed       []string
	ErrorMessage string
}

// ReadResult represents the result of a quorum read operation.
type ReadResult[T any] struct {
	Success   bool
	Responses int
	Required  int
	Replicas  int
	// Values holds the replicas that answered, in replica order.
	Values       []Response[T]
	ErrorMessage string
}

// ReplicaWriteFunc performs a write to a single replica. Returns true if the
// replica acknowledged it.
type ReplicaWriteFunc func(ctx context.Context, replica string) (bool, error)

// ReplicaReadFunc performs a read from a single replica.
type ReplicaReadFunc[T any] func(ctx context.Context, replica string) (T, error)

// FanOut calls fn for every replica concurrently and waits for all of them
// or for the deadline, whichever comes first. Responses are returned in
// replica order regardless of completion order; replicas that did not
// answer in time carry the context error.
func FanOut[T any](ctx context.Context, replicas []string, timeout time.Duration, fn func(ctx context.Context, replica string) (T, error)) []Response[T] {
	if timeout <= 0 {
		timeout = DefaultPerReplicaTimeout
	}
	fanCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type indexed struct {
		idx  int
		resp Response[T]
	}
	// Buffered so late replicas never block after we stop listening.
	results := make(chan indexed, len(replicas))

	for i, rid := range replicas {
		go func() {
			value, err := fn(fanCtx, rid)
			results <- indexed{idx: i, resp: Response[T]{Node: rid, Value: value, Err: err}}
		}()
	}

	responses := make([]Response[T], len(replicas))
	done := make([]bool, len(replicas))
	for received := 0; received < len(replicas); received++ {
		select {
		case r := <-results:
			responses[r.idx] = r.resp
			done[r.idx] = true
		case <-fanCtx.Done():
			for i, rid := range replicas {
				if !done[i] {
					responses[i] = Response[T]{Node: rid, Err: fanCtx.Err()}
				}
			}
			return responses
		}
	}
	return responses
}

// DoWrite performs a quorum write operation. It fans out to all replicas in
// parallel, waits for every replica (or the deadline) and succeeds when at
// least requiredW acknowledged. requiredW <= 0 means 1.
func DoWrite(ctx context.Context, replicas []string, requiredW int, timeout time.Duration, writeFn ReplicaWriteFunc) WriteResult {
	if len(replicas) == 0 {
		return WriteResult{
			Success:      false,
			ErrorMessage: "no replicas provided",
		}
	}

	if requiredW <= 0 {
		requiredW = 1
	}

	if requiredW > len(replicas) {
		return WriteResult{
			Success:      false,
			Required:     requiredW,
			Replicas:     len(replicas),
			Failed:       append([]string(nil), replicas...),
			ErrorMessage: fmt.Sprintf("required W=%d exceeds replica count=%d", requiredW, len(replicas)),
		}
	}

	responses := FanOut[bool](ctx, replicas, timeout, writeFn)

	result := WriteResult{
		Required: requiredW,
		Replicas: len(replicas),
	}
	var errs []error
	for _, r := range responses {
		if r.Err == nil && r.Value {
			result.Acks++
			result.Acked = append(result.Acked, r.Node)
			continue
		}
		result.Failed = append(result.Failed, r.Node)
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("replica %s: %w", r.Node, r.Err))
		}
	}

	if result.Acks >= requiredW {
		result.Success = true
		return result
	}

	// Quorum not met
	result.ErrorMessage = fmt.Sprintf("quorum not met: acks=%d required=%d replicas=%d", result.Acks, requiredW, len(replicas))
	if len(errs) > 0 {
		result.ErrorMessage += fmt.Sprintf(" errors=%v", errs[:min(3, len(errs))])
	}
	return result
}

// DoRead performs a quorum read operation. It fans out to all replicas in
// parallel and waits for every replica (or the deadline); there is no early
// return, so the caller sees every answer. It succeeds when at least
// requiredR replicas answered without error.
func DoRead[T any](ctx context.Context, replicas []string, requiredR int, timeout time.Duration, readFn ReplicaReadFunc[T]) ReadResult[T] {
	if requiredR < 0 {
		requiredR = 0
	}

	if requiredR > len(replicas) {
		return ReadResult[T]{
			Success:      false,
			Required:     requiredR,
			Replicas:     len(replicas),
			ErrorMessage: fmt.Sprintf("required R=%d exceeds replica count=%d", requiredR, len(replicas)),
		}
	}

	if len(replicas) == 0 {
		return ReadResult[T]{Success: true, Required: requiredR}
	}

	responses := FanOut[T](ctx, replicas, timeout, readFn)

	result := ReadResult[T]{
		Required: requiredR,
		Replicas: len(replicas),
	}
	var errs []error
	for _, r := range responses {
		if r.Err != nil {
			errs = append(errs, r.Err)
			continue
		}
		result.Responses++
		result.Values = append(result.Values, r)
	}

	if result.Responses >= requiredR {
		result.Success = true
		return result
	}

	// Quorum not met
	result.ErrorMessage = fmt.Sprintf("quorum not met: responses=%d required=%d replicas=%d", result.Responses, requiredR, len(replicas))
	if len(errs) > 0 {
		result.ErrorMessage += fmt.Sprintf(" errors=%v", errs[:min(3, len(errs))])
	}
	return result
}
