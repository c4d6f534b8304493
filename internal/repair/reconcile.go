package repair

import "kvgateway/internal/clock"

// Candidate is one replica's copy of a key.
type Candidate struct {
	Node    string
	Value   []byte
	Version int64
}

// ReconcileResult represents the result of reconciling replica copies.
type ReconcileResult struct {
	// Winner is the copy with the strictly greatest version. Among equal
	// versions the one seen first wins.
	Winner Candidate
	// Found is false when there were no candidates at all.
	Found bool
	// Stale lists every copy strictly older than Winner, in input order.
	Stale []Candidate
}

// Reconcile picks the last writer among candidates. The input order is the
// tie-break, so callers must pass candidates in a deterministic order.
func Reconcile(candidates []Candidate) ReconcileResult {
	if len(candidates) == 0 {
		return ReconcileResult{}
	}

	winner := candidates[0]
	for _, c := range candidates[1:] {
		if clock.Compare(c.Version, winner.Version) == clock.After {
			winner = c
		}
	}

	stale := make([]Candidate, 0)
	for _, c := range candidates {
		if clock.Compare(c.Version, winner.Version) == clock.Before {
			stale = append(stale, c)
		}
	}

	return ReconcileResult{
		Winner: winner,
		Found:  true,
		Stale:  stale,
	}
}

// NeedsRepair returns true if any replica returned an older version.
func (r *ReconcileResult) NeedsRepair() bool {
	return len(r.Stale) > 0
}

// IsNotFound returns true if no replica held the key.
func (r *ReconcileResult) IsNotFound() bool {
	return !r.Found
}
