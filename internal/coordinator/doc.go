// Package coordinator implements the replication coordinator behind the
// gateway. For every request it resolves the key's replicas on the hash
// ring, fans the call out to all of them concurrently and aggregates the
// answers: writes succeed once W replicas acknowledge, reads pick the last
// writer among the replicas that hold the key and repair the stale ones
// before returning.
package coordinator
