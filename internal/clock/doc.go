// Package clock provides the version source for last-writer-wins
// replication. Versions are nanosecond wall-clock timestamps that never go
// backwards within one process, so a later write from the same gateway
// always carries a strictly greater version.
package clock
