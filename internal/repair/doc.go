// Package repair reconciles the copies of a key returned by its replicas
// with last-writer-wins and rewrites stale replicas with the winning record
// (read repair).
package repair
