// Package quorum provides the fan-out used by every replicated operation:
// one goroutine per replica, a shared deadline, and aggregation of the
// per-replica outcomes into write acknowledgements or read responses.
package quorum
