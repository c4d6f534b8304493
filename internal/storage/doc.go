// Package storage provides the storage node's local key-value store. Every
// record carries the version assigned by the gateway, and writes older than
// the stored version are ignored (last writer wins).
package storage
