// Package replica is the gateway's view of a single storage node. A Client
// issues Put/Get/Delete/ListKeys against one node with a bounded timeout and
// reports every transport failure as ErrUnreachable; it never retries.
package replica
