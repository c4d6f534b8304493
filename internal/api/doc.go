// Package api defines the kvstore.KeyValueStore gRPC service spoken between
// the gateway and storage nodes: its request/response messages, the service
// descriptor with client and server bindings, and the codec that puts the
// messages on the wire in protobuf encoding. The contract is
// api/kv_store.proto at the repository root.
package api
