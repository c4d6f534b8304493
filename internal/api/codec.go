package api

import (
	"fmt"

	"google.golang.org/grpc/encoding"
	_ "google.golang.org/grpc/encoding/proto" // must register before the codec below replaces it
	"google.golang.org/grpc/mem"
	"google.golang.org/protobuf/proto"
)

// CodecName is the gRPC content-subtype the codec is registered under. It
// replaces the default protobuf codec so storage nodes built from the same
// api/kv_store.proto interoperate without extra call options.
const CodecName = "proto"

// WireMessage is implemented by every message in this package.
type WireMessage interface {
	MarshalWire() ([]byte, error)
	UnmarshalWire([]byte) error
}

// Codec encodes WireMessages directly and defers to the protobuf runtime
// for generated messages (reflection, health).
type Codec struct{}

func init() {
	encoding.RegisterCodecV2(Codec{})
}

// Marshal implements encoding.CodecV2.
func (Codec) Marshal(v any) (mem.BufferSlice, error) {
	var (
		b   []byte
		err error
	)
	switch m := v.(type) {
	case WireMessage:
		b, err = m.MarshalWire()
	case proto.Message:
		b, err = proto.Marshal(m)
	default:
		return nil, fmt.Errorf("api: cannot marshal %T", v)
	}
	if err != nil {
		return nil, err
	}
	return mem.BufferSlice{mem.SliceBuffer(b)}, nil
}

// Unmarshal implements encoding.CodecV2.
func (Codec) Unmarshal(data mem.BufferSlice, v any) error {
	b := data.Materialize()
	switch m := v.(type) {
	case WireMessage:
		return m.UnmarshalWire(b)
	case proto.Message:
		return proto.Unmarshal(b, m)
	default:
		return fmt.Errorf("api: cannot unmarshal into %T", v)
	}
}

// Name implements encoding.CodecV2.
func (Codec) Name() string {
	return CodecName
}
