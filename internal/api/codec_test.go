package api

import (
	"os"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/mem"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func TestCodec_Registered(t *testing.T) {
	c := encoding.GetCodecV2(CodecName)
	require.NotNil(t, c)
	_, ok := c.(Codec)
	assert.True(t, ok, "expected api.Codec to replace the default codec, got %T", c)
}

func TestCodec_RoundTrip(t *testing.T) {
	c := Codec{}

	in := &PutRequest{Key: "k1", Value: []byte("v1"), Version: 1_700_000_000_123_456_789}
	data, err := c.Marshal(in)
	require.NoError(t, err)

	out := &PutRequest{}
	require.NoError(t, c.Unmarshal(data, out))
	assert.Equal(t, in, out)

	list := &KeyListResponse{Keys: []string{"a", "b", "c"}}
	data, err = c.Marshal(list)
	require.NoError(t, err)
	gotList := &KeyListResponse{}
	require.NoError(t, c.Unmarshal(data, gotList))
	assert.Equal(t, list.Keys, gotList.Keys)
}

func TestCodec_FieldNumbers(t *testing.T) {
	// GetResponse{value=1, version=2, found=3} built by hand.
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte("v"))
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, 200)
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, 1)
	// Unknown field is skipped.
	b = protowire.AppendTag(b, 9, protowire.BytesType)
	b = protowire.AppendString(b, "ignored")

	resp := &GetResponse{}
	require.NoError(t, resp.UnmarshalWire(b))
	assert.Equal(t, []byte("v"), resp.Value)
	assert.Equal(t, int64(200), resp.Version)
	assert.True(t, resp.Found)
}

func TestCodec_DefaultsOmitted(t *testing.T) {
	b, err := (&GetResponse{}).MarshalWire()
	require.NoError(t, err)
	assert.Empty(t, b)

	resp := &GetResponse{Found: true, Version: 5}
	require.NoError(t, resp.UnmarshalWire(nil))
	assert.False(t, resp.Found, "unmarshal must reset the message")
}

func TestCodec_Truncated(t *testing.T) {
	in, err := (&PutRequest{Key: "some-key", Value: []byte("value")}).MarshalWire()
	require.NoError(t, err)

	err = (&PutRequest{}).UnmarshalWire(in[:len(in)-2])
	assert.Error(t, err)
}

func TestCodec_ProtoFallback(t *testing.T) {
	c := Codec{}
	data, err := c.Marshal(wrapperspb.String("hello"))
	require.NoError(t, err)

	out := &wrapperspb.StringValue{}
	require.NoError(t, c.Unmarshal(mem.BufferSlice{mem.SliceBuffer(data.Materialize())}, out))
	assert.Equal(t, "hello", out.GetValue())

	_, err = c.Marshal(struct{}{})
	assert.Error(t, err)
}

func TestServiceDesc_MatchesProto(t *testing.T) {
	src, err := os.ReadFile("../../api/kv_store.proto")
	require.NoError(t, err)

	assert.Contains(t, string(src), "package kvstore;")
	assert.Contains(t, string(src), "service KeyValueStore {")

	var want []string
	for _, m := range regexp.MustCompile(`rpc (\w+)\(`).FindAllStringSubmatch(string(src), -1) {
		want = append(want, m[1])
	}
	var got []string
	for _, m := range KeyValueStoreServiceDesc.Methods {
		got = append(got, m.MethodName)
	}
	assert.Equal(t, want, got)
}
