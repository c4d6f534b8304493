package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "kvstore.KeyValueStore"

const (
	methodPut      = "/" + ServiceName + "/Put"
	methodUpdate   = "/" + ServiceName + "/Update"
	methodGet      = "/" + ServiceName + "/Get"
	methodDelete   = "/" + ServiceName + "/Delete"
	methodListKeys = "/" + ServiceName + "/ListKeys"
)

// KeyValueStoreClient is the client API for the KeyValueStore service.
type KeyValueStoreClient interface {
	Put(ctx context.Context, in *PutRequest, opts ...grpc.CallOption) (*PutResponse, error)
	Update(ctx context.Context, in *PutRequest, opts ...grpc.CallOption) (*PutResponse, error)
	Get(ctx context.Context, in *GetRequest, opts ...grpc.CallOption) (*GetResponse, error)
	Delete(ctx context.Context, in *DeleteRequest, opts ...grpc.CallOption) (*DeleteResponse, error)
	ListKeys(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*KeyListResponse, error)
}

type keyValueStoreClient struct {
	cc grpc.ClientConnInterface
}

// NewKeyValueStoreClient binds a client to a connection.
func NewKeyValueStoreClient(cc grpc.ClientConnInterface) KeyValueStoreClient {
	return &keyValueStoreClient{cc: cc}
}

func (c *keyValueStoreClient) Put(ctx context.Context, in *PutRequest, opts ...grpc.CallOption) (*PutResponse, error) {
	out := new(PutResponse)
	if err := c.cc.Invoke(ctx, methodPut, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *keyValueStoreClient) Update(ctx context.Context, in *PutRequest, opts ...grpc.CallOption) (*PutResponse, error) {
	out := new(PutResponse)
	if err := c.cc.Invoke(ctx, methodUpdate, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *keyValueStoreClient) Get(ctx context.Context, in *GetRequest, opts ...grpc.CallOption) (*GetResponse, error) {
	out := new(GetResponse)
	if err := c.cc.Invoke(ctx, methodGet, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *keyValueStoreClient) Delete(ctx context.Context, in *DeleteRequest, opts ...grpc.CallOption) (*DeleteResponse, error) {
	out := new(DeleteResponse)
	if err := c.cc.Invoke(ctx, methodDelete, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *keyValueStoreClient) ListKeys(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*KeyListResponse, error) {
	out := new(KeyListResponse)
	if err := c.cc.Invoke(ctx, methodListKeys, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// KeyValueStoreServer is the server API for the KeyValueStore service.
type KeyValueStoreServer interface {
	Put(context.Context, *PutRequest) (*PutResponse, error)
	Update(context.Context, *PutRequest) (*PutResponse, error)
	Get(context.Context, *GetRequest) (*GetResponse, error)
	Delete(context.Context, *DeleteRequest) (*DeleteResponse, error)
	ListKeys(context.Context, *Empty) (*KeyListResponse, error)
}

// UnimplementedKeyValueStoreServer can be embedded to satisfy
// KeyValueStoreServer with methods that return codes.Unimplemented.
type UnimplementedKeyValueStoreServer struct{}

func (UnimplementedKeyValueStoreServer) Put(context.Context, *PutRequest) (*PutResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Put not implemented")
}

func (UnimplementedKeyValueStoreServer) Update(context.Context, *PutRequest) (*PutResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Update not implemented")
}

func (UnimplementedKeyValueStoreServer) Get(context.Context, *GetRequest) (*GetResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Get not implemented")
}

func (UnimplementedKeyValueStoreServer) Delete(context.Context, *DeleteRequest) (*DeleteResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Delete not implemented")
}

func (UnimplementedKeyValueStoreServer) ListKeys(context.Context, *Empty) (*KeyListResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListKeys not implemented")
}

// RegisterKeyValueStoreServer registers srv on s.
func RegisterKeyValueStoreServer(s grpc.ServiceRegistrar, srv KeyValueStoreServer) {
	s.RegisterService(&KeyValueStoreServiceDesc, srv)
}

// unaryHandler adapts a typed server method to a grpc.MethodHandler.
func unaryHandler[Req, Resp any](fullMethod string, call func(KeyValueStoreServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(KeyValueStoreServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(KeyValueStoreServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// KeyValueStoreServiceDesc describes the KeyValueStore service.
var KeyValueStoreServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*KeyValueStoreServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Put", Handler: unaryHandler(methodPut, KeyValueStoreServer.Put)},
		{MethodName: "Update", Handler: unaryHandler(methodUpdate, KeyValueStoreServer.Update)},
		{MethodName: "Get", Handler: unaryHandler(methodGet, KeyValueStoreServer.Get)},
		{MethodName: "Delete", Handler: unaryHandler(methodDelete, KeyValueStoreServer.Delete)},
		{MethodName: "ListKeys", Handler: unaryHandler(methodListKeys, KeyValueStoreServer.ListKeys)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "kv_store.proto",
}
