package node

import (
	"context"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"kvgateway/internal/api"
	"kvgateway/internal/storage"
)

// Response messages, kept identical to the reference storage node.
const (
	MsgSaved        = "Saved."
	MsgIgnoredStale = "Ignored: Stale version."
	MsgDeleted      = "Deleted."
	MsgNotFound     = "Not found."
)

// Server implements the kvstore.KeyValueStore gRPC service.
type Server struct {
	api.UnimplementedKeyValueStoreServer
	store  storage.Store
	nodeID string
	logger *zap.Logger
}

// NewServer creates a new gRPC server instance.
func NewServer(store storage.Store, nodeID string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		store:  store,
		nodeID: nodeID,
		logger: logger.With(zap.String("node_id", nodeID)),
	}
}

// Put stores the value unless a newer version is already held. A stale
// write still reports success.
func (s *Server) Put(ctx context.Context, req *api.PutRequest) (*api.PutResponse, error) {
	if req.Key == "" {
		return nil, status.Error(codes.InvalidArgument, "key cannot be empty")
	}

	if s.store.Put(req.Key, req.Value, req.Version) == storage.IgnoredStale {
		s.logger.Debug("put ignored, stale version",
			zap.String("key", req.Key),
			zap.Int64("version", req.Version))
		return &api.PutResponse{Success: true, Message: MsgIgnoredStale}, nil
	}

	s.logger.Debug("put", zap.String("key", req.Key), zap.Int64("version", req.Version))
	return &api.PutResponse{Success: true, Message: MsgSaved}, nil
}

// Update is an alias of Put.
func (s *Server) Update(ctx context.Context, req *api.PutRequest) (*api.PutResponse, error) {
	return s.Put(ctx, req)
}

// Get returns the stored record.
func (s *Server) Get(ctx context.Context, req *api.GetRequest) (*api.GetResponse, error) {
	if req.Key == "" {
		return nil, status.Error(codes.InvalidArgument, "key cannot be empty")
	}

	rec := s.store.Get(req.Key)
	if rec == nil {
		return &api.GetResponse{Found: false}, nil
	}
	return &api.GetResponse{
		Value:   rec.Value,
		Version: rec.Version,
		Found:   true,
	}, nil
}

// Delete removes the key.
func (s *Server) Delete(ctx context.Context, req *api.DeleteRequest) (*api.DeleteResponse, error) {
	if req.Key == "" {
		return nil, status.Error(codes.InvalidArgument, "key cannot be empty")
	}

	if !s.store.Delete(req.Key) {
		return &api.DeleteResponse{Success: false, Message: MsgNotFound}, nil
	}
	s.logger.Debug("delete", zap.String("key", req.Key))
	return &api.DeleteResponse{Success: true, Message: MsgDeleted}, nil
}

// ListKeys returns every stored key.
func (s *Server) ListKeys(ctx context.Context, _ *api.Empty) (*api.KeyListResponse, error) {
	return &api.KeyListResponse{Keys: s.store.Keys()}, nil
}
