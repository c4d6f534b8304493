package gateway

import (
	"context"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"kvgateway/internal/coordinator"
	"kvgateway/internal/metrics"
)

// Coordinator is the part of *coordinator.Coordinator the adapter uses.
type Coordinator interface {
	Put(ctx context.Context, key string, value []byte) (coordinator.PutResult, error)
	Get(ctx context.Context, key string) (coordinator.GetResult, error)
	Delete(ctx context.Context, key string) (coordinator.DeleteResult, error)
	ClusterStatus(ctx context.Context) map[string]coordinator.NodeStatus
	Targets(key string) []string
	Nodes() []string
	AddNode(node string) error
	RemoveNode(node string) error
}

// Options configures the router.
type Options struct {
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
	// RequestTimeout bounds every request. Zero means 30s.
	RequestTimeout time.Duration
}

// NewRouter sets up routes and handlers for the gateway and returns the
// handle to the multiplexer.
func NewRouter(coord Coordinator, opts Options) *chi.Mux {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}

	h := &Handler{coord: coord, logger: opts.Logger}

	r := chi.NewRouter()
	r.Use(
		escapedRoutePath,
		cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "PUT", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
		}),
		middleware.RequestID,
		middleware.Recoverer,
		requestMetrics(opts.Metrics),
		requestLogger(opts.Logger),
		middleware.Timeout(opts.RequestTimeout),
	)

	r.Group(func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Post("/put", h.Put)
		r.Get("/get/{key}", h.Get)
		r.Delete("/delete/{key}", h.Delete)
		r.Get("/map", h.ClusterMap)

		r.Get("/nodes", h.ListNodes)
		r.Post("/nodes", h.AddNode)
		r.Delete("/nodes/{node}", h.RemoveNode)
		r.Get("/targets/{key}", h.Targets)

		r.Get("/health", h.Health)
	})

	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}
