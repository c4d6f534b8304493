package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"kvgateway/internal/config"
	"kvgateway/internal/coordinator"
	"kvgateway/internal/gateway"
	"kvgateway/internal/logging"
	"kvgateway/internal/metrics"
	"kvgateway/internal/replica"
	"kvgateway/internal/ring"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadGateway(os.Args[1:], os.Getenv)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{
		Service:     "gateway",
		Level:       cfg.LogLevel,
		Development: cfg.Development,
	})
	if err != nil {
		return err
	}
	defer logger.Sync()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	r := ring.NewRing(cfg.Policy.N, ring.WithVirtualNodes(cfg.VirtualNodes))
	r.SetNodes(cfg.Nodes)

	pool := replica.NewPool(replica.Options{
		CallTimeout:     cfg.CallTimeout,
		BreakerFailures: cfg.BreakerFailures,
		BreakerCooldown: cfg.BreakerCooldown,
		Logger:          logger,
	})
	defer pool.Close()

	coord := coordinator.New(r, pool,
		coordinator.WithLogger(logger),
		coordinator.WithPolicy(cfg.Policy),
		coordinator.WithTimeout(cfg.Timeout),
		coordinator.WithWriteRetries(cfg.WriteRetries, 0),
		coordinator.WithMetrics(m),
		coordinator.WithStaticNodes(cfg.Nodes),
	)

	srv := &http.Server{
		Addr: cfg.Listen,
		Handler: gateway.NewRouter(coord, gateway.Options{
			Logger:   logger,
			Metrics:  m,
			Gatherer: reg,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("starting gateway",
		zap.String("listen", cfg.Listen),
		zap.Strings("nodes", cfg.Nodes),
		zap.Stringer("policy", cfg.Policy),
		zap.Bool("strict", cfg.Policy.Strict()))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("gateway server: %w", err)
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
