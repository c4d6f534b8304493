package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"kvgateway/internal/config"
	"kvgateway/internal/logging"
	"kvgateway/internal/node"
)

func main() {
	cfg, err := config.LoadStorageNode(os.Args[1:], os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Config{
		Service:     "storagenode",
		Level:       cfg.LogLevel,
		Development: cfg.Development,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	n := node.NewNode(cfg.NodeID, cfg.Listen, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("shutting down", zap.String("signal", sig.String()))
		n.Stop()
	}()

	if err := n.Start(); err != nil {
		logger.Error("storage node failed", zap.Error(err))
		os.Exit(1)
	}
}
