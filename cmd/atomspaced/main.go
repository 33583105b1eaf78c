package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/cogmesh/atomspace/internal/config"
	"github.com/cogmesh/atomspace/internal/coord"
	"github.com/cogmesh/atomspace/internal/health"
	"github.com/cogmesh/atomspace/internal/logging"
	"github.com/cogmesh/atomspace/internal/metrics"
	"github.com/cogmesh/atomspace/internal/transport/httpapi"
	"github.com/cogmesh/atomspace/internal/version"
)

func main() {
	// ----------------------------
	// Load configuration
	// ----------------------------
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	log.Printf("app config loaded: env=%s port=%s node_id=%d",
		cfg.App.Env, cfg.App.Port, cfg.Cluster.NodeID)

	// ----------------------------
	// Create structured logger
	// ----------------------------
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	health.SetLogger(logger)
	version.SetLogger(logger)

	// ----------------------------
	// Initialize build info metric
	// ----------------------------
	metrics.InitBuildInfo(version.GetVersion(), version.GetCommit(), version.GetDate())

	// ----------------------------
	// Initialize this node
	// ----------------------------
	logger.Info("initializing atomspace node...")
	nodeCfg := &coord.Config{
		Hostname:       cfg.Cluster.Hostname,
		Port:           cfg.Cluster.Port,
		QueueCapacity:  cfg.Queue.Capacity,
		MaxMessageSize: cfg.Queue.MaxMessageSize,
		RequiredVotes:  1,
	}
	node := coord.NewNode(cfg.Cluster.NodeID, nodeCfg, logger)
	defer node.Close()

	ctx, stopRuntime := context.WithCancel(context.Background())
	defer stopRuntime()
	if err := node.Start(ctx); err != nil {
		logger.Fatal("failed to start node runtime", zap.Error(err))
	}

	health.SetReadiness(func() (bool, string) {
		state := node.Runtime.State()
		if state != coord.RuntimeRunning {
			return false, "runtime not running"
		}
		return true, ""
	})

	logger.Info("atomspace node initialized",
		zap.Uint32("node_id", cfg.Cluster.NodeID),
		zap.Int("queue_capacity", cfg.Queue.Capacity))

	// ----------------------------
	// Create router & middlewares
	// ----------------------------
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(logging.LoggerMiddleware(logger))
	r.Use(metrics.InstrumentHandler)

	r.Get("/api/healthz", health.Handler)
	r.Get("/api/version", version.Handler)

	httpHandler := httpapi.NewHandler(node)
	httpHandler.RegisterRoutes(r)

	metrics.RegisterMetricsEndpoint(r)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("atomspace: distributed AtomSpace coordination node"))
	})

	// ----------------------------
	// Create HTTP server
	// ----------------------------
	addr := ":" + cfg.App.Port
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		logger.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	// ----------------------------
	// Graceful shutdown
	// ----------------------------
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	stopRuntime()
	if err := node.Runtime.Stop(); err != nil {
		logger.Warn("runtime stop reported an error", zap.Error(err))
	}

	logger.Info("server exited gracefully")
}
