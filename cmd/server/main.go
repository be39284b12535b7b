package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/rl1809/stockcart/internal/adapter/handler"
	"github.com/rl1809/stockcart/internal/app"
	"github.com/rl1809/stockcart/internal/config"
	"github.com/rl1809/stockcart/internal/platform/observability"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(config.ServiceName, cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	traceShutdown, err := observability.SetupTracing(ctx, config.ServiceName, cfg.Otel.Endpoint, cfg.Otel.Insecure)
	if err != nil {
		logger.Error("tracing disabled", zap.Error(err))
		traceShutdown = func(context.Context) error { return nil }
	}

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		return err
	}

	var lis net.Listener
	if cfg.GRPCAddr != "" {
		lis, err = net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			container.Shutdown()
			return fmt.Errorf("listen grpc: %w", err)
		}
	}

	container.Trigger.Start()

	grpcServer := grpc.NewServer()
	handler.RegisterCartServiceServer(grpcServer,
		handler.NewGRPCHandler(container.Carts, container.Checkout, logger.Named("grpc")))

	mux := http.NewServeMux()
	handler.NewHTTPHandler(container.Carts, container.Checkout, logger.Named("http")).RegisterRoutes(mux)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if lis != nil {
		g.Go(func() error {
			logger.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
			return grpcServer.Serve(lis)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP shutdown", zap.Error(err))
		}
		logger.Info("HTTP server stopped")

		grpcServer.GracefulStop()
		logger.Info("gRPC server stopped")

		container.Shutdown()
		logger.Info("workers stopped, connections closed")

		if err := traceShutdown(shutdownCtx); err != nil {
			logger.Error("trace shutdown", zap.Error(err))
		}
		return nil
	})

	return g.Wait()
}
