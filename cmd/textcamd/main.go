// textcamd captures camera frames, renders them as glyph mosaics and serves
// them over HTTP/WebSocket and gRPC.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/textcamera/textcamera/internal/config"
	"github.com/textcamera/textcamera/internal/grpcapi"
	"github.com/textcamera/textcamera/internal/orchestrator"
	"github.com/textcamera/textcamera/internal/server"
	"github.com/textcamera/textcamera/internal/trace"
)

func main() {
	cfg := config.Load()

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	cam, err := orchestrator.FromConfig(cfg)
	if err != nil {
		slog.Error("failed to set up camera", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cam.Start(ctx); err != nil {
		slog.Error("camera start error", "error", err)
		os.Exit(1)
	}

	// HTTP/WebSocket server
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.New(cam).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
			stop()
		}
	}()

	// gRPC server
	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(trace.UnaryServerInterceptor()),
		grpc.StreamInterceptor(trace.StreamServerInterceptor()),
	)
	grpcapi.Register(grpcServer, grpcapi.NewService(cam))
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		slog.Error("grpc listen error", "addr", cfg.GRPCAddr, "error", err)
		stop()
	} else {
		go func() {
			if err := grpcServer.Serve(lis); err != nil {
				slog.Error("grpc server error", "error", err)
				stop()
			}
		}()
	}

	slog.Info("textcamd started",
		"http", cfg.HTTPAddr,
		"grpc", cfg.GRPCAddr,
		"source", cfg.CaptureSource,
		"orientation", cam.Orientation().String(),
	)

	<-ctx.Done()
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}
	// Watch streams only end with their clients, so do not wait for them.
	grpcServer.Stop()

	if err := cam.Stop(); err != nil {
		slog.Error("camera stop error", "error", err)
	}
	slog.Info("shutdown complete")
}
