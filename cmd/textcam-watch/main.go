// textcam-watch prints the mosaics streamed by a textcamd gRPC server,
// reconnecting whenever the stream drops.
package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/textcamera/textcamera/internal/config"
	"github.com/textcamera/textcamera/internal/grpcclient"
	"github.com/textcamera/textcamera/internal/resilience"

	apperrors "github.com/textcamera/textcamera/internal/errors"
)

const clearScreen = "\x1b[H\x1b[2J"

func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := grpcclient.New(cfg.WatchAddr, grpcclient.DefaultConfig())
	if err != nil {
		slog.Error("failed to create client", "addr", cfg.WatchAddr, "error", err)
		os.Exit(1)
	}
	defer func() { _ = client.Close() }()

	err = resilience.Retry(ctx, resilience.ReconnectConfig(), func() error {
		err := client.Watch(ctx, func(text string) {
			_, _ = io.WriteString(os.Stdout, clearScreen+text)
		})
		if err == nil && ctx.Err() == nil {
			err = apperrors.New(apperrors.CodeUnavailable, "stream closed by server")
		}
		if err != nil {
			slog.Warn("watch interrupted", "addr", cfg.WatchAddr, "error", err)
		}
		return err
	})
	if err != nil && ctx.Err() == nil {
		slog.Error("watch failed", "error", err)
		os.Exit(1)
	}
}
