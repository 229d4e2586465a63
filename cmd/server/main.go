package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/splitsync/internal/auth"
	"github.com/mmynk/splitsync/internal/config"
	"github.com/mmynk/splitsync/internal/server"
	"github.com/mmynk/splitsync/internal/storage/sqlite"
	"github.com/mmynk/splitsync/pkg/logging"
)

func main() {
	logging.Setup()

	cfg, err := config.LoadServer()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server) error {
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	opts := []server.Option{server.WithLogger(slog.Default())}

	var fanout *server.RedisFanout
	if cfg.RedisURL != "" {
		fanout, err = server.DialRedisFanout(ctx, cfg.RedisURL, slog.Default())
		if err != nil {
			return err
		}
		defer fanout.Close()
		opts = append(opts, server.WithFanout(fanout))
		slog.Info("Redis fan-out enabled", "channel", server.RedisChannel)
	}

	srv := server.New(store, auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL), opts...)
	if fanout != nil {
		go func() {
			if err := fanout.Run(ctx, srv.Hub()); err != nil {
				slog.Error("Redis fan-out stopped", "error", err)
			}
		}()
	}

	// h2c serves HTTP/2 without TLS next to HTTP/1.1 WebSocket upgrades.
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           h2c.NewHandler(srv.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "address", httpServer.Addr, "url", fmt.Sprintf("http://localhost:%d/api", cfg.Port))
		errs <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	srv.Hub().Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
