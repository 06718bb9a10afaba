// Command server runs the line relay.
//
// Configuration is read from the environment (and an optional .env file):
// LISTEN_ADDR, HTTP_ADDR, ALLOWED_ORIGINS, MAX_MESSAGE_SIZE, RATE_LIMIT_BURST,
// RATE_LIMIT_REFILL_INTERVAL, WRITE_TIMEOUT, SHUTDOWN_TIMEOUT and LOG_LEVEL.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/Tyrowin/linerelay/internal/logging"
	"github.com/Tyrowin/linerelay/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := server.LoadConfig()
	if err != nil {
		return err
	}
	log := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	relay := server.NewServer(cfg, log)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return relay.ListenAndServe(gctx)
	})

	if cfg.HTTPAddr != "" {
		httpServer := server.CreateServer(cfg.HTTPAddr, relay.Routes())
		g.Go(func() error {
			log.Info("HTTP gateway listening", "address", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http gateway: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			return server.ShutdownServer(httpServer, cfg.ShutdownTimeout, log)
		})
	}

	err = g.Wait()
	if shutdownErr := relay.Shutdown(cfg.ShutdownTimeout); shutdownErr != nil {
		log.Warn("Relay shutdown incomplete", "error", shutdownErr)
	}
	if err != nil {
		return err
	}

	log.Info("Relay stopped cleanly")
	return nil
}
