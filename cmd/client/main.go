// Command client connects an operator terminal to a line relay.
//
// CHAT_SERVER_ADDR selects the relay, READ_TIMEOUT bounds how long the client
// waits for server traffic before reporting a suspected disconnect.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Tyrowin/linerelay/internal/client"
	"github.com/Tyrowin/linerelay/internal/logging"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return exitConfig, fmt.Errorf("load .env: %w", err)
	}

	cfg, err := client.LoadConfig()
	if err != nil {
		return exitConfig, err
	}
	log := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := client.Dial(ctx, cfg, log)
	if err != nil {
		return exitRuntime, err
	}

	if err := c.Run(ctx, os.Stdin, os.Stdout); err != nil {
		return exitRuntime, err
	}
	return exitOK, nil
}
