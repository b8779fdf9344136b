// Package main is the entry point for the voxtodo CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"voxtodo/internal/app"
	"voxtodo/internal/cli"
	"voxtodo/internal/commands"
	"voxtodo/internal/config"
	"voxtodo/internal/logging"
	"voxtodo/internal/service"
)

func main() {
	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	// Open the local store and assemble the controller
	factory := func(ctx context.Context, cfg *config.Config) (service.Service, func() error, error) {
		logger := logging.New(os.Stderr, cfg.LogOptions())
		c, closeFn, err := app.Open(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return c, closeFn, nil
	}

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, factory)

	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	os.Exit(code)
}
