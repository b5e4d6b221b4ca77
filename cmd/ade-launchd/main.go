package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/0xADE/ade-launch/internal/config"
	"github.com/0xADE/ade-launch/internal/entry"
	"github.com/0xADE/ade-launch/internal/executor"
	"github.com/0xADE/ade-launch/internal/history"
	"github.com/0xADE/ade-launch/internal/indexer"
	"github.com/0xADE/ade-launch/server"
)

func main() {
	// Initialize configuration
	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize config: %v\n", err)
		os.Exit(1)
	}

	// Start config watcher
	if err := config.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start config watcher: %v\n", err)
		os.Exit(1)
	}
	defer config.Get().Close()

	// A corrupt history is fatal; counts would be lost on the next save.
	store := history.NewStore()
	entries, err := store.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load history: %v\n", err)
		os.Exit(1)
	}

	idx := indexer.NewIndexer()

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := idx.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start indexer: %v\n", err)
		os.Exit(1)
	}
	entries = entry.Merge(entries, idx.Entries())
	log.Printf("[DEBUG] Serving %d entries", entries.Len())

	srv, err := server.NewServer(idx, entries, executor.New(store))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create server: %v\n", err)
		os.Exit(1)
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start(ctx)
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	fmt.Println("ade-launchd started")

	select {
	case sig := <-sigChan:
		fmt.Printf("\nReceived signal: %v\n", sig)
		cancel()
		idx.Stop()
		if err := srv.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "Error stopping server: %v\n", err)
		}
	case err := <-serverErr:
		if err != nil {
			fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Println("ade-launchd stopped")
}
