// ABOUTME: Entry point for the parleyd live-chat console server
// ABOUTME: Wires the store, delivery simulator, preview queue, persistence and HTTP surface

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/hearthside/parley/internal/config"
	"github.com/hearthside/parley/internal/httpapi"
	"github.com/hearthside/parley/internal/persist"
	"github.com/hearthside/parley/internal/preview"
	"github.com/hearthside/parley/internal/simulate"
	"github.com/hearthside/parley/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
                      _
  _ __   __ _ _ __ | | ___ _   _
 | '_ \ / _' | '__|| |/ _ \ | | |
 | |_) | (_| | |   | |  __/ |_| |
 | .__/ \__,_|_|   |_|\___|\__, |
 |_|                       |___/
`

// getConfigPath returns the path to the parleyd config file.
// Priority: PARLEY_CONFIG env var > XDG_CONFIG_HOME/parley/parleyd.yaml >
// ~/.config/parley/parleyd.yaml
func getConfigPath() string {
	if envPath := os.Getenv("PARLEY_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "parleyd.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "parley", "parleyd.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: parleyd <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve     Start the live-chat console server")
		fmt.Println("  version   Print the version")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "version":
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Database:  %s\n", cfg.Database.Path)
	fmt.Println()

	logger.Info("starting parleyd",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
	)

	snapshots, err := persist.NewSnapshotStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening snapshot store: %w", err)
	}
	defer snapshots.Close()

	previews := preview.New(cfg.Preview.TTL, cfg.Preview.Capacity, logger)
	defer previews.Close()

	st := store.New(snapshots.LoadOrSeed(ctx), previews, snapshots, logger)
	defer st.Close()

	sim := simulate.New(st, logger)
	defer sim.Close()
	go sim.RunAmbientTicker(ctx, cfg.Simulator.AmbientInterval, cfg.Simulator.AmbientProbability)

	api := httpapi.New(st, sim, cfg.Widget, cfg.Simulator.ReplyDelay, logger)
	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: api.Routes(),
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	return nil
}

// setupLogger builds the process logger from config.
func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
