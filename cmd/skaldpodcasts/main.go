package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/friendsincode/skald_podcasts/internal/config"
	"github.com/friendsincode/skald_podcasts/internal/db"
	"github.com/friendsincode/skald_podcasts/internal/events"
	"github.com/friendsincode/skald_podcasts/internal/logging"
	"github.com/friendsincode/skald_podcasts/internal/playlist"
	"github.com/friendsincode/skald_podcasts/internal/server"
	"github.com/friendsincode/skald_podcasts/internal/telemetry"
	"github.com/friendsincode/skald_podcasts/internal/version"
)

var (
	logger zerolog.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "skaldpodcasts",
	Short: "Skald Podcasts - Playlist engine for podcast libraries",
	Long:  "Skald Podcasts serves smart and manual playlists over a podcast episode store, with rule-driven filtering, reactive views, and auto-download selection.",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Skald Podcasts server",
	Long:  "Start the HTTP API server for playlist management",
	RunE:  runServe,
}

var autoDownloadCmd = &cobra.Command{
	Use:   "auto-download",
	Short: "Print the current auto-download episode selection",
	Long:  "Compute the deduplicated set of episodes the enabled playlists would queue for download and print it as JSON",
	RunE:  runAutoDownload,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(autoDownloadCmd)
	rootCmd.Version = version.Version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration (called by commands that need it)
func loadConfig() error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger = logging.Setup(cfg.Environment)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	logger.Info().Str("version", version.Version).Msg("Skald Podcasts starting")

	// Initialize OpenTelemetry tracing
	tracerProvider, err := telemetry.InitTracer(context.Background(), telemetry.TracerConfig{
		ServiceName:    "skald-podcasts",
		ServiceVersion: version.Version,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TracingEnabled,
		SampleRate:     cfg.TracingSampleRate,
	}, logger)
	if err != nil {
		return fmt.Errorf("initialize tracer: %w", err)
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown tracer provider")
		}
	}()

	srv, err := server.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize server: %w", err)
	}

	httpServer := srv.HTTPServer()

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort)
		logger.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down gracefully...")

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(timeoutCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	if err := srv.Close(); err != nil {
		logger.Error().Err(err).Msg("shutdown cleanup failed")
	}

	logger.Info().Msg("Skald Podcasts stopped")
	return nil
}

func runAutoDownload(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	database, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = db.Close(database) }()
	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	manager := playlist.NewManager(database, events.NewBus(), logger, playlist.WithLimits(playlist.Limits{
		SmartEpisodes:  cfg.SmartEpisodeLimit,
		ManualEpisodes: cfg.ManualEpisodeLimit,
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	episodes, err := manager.AutoDownloadEpisodes(ctx)
	if err != nil {
		return fmt.Errorf("compute auto-download selection: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(episodes)
}
