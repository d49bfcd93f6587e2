package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/config"
	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/db"
	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/logging"
	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/server"
	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/telemetry"
	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/version"
)

var (
	logger zerolog.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "trendycart",
	Short: "TrendyCart live session manager",
	Long:  "TrendyCart runs the live-selling backend: sellers going live, product selection, auctions and session analytics.",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE:  runMigrate,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.String())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, settingsCmd, versionCmd)
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

	logger.Info().Str("version", version.Version).Msg("TrendyCart starting")

	tracerProvider, err := telemetry.InitTracer(context.Background(), telemetry.TracerConfig{
		ServiceName:    "trendycart",
		ServiceVersion: version.Version,
		Environment:    cfg.Environment,
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
		logger.Info().Str("addr", httpServer.Addr).Msg("HTTP server listening")
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

	logger.Info().Msg("TrendyCart stopped")
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	database, err := initDatabase()
	if err != nil {
		return err
	}
	defer db.Close(database)

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.Info().Str("backend", string(cfg.DBBackend)).Msg("migrations applied")
	return nil
}

// initDatabase connects without migrating; callers decide whether to migrate.
func initDatabase() (*gorm.DB, error) {
	return db.Connect(cfg)
}
