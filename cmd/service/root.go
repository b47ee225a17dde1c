package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kjstillabower/climate-api/internal/config"
	"github.com/kjstillabower/climate-api/internal/models"
	"github.com/kjstillabower/climate-api/internal/service"
	"github.com/kjstillabower/climate-api/internal/store"
)

var (
	cfgFile string
	dbPath  string
)

var rootCmd = &cobra.Command{
	Use:   "climate-api",
	Short: "Read-only HTTP API over Hawaii climate observations",
	Long: `climate-api serves precipitation, station and temperature queries over a
SQLite climate dataset. Without a subcommand it starts the HTTP server.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is config/{ENV_NAME}.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database file (overrides database.path)")
}

// loadConfig loads configuration and applies the --db override.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DatabasePath = dbPath
	}
	return cfg, nil
}

// openStore opens the dataset and computes its bounds. The store is closed on error.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*store.SQLiteStore, models.Bounds, error) {
	st, err := store.OpenSQLite(cfg.DatabasePath, cfg.DatabaseMaxOpenConns)
	if err != nil {
		return nil, models.Bounds{}, fmt.Errorf("opening database: %w", err)
	}
	bounds, err := service.ComputeBounds(ctx, st)
	if err != nil {
		if cerr := st.Close(); cerr != nil {
			logger.Warn("close store", zap.Error(cerr))
		}
		if errors.Is(err, service.ErrNoDataAvailable) {
			return nil, models.Bounds{}, fmt.Errorf("dataset %s: %w", cfg.DatabasePath, err)
		}
		return nil, models.Bounds{}, fmt.Errorf("computing dataset bounds: %w", err)
	}
	return st, bounds, nil
}
