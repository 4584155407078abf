package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ShivpalBellway/DevBhakti/internal/config"
	"github.com/ShivpalBellway/DevBhakti/internal/db"
	"github.com/ShivpalBellway/DevBhakti/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:           "devbhakti",
	Short:         "DevBhakti temple and pooja booking backend",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, adminCmd)
}

func main() {
	loadDotEnv()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadDotEnv reads .env from the working directory when present. Variables already set
// in the environment win.
func loadDotEnv() {
	_ = godotenv.Load()
}

// app holds what every subcommand needs
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *sqlx.DB
}

func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	database, err := db.Open(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("open database: %w", err)
	}

	return &app{cfg: cfg, logger: logger, db: database}, nil
}

func (a *app) close() {
	_ = a.db.Close()
	_ = a.logger.Sync()
}
