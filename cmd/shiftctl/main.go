package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/staffhub/shift-engine/internal/config"
	"github.com/staffhub/shift-engine/internal/database"
)

// App holds what the database-backed commands share
type App struct {
	cfg    *config.Config
	db     *sqlx.DB
	logger *logrus.Logger
	ctx    context.Context
}

var (
	verbose bool
	app     *App
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "shiftctl",
		Short: "Operational commands for the shift engine",
		Long:  `Run background jobs by hand, inspect agency usage, clear test data and mint secrets or tokens.`,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil && app.db != nil {
				app.db.Close()
			}
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(autoAssignCmd())
	rootCmd.AddCommand(usageCmd())
	rootCmd.AddCommand(clearDataCmd())
	rootCmd.AddCommand(generateSecretsCmd())
	rootCmd.AddCommand(issueTokenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetOutput(os.Stderr)
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

// loadConfig reads the same environment the server uses
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// initApp connects to the database. Commands that do not need it never call this.
func initApp() (*App, error) {
	if app != nil {
		return app, nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger := newLogger()
	logger.Debug("Connecting to database")

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		return nil, err
	}

	app = &App{cfg: cfg, db: db, logger: logger, ctx: context.Background()}
	return app, nil
}
