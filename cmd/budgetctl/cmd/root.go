// Package cmd implements budgetctl, the operator tool for the budget
// ledger: password hashing, bulk import, monthly reports and outbox stats.
package cmd

import (
	"context"
	"fmt"

	"budget/internal/backend"
	"budget/internal/cli"
	"budget/internal/config"
	"budget/internal/log"
	"budget/internal/services"

	"github.com/spf13/cobra"
)

var (
	backendName string
	dataDir     string
	logLevel    string
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "budgetctl",
	Short: "Operate the two-person budget ledger",
	Long: `budgetctl works on the same record store as the budget web server.
It reads the server's environment (DATA_BACKEND, DATA_DIR, SQLITE_DB_PATH,
GOOGLE_*) and .env file; the flags below override them.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&backendName, "backend", "b", "", "Record store: memory, sheets or sqlite (default from DATA_BACKEND)")
	RootCmd.PersistentFlags().StringVarP(&dataDir, "data-dir", "d", "", "Seed directory for the memory backend (default from DATA_DIR)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn or error")

	RootCmd.AddCommand(hashPasswordCmd, importCmd, reportCmd, outboxCmd)
}

// loadConfig reads the environment and applies the persistent flags.
func loadConfig() (*config.Config, *log.Logger, error) {
	cli.LoadEnvFile()
	cfg, err := cli.LoadConfig(nil)
	if err != nil {
		return nil, nil, err
	}
	if backendName != "" {
		cfg.DataBackend = backendName
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	return cfg, cli.SetupLogger(logLevel, log.ComponentApp), nil
}

// openLedger opens the configured record store. The returned func releases
// it and must be called.
func openLedger(ctx context.Context) (*services.Ledger, func(), error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	be, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s backend: %w", bcfg.Type, err)
	}

	var opts []services.LedgerOption
	if be.Publisher != nil {
		opts = append(opts, services.WithPublisher(be.Publisher))
	}
	closeFn := func() {
		if err := be.Close(); err != nil {
			logger.Warn("Backend cleanup error", log.FieldError, err)
		}
	}
	return services.NewLedger(be.Store, opts...), closeFn, nil
}
