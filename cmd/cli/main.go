package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	postgresRepo "github.com/iho/pocketledger/internal/adapter/repository/postgres"
	"github.com/iho/pocketledger/internal/infrastructure/auth"
	"github.com/iho/pocketledger/internal/infrastructure/config"
	"github.com/iho/pocketledger/internal/infrastructure/logger"
	"github.com/iho/pocketledger/internal/infrastructure/postgres"
	"github.com/iho/pocketledger/internal/usecase"
)

var errDiscrepancies = errors.New("balance discrepancies found")

type migrator interface {
	Up() error
	Down() error
}

type reconciler interface {
	ReconcileAccount(ctx context.Context, accountID, userID string) (*usecase.ReconciliationResult, error)
	GenerateReconciliationReport(ctx context.Context) (*usecase.ReconciliationReport, error)
}

// app holds the command dependencies so tests can swap them.
type app struct {
	envFile       string
	loadConfig    func(envFiles ...string) (*config.Config, error)
	newMigrator   func(cfg *config.Config, log zerolog.Logger) migrator
	newReconciler func(ctx context.Context, cfg *config.Config, log zerolog.Logger) (reconciler, func(), error)
}

func main() {
	if err := newApp().rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newApp() *app {
	return &app{
		loadConfig: config.Load,
		newMigrator: func(cfg *config.Config, log zerolog.Logger) migrator {
			return postgres.NewMigrator(cfg.DatabaseURL, cfg.MigrationsPath, log)
		},
		newReconciler: connectReconciler,
	}
}

func (a *app) rootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "pocketledger-cli",
		Short:         "PocketLedger maintenance tool",
		Long:          `Operational commands for the PocketLedger database: schema migrations, balance reconciliation and API tokens.`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "Path to an optional .env file")

	rootCmd.AddCommand(a.migrateCmd(), a.reconcileCmd(), a.tokenCmd())
	return rootCmd
}

func (a *app) config() (*config.Config, zerolog.Logger, error) {
	cfg, err := a.loadConfig(a.envFile)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("load configuration: %w", err)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: "console", Service: "pocketledger-cli", Output: os.Stderr})
	return cfg, log, nil
}

func (a *app) migrateCmd() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back schema migrations",
	}

	migrateCmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, log, err := a.config()
				if err != nil {
					return err
				}
				return a.newMigrator(cfg, log).Up()
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, log, err := a.config()
				if err != nil {
					return err
				}
				return a.newMigrator(cfg, log).Down()
			},
		},
	)

	return migrateCmd
}

func (a *app) reconcileCmd() *cobra.Command {
	var accountID, userID string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Compare cached account balances with their movements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if accountID != "" && userID == "" {
				return errors.New("--user is required with --account")
			}

			cfg, log, err := a.config()
			if err != nil {
				return err
			}

			rec, closeFn, err := a.newReconciler(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer closeFn()

			if accountID != "" {
				result, err := rec.ReconcileAccount(cmd.Context(), accountID, userID)
				if err != nil {
					return err
				}
				if err := printJSON(cmd.OutOrStdout(), result); err != nil {
					return err
				}
				if !result.IsReconciled {
					return errDiscrepancies
				}
				return nil
			}

			report, err := rec.GenerateReconciliationReport(cmd.Context())
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if len(report.Discrepancies) > 0 {
				return errDiscrepancies
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Reconcile a single account")
	cmd.Flags().StringVar(&userID, "user", "", "Owner of --account")

	return cmd
}

func (a *app) tokenCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an API token for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := a.config()
			if err != nil {
				return err
			}

			if cfg.JWTSecret == "" {
				return config.ErrMissingJWTSecret
			}

			token, err := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration).Generate(userID)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User id to embed in the token")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func connectReconciler(ctx context.Context, cfg *config.Config, log zerolog.Logger) (reconciler, func(), error) {
	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       2,
		ConnectTimeout: cfg.DatabaseConnectTimeout,
		Logger:         &log,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}

	uc := usecase.NewReconciliationUseCase(
		postgresRepo.NewAccountRepository(pool),
		postgresRepo.NewMovementRepository(pool),
		usecase.Options{Logger: &log},
	)

	return uc, pool.Close, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
