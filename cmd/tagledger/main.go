// Package main is the tagledger command: API server, migrations, job worker
// and a lifecycle event tail.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yungbote/tagledger-backend/internal/app"
	"github.com/yungbote/tagledger-backend/internal/platform/logger"
)

var rootCmd = &cobra.Command{
	Use:           "tagledger",
	Short:         "Tag-driven metadata service for datasets, analyses and models",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return app.LoadEnv()
	},
}

func main() {
	rootCmd.AddCommand(serveCmd, migrateCmd, workerCmd, eventsCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newLogger(cfg app.Config) (*logger.Logger, error) {
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}

// bootstrap builds the application, migrating first when asked to.
func bootstrap(ctx context.Context, migrate bool) (*app.App, error) {
	cfg := app.LoadConfig()
	log, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	a, err := app.New(ctx, log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}
	if migrate {
		if err := a.Migrate(); err != nil {
			a.Close()
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
	}
	return a, nil
}
