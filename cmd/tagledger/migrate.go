package main

import (
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update database tables",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signalContext()
		defer stop()

		a, err := bootstrap(ctx, true)
		if err != nil {
			return err
		}
		defer a.Close()
		a.Log.Info("Migration complete")
		return nil
	},
}
