package main

import (
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Execute queued jobs until interrupted",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signalContext()
		defer stop()

		a, err := bootstrap(ctx, false)
		if err != nil {
			return err
		}
		defer a.Close()
		return a.RunWorker(ctx)
	},
}
