package main

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	serveMigrate bool
	serveWorker  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the REST API",
	Long: `Serves the REST API. With --worker the same process also executes queued
jobs, through Temporal when TEMPORAL_ADDRESS is set and by polling otherwise.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signalContext()
		defer stop()

		a, err := bootstrap(ctx, serveMigrate)
		if err != nil {
			return err
		}
		defer a.Close()

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return a.RunHTTP(gctx) })
		if serveWorker {
			g.Go(func() error { return a.RunWorker(gctx) })
		}
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", true, "Run auto migration before serving")
	serveCmd.Flags().BoolVar(&serveWorker, "worker", false, "Also run the job worker in this process")
}
