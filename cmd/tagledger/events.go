package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/tagledger-backend/internal/app"
	"github.com/yungbote/tagledger-backend/internal/platform/eventbus"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Print lifecycle events published on Redis",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signalContext()
		defer stop()

		cfg := app.LoadConfig()
		if !cfg.Redis.Enabled() {
			return fmt.Errorf("REDIS_ADDR is not set")
		}
		log, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer log.Sync()

		out := cmd.OutOrStdout()
		err = eventbus.Subscribe(ctx, log, cfg.Redis.Addr, cfg.Redis.Channel, func(ev eventbus.Event) {
			raw, err := json.Marshal(ev)
			if err != nil {
				log.Warn("Event encode failed", "error", err)
				return
			}
			fmt.Fprintln(out, string(raw))
		})
		if err != nil {
			return err
		}
		log.Info("Listening for lifecycle events", "channel", cfg.Redis.Channel)
		<-ctx.Done()
		return nil
	},
}
