package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/harmony-sync/internal/app"
	"github.com/vovakirdan/harmony-sync/internal/config"
	applog "github.com/vovakirdan/harmony-sync/internal/log"
)

var (
	runGuild   string
	runChannel string
	runControl string
)

// runCmd connects to the server and keeps the local state in sync.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect and keep state in sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cfg.UpdateFrom(config.Config{
			Guild:       runGuild,
			Channel:     runChannel,
			ControlAddr: runControl,
		})

		logger := applog.New(cfg.LogLevel)
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		application, err := app.New(cfg, logger)
		if err != nil {
			return err
		}

		logger.Info().Str("server", cfg.ServerURL).Msg("starting harmony-sync")
		if err := application.Run(ctx); err != nil {
			return err
		}
		logger.Info().Msg("harmony-sync stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runGuild, "guild", "", "Guild to select once connected")
	runCmd.Flags().StringVar(&runChannel, "channel", "", "Channel to select within --guild")
	runCmd.Flags().StringVar(&runControl, "control", "", "Listen address of the local control surface")
}
