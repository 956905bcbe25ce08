package main

import (
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"DiscussionScanner/internal/app"
	"DiscussionScanner/internal/config"
	"DiscussionScanner/internal/logging"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "discussionscanner",
		Short:         "Scans developer platforms for agent infrastructure discussions",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newServeCommand(&configFlag))
	rootCmd.AddCommand(newScanCommand(&configFlag))

	return rootCmd
}

func newServeCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the control panel HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, _ := buildApplication(*configFlag)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return application.Serve(ctx)
		},
	}
}

func newScanCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Run a single scan with the file configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, logger := buildApplication(*configFlag)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := application.RunOnce(ctx); err != nil {
				logger.Error("scan failed", "error", err)
				return err
			}
			return nil
		},
	}
}

func buildApplication(configPath string) (*app.Application, *slog.Logger) {
	cfg := config.Load(configPath)
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	return app.New(cfg, logger), logger
}
