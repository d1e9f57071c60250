package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"versecast/internal/config"
	"versecast/internal/ingest"
	"versecast/internal/ledger"
	"versecast/internal/logging"
	"versecast/internal/notifications"
	"versecast/internal/publish"
	"versecast/internal/services/ffmpeg"
	"versecast/internal/services/tts"
	"versecast/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var dryRun bool
	var skipScan bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scan the source directory and process eligible poems",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *ledger.Store) error {
				logger, err := logging.NewFromConfig(cfg)
				if err != nil {
					return fmt.Errorf("initialize logging: %w", err)
				}
				out := cmd.OutOrStdout()

				if !skipScan {
					scan, err := ingest.NewScanner(cfg, store, logger).Scan(cmd.Context())
					if err != nil {
						return fmt.Errorf("scan source directory: %w", err)
					}
					fmt.Fprintf(out, "Scanned %d poem files, %d registered, %d skipped\n",
						scan.Found, scan.Registered, len(scan.Skipped))
				}

				publisher, err := publish.NewFromConfig(cmd.Context(), cfg, logger)
				if err != nil {
					return fmt.Errorf("configure publish target: %w", err)
				}

				runner := workflow.NewRunner(
					cfg,
					store,
					tts.NewService(cfg),
					ffmpeg.NewComposer(cfg, logger),
					publisher,
					notifications.NewService(cfg),
					logger,
				)

				report, err := runner.Run(cmd.Context(), workflow.Options{
					Limit:  limit,
					DryRun: dryRun,
				})
				if err != nil {
					return err
				}

				if dryRun {
					fmt.Fprintf(out, "Dry run: %d poems eligible\n", report.Eligible)
					return nil
				}
				fmt.Fprintf(out, "Batch %s finished in %s: %d succeeded, %d failed, %d skipped\n",
					report.RunID, report.Duration.Round(time.Millisecond), report.Succeeded, report.Failed, report.Skipped)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Process at most this many poems (0 = no limit)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List eligible poems without processing")
	cmd.Flags().BoolVar(&skipScan, "skip-scan", false, "Skip the source directory scan before the batch")
	return cmd
}

func newScanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Register source poems in the ledger without processing them",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *ledger.Store) error {
				logger, err := logging.NewFromConfig(cfg)
				if err != nil {
					return fmt.Errorf("initialize logging: %w", err)
				}
				report, err := ingest.NewScanner(cfg, store, logger).Scan(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Found %d poem files\n", report.Found)
				fmt.Fprintf(out, "Registered or refreshed %d items\n", report.Registered)
				for _, skipped := range report.Skipped {
					fmt.Fprintf(out, "Skipped unreadable file: %s\n", skipped)
				}
				return nil
			})
		},
	}
}
