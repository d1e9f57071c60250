package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"versecast/internal/config"
	"versecast/internal/ledger"
	"versecast/internal/logging"
	"versecast/internal/services/ffmpeg"
	"versecast/internal/services/tts"
	"versecast/internal/stage"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check external tools and the ledger database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *ledger.Store) error {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)

				checks := stage.CheckAll(cmd.Context(),
					tts.NewService(cfg),
					ffmpeg.NewComposer(cfg, logging.NewNop()),
				)
				fmt.Fprintln(out, "External tools:")
				for _, health := range checks {
					fmt.Fprintln(out, statusLine(health.Name, health.Ready, health.Detail, colorize))
				}

				db, err := store.CheckHealth(cmd.Context())
				if err != nil {
					return fmt.Errorf("check database health: %w", err)
				}
				fmt.Fprintln(out, "Ledger database:")
				fmt.Fprintf(out, "  Path: %s\n", db.DBPath)
				fmt.Fprintf(out, "  Exists: %s\n", yesNo(db.DatabaseExists))
				fmt.Fprintf(out, "  Readable: %s\n", yesNo(db.DatabaseReadable))
				fmt.Fprintf(out, "  Table present: %s\n", yesNo(db.TableExists))
				if len(db.MissingColumns) > 0 {
					missing := append([]string(nil), db.MissingColumns...)
					sort.Strings(missing)
					fmt.Fprintf(out, "  Missing columns: %s\n", strings.Join(missing, ", "))
				} else {
					fmt.Fprintln(out, "  Missing columns: none")
				}
				fmt.Fprintf(out, "  Total items: %d\n", db.TotalItems)
				if db.Error != "" {
					fmt.Fprintf(out, "  Error: %s\n", db.Error)
				}

				if !stage.AllReady(checks) || db.Error != "" {
					return errors.New("health check reported problems")
				}
				return nil
			})
		},
	}
}
