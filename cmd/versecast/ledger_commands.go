package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"versecast/internal/config"
	"versecast/internal/ledger"
)

func newLedgerCommand(ctx *commandContext) *cobra.Command {
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect and manage the poem ledger",
	}

	ledgerCmd.AddCommand(newLedgerListCommand(ctx))
	ledgerCmd.AddCommand(newLedgerStatsCommand(ctx))
	ledgerCmd.AddCommand(newLedgerShowCommand(ctx))
	ledgerCmd.AddCommand(newLedgerRetryCommand(ctx))
	ledgerCmd.AddCommand(newLedgerRemoveCommand(ctx))
	ledgerCmd.AddCommand(newLedgerClearCommand(ctx))

	return ledgerCmd
}

func newLedgerListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ledger items",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := make([]ledger.Status, 0, len(listStatuses))
			for _, value := range listStatuses {
				status, ok := ledger.ParseStatus(value)
				if !ok {
					return fmt.Errorf("unknown status %q (valid: %v)", value, ledger.AllStatuses())
				}
				statuses = append(statuses, status)
			}
			return ctx.withStore(func(cfg *config.Config, store *ledger.Store) error {
				items, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "Ledger is empty")
					return nil
				}
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						item.ID,
						item.Title,
						string(item.Status),
						strconv.Itoa(item.Attempts),
						item.UpdatedAt.Local().Format("2006-01-02 15:04"),
					})
				}
				renderTable(out, []string{"ID", "Title", "Status", "Attempts", "Updated"}, rows, 4)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by status (repeatable)")
	return cmd
}

func newLedgerStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show item counts per status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *ledger.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				total := 0
				rows := make([][]string, 0, len(stats))
				for _, status := range ledger.AllStatuses() {
					count := stats[status]
					total += count
					if count == 0 {
						continue
					}
					rows = append(rows, []string{string(status), strconv.Itoa(count)})
				}
				if total == 0 {
					fmt.Fprintln(out, "Ledger is empty")
					return nil
				}
				renderTable(out, []string{"Status", "Count"}, rows, 2)
				fmt.Fprintf(out, "Total: %d\n", total)
				return nil
			})
		},
	}
}

func newLedgerShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show every recorded detail for one item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *ledger.Store) error {
				item, err := store.GetByID(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if item == nil {
					return fmt.Errorf("item %q not found", args[0])
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID:          %s\n", item.ID)
				fmt.Fprintf(out, "Title:       %s\n", item.Title)
				fmt.Fprintf(out, "Author:      %s\n", item.Author)
				fmt.Fprintf(out, "Language:    %s\n", item.Language)
				fmt.Fprintf(out, "Status:      %s\n", item.Status)
				fmt.Fprintf(out, "Attempts:    %d\n", item.Attempts)
				fmt.Fprintf(out, "Source:      %s\n", item.SourcePath)
				if item.AudioPath != "" {
					fmt.Fprintf(out, "Audio:       %s\n", item.AudioPath)
				}
				if item.AlignmentPath != "" {
					fmt.Fprintf(out, "Alignment:   %s\n", item.AlignmentPath)
				}
				if item.VideoPath != "" {
					fmt.Fprintf(out, "Video:       %s\n", item.VideoPath)
				}
				if item.OutputRef != "" {
					fmt.Fprintf(out, "Output:      %s\n", item.OutputRef)
				}
				if item.ErrorMessage != "" {
					fmt.Fprintf(out, "Error:       %s\n", item.ErrorMessage)
				}
				fmt.Fprintf(out, "Created:     %s\n", item.CreatedAt.Local().Format(time.RFC3339))
				fmt.Fprintf(out, "Updated:     %s\n", item.UpdatedAt.Local().Format(time.RFC3339))
				if item.ProcessedAt != nil {
					fmt.Fprintf(out, "Processed:   %s\n", item.ProcessedAt.Local().Format(time.RFC3339))
				}
				return nil
			})
		},
	}
}

func newLedgerRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [id...]",
		Short: "Reset failed items to pending with a fresh attempt budget",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *ledger.Store) error {
				updated, err := store.RetryFailed(cmd.Context(), args...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d failed items\n", updated)
				return nil
			})
		},
	}
}

func newLedgerRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete one item from the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *ledger.Store) error {
				removed, err := store.Remove(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("item %q not found", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
				return nil
			})
		},
	}
}

func newLedgerClearCommand(ctx *commandContext) *cobra.Command {
	var doneOnly bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove ledger items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *ledger.Store) error {
				out := cmd.OutOrStdout()
				if doneOnly {
					removed, err := store.ClearDone(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d finished items\n", removed)
					return nil
				}
				removed, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Cleared %d items\n", removed)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&doneOnly, "done", false, "Only remove finished items")
	return cmd
}
