package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"farsisub/internal/daemonrun"
	"farsisub/internal/usage"
)

type usageRow struct {
	UserID      string    `json:"userId"`
	Day         string    `json:"day"`
	SecondsUsed int64     `json:"secondsUsed"`
	Remaining   int64     `json:"remaining"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func newUsageCommand(ctx *commandContext) *cobra.Command {
	usageCmd := &cobra.Command{
		Use:   "usage",
		Short: "Inspect and reset the daily usage ledger",
	}
	usageCmd.AddCommand(newUsageShowCommand(ctx))
	usageCmd.AddCommand(newUsageResetCommand(ctx))
	return usageCmd
}

func newUsageShowCommand(ctx *commandContext) *cobra.Command {
	var day string
	var all bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show per-user usage for a day (default today, UTC)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if all && strings.TrimSpace(day) != "" {
				return errors.New("--day and --all are mutually exclusive")
			}
			return ctx.withLedger(cmd.Context(), func(ledger *usage.Ledger, _ daemonrun.LedgerStore) error {
				target := strings.TrimSpace(day)
				if target == "" && !all {
					target = ledger.Today()
				}
				records, err := ledger.List(cmd.Context(), target)
				if err != nil {
					return err
				}
				rows := make([]usageRow, 0, len(records))
				for _, rec := range records {
					snap := ledger.SnapshotOf(rec.Day, rec.SecondsUsed)
					rows = append(rows, usageRow{
						UserID:      rec.UserID,
						Day:         rec.Day,
						SecondsUsed: rec.SecondsUsed,
						Remaining:   snap.Remaining,
						UpdatedAt:   rec.UpdatedAt,
					})
				}
				if asJSON {
					return writeJSON(cmd, rows)
				}

				out := cmd.OutOrStdout()
				if len(rows) == 0 {
					if target == "" {
						fmt.Fprintln(out, "No usage recorded")
					} else {
						fmt.Fprintf(out, "No usage recorded for %s\n", target)
					}
					return nil
				}
				table := make([][]string, 0, len(rows))
				for _, row := range rows {
					updated := ""
					if !row.UpdatedAt.IsZero() {
						updated = row.UpdatedAt.UTC().Format(time.RFC3339)
					}
					table = append(table, []string{
						row.UserID,
						row.Day,
						fmt.Sprintf("%d", row.SecondsUsed),
						fmt.Sprintf("%d", row.Remaining),
						updated,
					})
				}
				fmt.Fprintln(out, renderTable(out,
					[]string{"User", "Day", "Used (s)", "Remaining (s)", "Updated"},
					table,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				))
				fmt.Fprintf(out, "Daily limit: %d seconds\n", ledger.Limit())
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&day, "day", "", "Day to show (YYYY-MM-DD, UTC)")
	cmd.Flags().BoolVar(&all, "all", false, "Show every recorded day")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newUsageResetCommand(ctx *commandContext) *cobra.Command {
	var userID string
	var all bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear usage for one user or for everyone",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID = strings.TrimSpace(userID)
			switch {
			case all && userID != "":
				return errors.New("--user and --all are mutually exclusive")
			case !all && userID == "":
				return errors.New("specify --user ID or --all")
			}
			target := userID
			if all {
				target = usage.AllUsers
			}
			return ctx.withLedger(cmd.Context(), func(ledger *usage.Ledger, _ daemonrun.LedgerStore) error {
				rows, err := ledger.ResetUsage(cmd.Context(), target)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if all {
					fmt.Fprintf(out, "Cleared %d usage record(s) for all users\n", rows)
				} else {
					fmt.Fprintf(out, "Cleared %d usage record(s) for %s\n", rows, userID)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User ID to reset")
	cmd.Flags().BoolVar(&all, "all", false, "Reset every user")
	return cmd
}
