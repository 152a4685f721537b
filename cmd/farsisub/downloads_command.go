package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"farsisub/internal/daemonrun"
	"farsisub/internal/usage"
)

func newDownloadsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "downloads",
		Short: "List recent audio downloads from the audit log",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive")
			}
			return ctx.withLedger(cmd.Context(), func(_ *usage.Ledger, st daemonrun.LedgerStore) error {
				downloads, err := st.RecentDownloads(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, downloads)
				}
				out := cmd.OutOrStdout()
				if len(downloads) == 0 {
					fmt.Fprintln(out, "No downloads recorded")
					return nil
				}
				rows := make([][]string, 0, len(downloads))
				for _, d := range downloads {
					rows = append(rows, []string{
						fmt.Sprintf("%d", d.ID),
						d.UserID,
						d.RequestID,
						d.VideoURL,
						d.CreatedAt.UTC().Format(time.RFC3339),
					})
				}
				fmt.Fprintln(out, renderTable(out,
					[]string{"ID", "User", "Request", "URL", "Created"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum rows to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
