package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show the most recent audit events",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		limit, _ := cmd.Flags().GetInt("limit")
		events, err := appInstance.Store.Audit.List(ctx, limit)
		if err != nil {
			return fmt.Errorf("failed to list audit events: %w", err)
		}

		if len(events) == 0 {
			fmt.Fprintln(out, "No audit events")
			return nil
		}

		for _, e := range events {
			fmt.Fprintf(out, "%s  %-24s %-12s %s\n",
				e.Timestamp.Local().Format("2006-01-02 15:04:05"),
				e.Action,
				e.UserID,
				e.Resource,
			)
		}
		return nil
	},
}

func init() {
	auditCmd.Flags().Int("limit", 20, "maximum number of events (0 for all)")
}
