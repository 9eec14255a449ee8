package cli

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/andy/timekeeper/internal/domain"
	"github.com/andy/timekeeper/internal/logger"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show timesheet statistics",
	Long: `Show total, daily, weekly and monthly hours plus per-case and per-task
breakdowns. Weeks start on Sunday.

Examples:
  timekeeper stats
  timekeeper stats --case acme --since "first day of this month"
  timekeeper stats --all-users --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		start, err := timeFlag(cmd, "since")
		if err != nil {
			return err
		}
		end, err := timeFlag(cmd, "until")
		if err != nil {
			return err
		}

		filter := domain.StatsFilter{
			CaseID:    optionalFlag(cmd, "case"),
			StartDate: start,
			EndDate:   end,
		}
		if allUsers, _ := cmd.Flags().GetBool("all-users"); !allUsers {
			user := currentUser()
			filter.UserID = &user
		}

		stats, err := appInstance.StatsService.GetTimesheetStats(ctx, filter)
		if err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}
		logger.GetFromContext(ctx).DebugContext(ctx, "stats rendered", "stats_id", stats.ID)

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		}

		fmt.Fprintf(out, "Timesheet Stats (%s)\n", stats.PeriodValue)
		fmt.Fprintf(out, "  Total:    %.2fh over %d sessions\n", stats.TotalHours, stats.TotalSessions)
		fmt.Fprintf(out, "  Today:    %.2fh\n", stats.DailyHours)
		fmt.Fprintf(out, "  Week:     %.2fh\n", stats.WeeklyHours)
		fmt.Fprintf(out, "  Month:    %.2fh\n", stats.MonthlyHours)
		fmt.Fprintf(out, "  Average:  %.2fh per session\n", stats.AverageSessionLength)
		printBreakdown(cmd, "By case", stats.CaseHours)
		printBreakdown(cmd, "By task", stats.TaskHours)

		return nil
	},
}

func printBreakdown(cmd *cobra.Command, title string, hours map[string]float64) {
	if len(hours) == 0 {
		return
	}
	keys := make([]string, 0, len(hours))
	for k := range hours {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(out, "  %-20s %.2fh\n", k, hours[k])
	}
}

func init() {
	statsCmd.Flags().String("case", "", "only entries for this case")
	statsCmd.Flags().String("since", "", "earliest start time")
	statsCmd.Flags().String("until", "", "latest start time")
	statsCmd.Flags().Bool("all-users", false, "aggregate across every user")
	statsCmd.Flags().Bool("json", false, "print the stats as JSON")
}
