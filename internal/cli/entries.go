package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/andy/timekeeper/internal/domain"
	"github.com/andy/timekeeper/internal/repository"
)

var entriesCmd = &cobra.Command{
	Use:   "entries",
	Short: "Manage timesheet entries",
	Long:  `List, add, and delete timesheet entries.`,
}

var entriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List timesheet entries, newest first",
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
		limit, _ := cmd.Flags().GetInt("limit")

		user := currentUser()
		entries, err := appInstance.EntryService.ListEntries(ctx, repository.EntryFilter{
			UserID:    &user,
			CaseID:    optionalFlag(cmd, "case"),
			TaskID:    optionalFlag(cmd, "task"),
			StartDate: start,
			EndDate:   end,
			Limit:     limit,
		})
		if err != nil {
			return fmt.Errorf("failed to list entries: %w", err)
		}

		if len(entries) == 0 {
			fmt.Fprintln(out, "No entries found")
			return nil
		}

		// Print table header
		fmt.Fprintf(out, "%-8s %-12s %-16s %-10s %-10s %s\n", "ID", "Case", "Date", "Duration", "Amount", "Description")
		fmt.Fprintln(out, "--------------------------------------------------------------------------------")

		var totalMinutes int64
		var totalAmount float64

		for _, entry := range entries {
			caseName := "-"
			if entry.CaseID != nil {
				caseName = *entry.CaseID
			}

			fmt.Fprintf(out, "%-8s %-12s %-16s %-10s $%-9.2f %s\n",
				shortID(entry.ID),
				truncate(caseName, 12),
				entry.StartTime.Local().Format("2006-01-02 15:04"),
				formatDuration(entry.Duration()),
				entry.TotalAmount,
				entry.Description,
			)

			totalMinutes += entry.DurationMinutes
			totalAmount += entry.TotalAmount
		}

		fmt.Fprintln(out, "--------------------------------------------------------------------------------")
		fmt.Fprintf(out, "Total: %s  $%.2f\n", formatDuration(time.Duration(totalMinutes)*time.Minute), totalAmount)

		return nil
	},
}

var entriesAddCmd = &cobra.Command{
	Use:   "add [description]",
	Short: "Add a timesheet entry without a timer",
	Long: `Add a timesheet entry from explicit start and end times.

Examples:
  timekeeper entries add "Client call" --start "today 9:00" --end "today 9:45" --case acme
  timekeeper entries add "Research" --start "2026-03-02 14:00" --end "2026-03-02 16:30" --rate 120`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		start, err := timeFlag(cmd, "start")
		if err != nil {
			return err
		}
		end, err := timeFlag(cmd, "end")
		if err != nil {
			return err
		}
		if start == nil || end == nil {
			return fmt.Errorf("both --start and --end are required")
		}

		nonBillable, _ := cmd.Flags().GetBool("non-billable")
		in := domain.ManualEntryInput{
			UserID:      currentUser(),
			CaseID:      optionalFlag(cmd, "case"),
			TaskID:      optionalFlag(cmd, "task"),
			Category:    optionalFlag(cmd, "category"),
			Description: strings.Join(args, " "),
			StartTime:   *start,
			EndTime:     *end,
			Billable:    !nonBillable,
		}
		if cmd.Flags().Changed("rate") {
			rate, _ := cmd.Flags().GetFloat64("rate")
			in.HourlyRate = &rate
		}

		entry, err := appInstance.EntryService.CreateEntry(ctx, in)
		if err != nil {
			return fmt.Errorf("failed to add entry: %w", err)
		}

		fmt.Fprintf(out, "✓ Entry added: %s\n", entry.ID)
		fmt.Fprintf(out, "  Duration: %s\n", formatDuration(entry.Duration()))
		fmt.Fprintf(out, "  Amount: $%.2f\n", entry.TotalAmount)
		return nil
	},
}

var entriesDeleteCmd = &cobra.Command{
	Use:   "delete <entry_id>",
	Short: "Delete a timesheet entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		yes, _ := cmd.Flags().GetBool("yes")
		if !yes && !confirmPrompt(fmt.Sprintf("Delete entry %s?", args[0])) {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
			return nil
		}

		if err := appInstance.EntryService.DeleteEntry(ctx, currentUser(), args[0]); err != nil {
			return fmt.Errorf("failed to delete entry: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "✓ Entry deleted")
		return nil
	},
}

func init() {
	entriesListCmd.Flags().String("case", "", "only entries for this case")
	entriesListCmd.Flags().String("task", "", "only entries for this task")
	entriesListCmd.Flags().String("since", "", "earliest start time, e.g. \"last monday\"")
	entriesListCmd.Flags().String("until", "", "latest start time")
	entriesListCmd.Flags().Int("limit", 50, "maximum number of entries (0 for all)")

	entriesAddCmd.Flags().String("start", "", "start time")
	entriesAddCmd.Flags().String("end", "", "end time")
	entriesAddCmd.Flags().String("case", "", "case to bill the time against")
	entriesAddCmd.Flags().String("task", "", "task within the case")
	entriesAddCmd.Flags().String("category", "", "free-form category")
	entriesAddCmd.Flags().Float64("rate", 0, "hourly rate (default from config)")
	entriesAddCmd.Flags().Bool("non-billable", false, "record the entry as non-billable")

	entriesDeleteCmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")

	entriesCmd.AddCommand(entriesListCmd)
	entriesCmd.AddCommand(entriesAddCmd)
	entriesCmd.AddCommand(entriesDeleteCmd)
}

func confirmPrompt(message string) bool {
	fmt.Printf("%s [y/N] ", message)
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	input = strings.TrimSpace(strings.ToLower(input))
	return input == "y" || input == "yes"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
