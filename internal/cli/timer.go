package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/andy/timekeeper/internal/domain"
	"github.com/andy/timekeeper/internal/service"
)

var errNoActiveTimer = errors.New("no active timer")

var timerCmd = &cobra.Command{
	Use:   "timer",
	Short: "Manage timers",
	Long:  `Start, stop, pause, resume, or check the status of your timers.`,
}

var timerStartCmd = &cobra.Command{
	Use:   "start [description]",
	Short: "Start a new timer",
	Long: `Start a new timer. Any timer you already have running or paused is
stopped first and its unsaved time is discarded.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		previous, err := appInstance.TimerService.GetActiveTimer(ctx, currentUser())
		if err != nil {
			return fmt.Errorf("failed to check active timer: %w", err)
		}

		timer, err := appInstance.TimerService.Start(ctx, service.StartInput{
			UserID:      currentUser(),
			CaseID:      optionalFlag(cmd, "case"),
			TaskID:      optionalFlag(cmd, "task"),
			Description: strings.Join(args, " "),
		})
		if err != nil {
			return fmt.Errorf("failed to start timer: %w", err)
		}

		if previous != nil {
			fmt.Fprintf(out, "! Stopped previous timer %s (%s) without saving\n", shortID(previous.ID), previous.Description)
		}
		fmt.Fprintf(out, "✓ Timer started: %s\n", timer.Description)
		fmt.Fprintf(out, "  ID: %s\n", timer.ID)
		printRefs(out, timer.CaseID, timer.TaskID)

		return nil
	},
}

var timerStopCmd = &cobra.Command{
	Use:   "stop [timer_id]",
	Short: "Stop a timer and save a timesheet entry",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		timerID, err := resolveTimerID(ctx, args)
		if err != nil {
			return err
		}

		noSave, _ := cmd.Flags().GetBool("no-save")
		opts := service.StopOptions{SaveEntry: !noSave}
		if cmd.Flags().Changed("rate") {
			rate, _ := cmd.Flags().GetFloat64("rate")
			opts.HourlyRate = &rate
		}

		result, err := appInstance.TimerService.Stop(ctx, currentUser(), timerID, opts)
		if err != nil {
			return fmt.Errorf("failed to stop timer: %w", err)
		}

		fmt.Fprintf(out, "✓ Timer stopped\n")
		fmt.Fprintf(out, "  Duration: %s\n", formatDuration(result.Timer.Total()))
		if result.Entry == nil {
			fmt.Fprintln(out, "  No entry saved")
			return nil
		}
		fmt.Fprintf(out, "  Entry: %s (%d min)\n", result.Entry.ID, result.Entry.DurationMinutes)
		fmt.Fprintf(out, "  Amount: $%.2f\n", result.Entry.TotalAmount)

		return nil
	},
}

var timerPauseCmd = &cobra.Command{
	Use:   "pause [timer_id]",
	Short: "Pause the active timer",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		timerID, err := resolveTimerID(ctx, args)
		if err != nil {
			return err
		}

		timer, err := appInstance.TimerService.Pause(ctx, currentUser(), timerID)
		if err != nil {
			return fmt.Errorf("failed to pause timer: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ Timer paused at %s\n", formatDuration(timer.Total()))
		return nil
	},
}

var timerResumeCmd = &cobra.Command{
	Use:   "resume [timer_id]",
	Short: "Resume a paused timer",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		timerID, err := resolveTimerID(ctx, args)
		if err != nil {
			return err
		}

		if _, err := appInstance.TimerService.Resume(ctx, currentUser(), timerID); err != nil {
			return fmt.Errorf("failed to resume timer: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "✓ Timer resumed")
		return nil
	},
}

var timerStatusCmd = &cobra.Command{
	Use:   "status [timer_id]",
	Short: "Show the active timer, or any timer by ID",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		var timer *domain.Timer
		var err error
		if len(args) == 1 {
			timer, err = appInstance.TimerService.GetTimer(ctx, currentUser(), args[0])
		} else {
			timer, err = appInstance.TimerService.GetActiveTimer(ctx, currentUser())
		}
		if err != nil {
			return fmt.Errorf("failed to get timer: %w", err)
		}

		if timer == nil {
			fmt.Fprintln(out, "No active timer")
			return nil
		}

		now := appInstance.Clock.Now()
		fmt.Fprintf(out, "Timer Status: %s\n", timer.Status)
		fmt.Fprintf(out, "  ID: %s\n", timer.ID)
		fmt.Fprintf(out, "  Description: %s\n", timer.Description)
		printRefs(out, timer.CaseID, timer.TaskID)
		fmt.Fprintf(out, "  Started: %s\n", timer.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Fprintf(out, "  Elapsed: %s\n", formatDuration(timer.Elapsed(now)))
		if timer.TotalPausedMillis > 0 {
			fmt.Fprintf(out, "  Paused: %s\n", formatDuration(time.Duration(timer.TotalPausedMillis)*time.Millisecond))
		}
		if rate := appInstance.Config.DefaultRate(); rate != nil {
			minutes := domain.MillisToMinutes(timer.Elapsed(now).Milliseconds())
			fmt.Fprintf(out, "  Current Value: $%.2f\n", domain.Amount(minutes, rate))
		}

		return nil
	},
}

func init() {
	timerStartCmd.Flags().String("case", "", "case to bill the time against")
	timerStartCmd.Flags().String("task", "", "task within the case")

	timerStopCmd.Flags().Bool("no-save", false, "stop without creating a timesheet entry")
	timerStopCmd.Flags().Float64("rate", 0, "hourly rate for the entry (default from config)")

	timerCmd.AddCommand(timerStartCmd)
	timerCmd.AddCommand(timerStopCmd)
	timerCmd.AddCommand(timerPauseCmd)
	timerCmd.AddCommand(timerResumeCmd)
	timerCmd.AddCommand(timerStatusCmd)
}

// resolveTimerID returns the explicit timer ID argument, or the active timer's ID
func resolveTimerID(ctx context.Context, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}

	timer, err := appInstance.TimerService.GetActiveTimer(ctx, currentUser())
	if err != nil {
		return "", fmt.Errorf("failed to get active timer: %w", err)
	}
	if timer == nil {
		return "", errNoActiveTimer
	}
	return timer.ID, nil
}

func optionalFlag(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

func printRefs(out io.Writer, caseID, taskID *string) {
	if caseID != nil {
		fmt.Fprintf(out, "  Case: %s\n", *caseID)
	}
	if taskID != nil {
		fmt.Fprintf(out, "  Task: %s\n", *taskID)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	} else if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
