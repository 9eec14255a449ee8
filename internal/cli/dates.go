package cli

import (
	"fmt"
	"time"

	dps "github.com/markusmobius/go-dateparser"
	"github.com/spf13/cobra"
)

// parseWhen parses absolute or relative dates such as "2026-03-01",
// "yesterday 9am" or "2 hours ago", relative to the app clock
func parseWhen(s string) (time.Time, error) {
	cfg := &dps.Configuration{
		CurrentTime:     appInstance.Clock.Now(),
		DefaultTimezone: time.Local,
	}

	dt, err := dps.Parse(cfg, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("could not parse %q as a date: %w", s, err)
	}
	if dt.Time.IsZero() {
		return time.Time{}, fmt.Errorf("could not parse %q as a date", s)
	}
	return dt.Time, nil
}

// timeFlag returns the parsed value of a date flag, or nil when unset
func timeFlag(cmd *cobra.Command, name string) (*time.Time, error) {
	if !cmd.Flags().Changed(name) {
		return nil, nil
	}
	s, _ := cmd.Flags().GetString(name)
	t, err := parseWhen(s)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return &t, nil
}
