package commands

import (
	"fmt"
	"jwassist-backend/internal/components/chrono"
	"jwassist-backend/internal/schedule"
	"time"

	"github.com/spf13/cobra"
)

var weekDate *string

func init() {
	weekDate = weekCmd.Flags().String("date", "", "Compute the week of this date (YYYY-MM-DD) instead of today.")
	rootCmd.AddCommand(weekCmd)
}

var weekCmd = &cobra.Command{
	Use:   "week [--date <YYYY-MM-DD>]",
	Short: "Prints the teaching week number.",
	RunE: withEnvironment(func(cmd *cobra.Command, args []string, env environment) error {
		cal, err := env.config.calendar()
		if err != nil {
			return err
		}
		now := env.clock.Now()
		if *weekDate != "" {
			now, err = time.ParseInLocation(schedule.DateLayout, *weekDate, chrono.CST)
			if err != nil {
				return fmt.Errorf("--date: %w", err)
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), cal.CurrentWeek(now))
		return nil
	}),
}
