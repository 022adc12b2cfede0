package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var exportFlags weekSelection

func init() {
	exportCmd.Flags().IntVar(&exportFlags.Week, "week", 0, "Export a single week.")
	exportCmd.Flags().BoolVar(&exportFlags.All, "all", false, "Export every week of the term (the default).")
	exportCmd.Flags().BoolVar(&exportFlags.Current, "current", false, "Export the current week.")
	exportCmd.MarkFlagsMutuallyExclusive("week", "all", "current")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export [--week <n> | --all | --current]",
	Short: "Logs into the portal and downloads the schedule workbooks.",
	RunE: withEnvironment(func(cmd *cobra.Command, args []string, env environment) error {
		cal, err := env.config.calendar()
		if err != nil {
			return err
		}
		weeks, err := selectWeeks(exportFlags, env.config.Weeks, cal, env.clock.Now())
		if err != nil {
			return err
		}

		p, err := newPipeline(env)
		if err != nil {
			return err
		}
		report, err := p.export(cmd.Context(), weeks)
		for _, week := range report.ExportedWeeks() {
			fmt.Fprintf(cmd.OutOrStdout(), "week %d: %s\n", week, report.Exported[week])
		}
		for _, week := range report.FailedWeeks() {
			fmt.Fprintf(cmd.OutOrStdout(), "week %d failed: %v\n", week, report.Failed[week])
		}
		return err
	}),
}
