package commands

import (
	"jwassist-backend/internal/scrapers/jwxt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Exports every week, writes the dataset and stores or publishes it when configured.",
	RunE: withEnvironment(func(cmd *cobra.Command, args []string, env environment) error {
		p, err := newPipeline(env)
		if err != nil {
			return err
		}
		return p.run(cmd.Context(), jwxt.WeekRange(1, env.config.Weeks))
	}),
}
