package commands

import (
	"jwassist-backend/internal/components/chrono"
	"jwassist-backend/internal/components/telemetry"
	"time"

	"github.com/spf13/cobra"
)

const report_daemon_run = "daemon.run"

var daemonNow *bool

func init() {
	daemonNow = daemonCmd.Flags().Bool("now", false, "Also do a run right away.")
	rootCmd.AddCommand(daemonCmd)
}

var daemonCmd = &cobra.Command{
	Use:   "daemon [--now]",
	Short: "Exports the current week and rebuilds the dataset on the configured cron schedule until interrupted.",
	RunE: withEnvironment(func(cmd *cobra.Command, args []string, env environment) error {
		p, err := newPipeline(env)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		cal, err := env.config.calendar()
		if err != nil {
			return err
		}

		runOnce := func() {
			start := time.Now()
			week := cal.CurrentWeek(env.clock.Now())
			err := p.run(ctx, []int{week})
			if err != nil {
				env.tel.ReportBroken(report_daemon_run, err)
				return
			}
			env.tel.ReportDebug("run finished", "week", week, "seconds", time.Since(start).Seconds())
		}

		cron := chrono.NewStandardCron(chrono.CST, env.tel)
		defer cron.Stop()
		err = cron.Cron(env.config.Cron, runOnce)
		if err != nil {
			return err
		}

		telemetry.InstrumentPerfStats(ctx, time.Minute, env.tel)

		if *daemonNow {
			runOnce()
		}
		env.tel.ReportDebug("daemon started", "cron", env.config.Cron)
		<-ctx.Done()
		return nil
	}),
}
