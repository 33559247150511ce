package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/luqian/astock-screener/internal/pipeline"
	"github.com/luqian/astock-screener/internal/scheduler"
)

var cronSpec string

// scheduleCmd runs the pipeline periodically.
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the pipeline on a cron schedule",
	Long: `Starts a long-lived process that runs the full pipeline for the
latest trading date on a cron schedule. The default fires at 17:30 on
weekdays, after the daily data is published.

Example:
  astock schedule
  astock schedule --cron "0 0 18 * * MON-FRI"`,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.Flags().StringVar(&cronSpec, "cron", "0 30 17 * * MON-FRI", "cron spec (with seconds)")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	a, err := newApp("schedule")
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	sched := scheduler.New(a.log)
	err = sched.AddJob(scheduler.FuncJob{
		JobName: "daily-screen",
		Spec:    cronSpec,
		Fn: func(jobCtx context.Context) error {
			date := a.cal.LastTradeDate(jobCtx)
			if date == "" {
				return errNoTradeDate
			}
			err := a.pipe.Run(jobCtx, date)
			if pipeline.IsOutputExists(err) {
				a.log.WithError(err).Warn("pipeline already completed for this date")
				return nil
			}
			return err
		},
	})
	if err != nil {
		return err
	}

	sched.Start()
	a.log.Infof("scheduler started with spec %q", cronSpec)
	<-ctx.Done()
	sched.Stop()
	a.log.Info("scheduler stopped")
	return nil
}
