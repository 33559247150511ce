package commands

import (
	"github.com/spf13/cobra"
)

// runCmd executes the whole pipeline for one trading date.
var runCmd = &cobra.Command{
	Use:   "run [trade_date]",
	Short: "Run all four filter stages for a trading date",
	Long: `Runs stages 1-4 in order for the given 8-digit trading date.
Without an argument the most recent trading date is resolved from the
exchange calendar (the current day counts from 17:00 local).

Example:
  astock run
  astock run 20250221`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	a, err := newApp("run")
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	flag := ""
	if len(args) == 1 {
		flag = args[0]
	}
	date, err := a.resolveDate(ctx, flag)
	if err != nil {
		return a.finish(ctx, err)
	}

	a.log.WithField("trade_date", date).Info("pipeline starting")
	return a.finish(ctx, a.pipe.Run(ctx, date))
}
