package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// stageCmd executes a single filter stage.
var stageCmd = &cobra.Command{
	Use:   "stage <1|2|3|4>",
	Short: "Run a single filter stage",
	Long: `Runs one filter stage for a trading date. A stage whose input file
is missing re-derives it by invoking the prior stage first.

Example:
  astock stage 1
  astock stage 3 --date 20250221`,
	Args: cobra.ExactArgs(1),
	RunE: runStage,
}

func init() {
	rootCmd.AddCommand(stageCmd)
	stageCmd.Flags().StringVar(&tradeDate, "date", "", "8-digit trading date (default: latest)")
}

func runStage(cmd *cobra.Command, args []string) error {
	a, err := newApp("stage" + args[0])
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	date, err := a.resolveDate(ctx, tradeDate)
	if err != nil {
		return a.finish(ctx, err)
	}

	var stage func(context.Context, string) error
	switch args[0] {
	case "1":
		stage = a.pipe.Stage1
	case "2":
		stage = a.pipe.Stage2
	case "3":
		stage = a.pipe.Stage3
	case "4":
		stage = a.pipe.Stage4
	default:
		return fmt.Errorf("unknown stage %q (valid: 1, 2, 3, 4)", args[0])
	}

	a.log.WithField("trade_date", date).Infof("running stage %s", args[0])
	return a.finish(ctx, stage(ctx, date))
}
