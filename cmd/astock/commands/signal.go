package commands

import (
	"github.com/spf13/cobra"

	"github.com/luqian/astock-screener/internal/indicators"
)

const (
	signalMinBars     = 30
	signalMaxAttempts = 5
)

// signalCmd checks one ticker for recent technical sell signals.
var signalCmd = &cobra.Command{
	Use:   "signal <ts_code>",
	Short: "Check a ticker for recent KDJ and MACD death crosses",
	Long: `Pulls the precomputed technical factors for one ticker and reports
the most recent KDJ (K below D) and MACD (DIF below DEA) death crosses.
The lookback window widens automatically until enough bars come back.

Example:
  astock signal 000001.SZ`,
	Args: cobra.ExactArgs(1),
	RunE: runSignal,
}

func init() {
	rootCmd.AddCommand(signalCmd)
}

func runSignal(cmd *cobra.Command, args []string) error {
	a, err := newApp("signal")
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	tsCode := args[0]
	factors, err := a.data.StockFactorWindow(ctx, tsCode, signalMinBars, signalMaxAttempts)
	if err != nil {
		return a.finish(ctx, err)
	}

	if date, ok := indicators.RecentKDJDeathCross(factors); ok {
		cmd.Printf("%s KDJ死叉: %s\n", tsCode, date)
	} else {
		cmd.Printf("%s KDJ死叉: 无\n", tsCode)
	}
	if date, ok := indicators.RecentMACDDeathCross(factors); ok {
		cmd.Printf("%s MACD死叉: %s\n", tsCode, date)
	} else {
		cmd.Printf("%s MACD死叉: 无\n", tsCode)
	}
	return nil
}
