package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	tradeDate  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "astock",
	Short: "A股批量选股工具 - four-stage stock filter over tushare data",
	Long: `astock screens the A-share universe through four successive filters:

  1. universe screen    (ST / exchange-prefix exclusions)
  2. liquidity screen   (float market cap ceiling)
  3. fundamentals screen (ROE / profit growth / leverage, two periods)
  4. momentum screen    (weekly traded value and pct-change rankings)

Every dataset is cached as a dated CSV file; every stage output is
written exactly once per trading date.

Examples:
  astock run
  astock stage 3 --date 20250221
  astock fetch
  astock schedule
  astock export 2025 2
  astock field search 市盈率
  astock signal 000001.SZ`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "config.yaml", "config file path")
}
