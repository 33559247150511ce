package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/luqian/astock-screener/internal/trading"
)

var costSell bool

// costCmd estimates the transaction cost of one fill.
var costCmd = &cobra.Command{
	Use:   "cost <price> <shares>",
	Short: "Estimate the transaction cost of a fill",
	Long: `Prices the frictions of one fill (commission, slippage, and stamp
tax on sells) using the configured trading rates.

Example:
  astock cost 12.50 1000
  astock cost 12.50 1000 --sell`,
	Args: cobra.ExactArgs(2),
	RunE: runCost,
}

func init() {
	rootCmd.AddCommand(costCmd)
	costCmd.Flags().BoolVar(&costSell, "sell", false, "price a sell instead of a buy")
}

func runCost(cmd *cobra.Command, args []string) error {
	price, err := strconv.ParseFloat(args[0], 64)
	if err != nil || price <= 0 {
		return fmt.Errorf("invalid price %q", args[0])
	}
	shares, err := strconv.Atoi(args[1])
	if err != nil || shares <= 0 {
		return fmt.Errorf("invalid share count %q", args[1])
	}

	a, err := newApp("cost")
	if err != nil {
		return err
	}

	model := trading.NewCostModel(a.cfg.Trading)
	cost := model.TradeCost(price, shares, !costSell)
	value := price * float64(shares)

	side := "买入"
	if costSell {
		side = "卖出"
	}
	cmd.Printf("%s %d股 @ %.2f  成交额 %.2f  交易成本 %.2f (%.4f%%)\n",
		side, shares, price, value, cost, cost/value*100)
	return nil
}
