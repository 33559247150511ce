package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/luqian/astock-screener/pkg/table"
)

var fetchDays int

// fetchCmd pre-warms the dataset cache.
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Pre-warm the dataset cache",
	Long: `Fetches and caches everything a pipeline run will need:

  - the listing snapshot for the last trading date
  - daily bars and daily metrics for the last N trading dates
  - financial indicators for every completed quarter since start_year

Datasets already on disk are skipped.

Example:
  astock fetch
  astock fetch --days 40`,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().IntVar(&fetchDays, "days", 20, "how many recent trading dates to warm")
}

func runFetch(cmd *cobra.Command, args []string) error {
	a, err := newApp("fetch")
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	last := a.cal.LastTradeDate(ctx)
	if last == "" {
		return a.finish(ctx, errNoTradeDate)
	}
	dates := a.cal.LastNTradeDates(ctx, fetchDays)

	warm := func(name string, scope []string, fn func(context.Context, string) (*table.Table, error)) error {
		for _, s := range scope {
			if _, err := fn(ctx, s); err != nil {
				a.log.WithError(err).Errorf("fetch %s %s failed", name, s)
				if ctx.Err() != nil {
					return ctx.Err()
				}
			}
		}
		return nil
	}

	if err := warm("stock_basic", []string{last}, a.data.StockBasic); err != nil {
		return a.finish(ctx, err)
	}
	if err := warm("daily", dates, a.data.Daily); err != nil {
		return a.finish(ctx, err)
	}
	if err := warm("daily_basic", dates, a.data.DailyBasic); err != nil {
		return a.finish(ctx, err)
	}
	if err := warm("fina_indicator", a.cal.QuarterList(a.cfg.StartYear), a.data.FinaIndicatorByPeriod); err != nil {
		return a.finish(ctx, err)
	}

	a.log.Info("cache pre-warm completed")
	return nil
}
