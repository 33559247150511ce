package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/luqian/astock-screener/internal/pipeline"
	"github.com/luqian/astock-screener/internal/report"
)

// exportCmd screens every Friday of a month and exports the merged picks.
var exportCmd = &cobra.Command{
	Use:   "export <year> <month>",
	Short: "Run the weekly screen for a month and export results to Excel",
	Long: `Runs the full pipeline for every Friday trading date in the given
month, merges the final stage outputs into one CSV and writes an Excel
workbook next to it.

Example:
  astock export 2025 2`,
	Args: cobra.ExactArgs(2),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	year, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid year %q: %w", args[0], err)
	}
	month, err := strconv.Atoi(args[1])
	if err != nil || month < 1 || month > 12 {
		return fmt.Errorf("invalid month %q", args[1])
	}

	a, err := newApp("export")
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	fridays := a.cal.FridayTradeDates(ctx, year, time.Month(month))
	if len(fridays) == 0 {
		return fmt.Errorf("no friday trading dates found for %04d-%02d", year, month)
	}

	var outputs []string
	for _, date := range fridays {
		if err := ctx.Err(); err != nil {
			return a.finish(ctx, err)
		}
		err := a.pipe.Run(ctx, date)
		if err != nil && !pipeline.IsOutputExists(err) {
			a.log.WithError(err).Errorf("pipeline failed for %s, skipping", date)
			continue
		}
		path := a.pipe.Stage4Path(date)
		if _, statErr := os.Stat(path); statErr != nil {
			a.log.Warnf("no final output for %s", date)
			continue
		}
		outputs = append(outputs, path)
	}
	if len(outputs) == 0 {
		return fmt.Errorf("no screening results produced for %04d-%02d", year, month)
	}

	base := fmt.Sprintf("weekly_picks_%04d%02d", year, month)
	csvPath := filepath.Join(a.cfg.Paths.FilterDir, base+".csv")
	merged, err := report.MergeCSV(outputs, csvPath)
	if err != nil {
		return fmt.Errorf("merging weekly results: %w", err)
	}

	xlsxPath := filepath.Join(a.cfg.Paths.FilterDir, base+".xlsx")
	if err := report.SaveExcel(merged, xlsxPath, fmt.Sprintf("%04d-%02d", year, month)); err != nil {
		return fmt.Errorf("writing excel workbook: %w", err)
	}
	a.log.Infof("exported %d weeks, %d rows to %s", len(outputs), merged.Len(), xlsxPath)
	return nil
}
