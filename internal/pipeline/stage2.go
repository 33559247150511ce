package pipeline

import (
	"context"
	"sort"

	"github.com/luqian/astock-screener/pkg/table"
)

// Stage2 joins the stage-1 universe with the daily per-ticker metrics and
// screens by float market cap. Tickers missing from the metrics set
// (likely trading-halted) are warned about but kept through the left
// join with empty metric cells; the numeric ceiling predicate then drops
// rows whose float market cap does not parse.
func (p *Pipeline) Stage2(ctx context.Context, tradeDate string) error {
	out := p.stage2Path(tradeDate)
	if fileExists(out) {
		p.logger.Warnf("refusing to overwrite existing output: %s", out)
		return &OutputExistsError{Path: out}
	}

	basic, err := p.loadStageInput(ctx, p.stage1Path(tradeDate), p.Stage1, tradeDate)
	if err != nil {
		return err
	}
	p.logger.Infof("stage1 universe: %d stocks", basic.Len())

	metrics, err := p.data.DailyBasic(ctx, tradeDate)
	if err != nil {
		return err
	}
	p.logger.Infof("daily metrics: %d stocks", metrics.Len())

	metricSet := metrics.KeySet("ts_code")
	var missing []string
	for _, r := range basic.Rows {
		if _, ok := metricSet[r["ts_code"]]; !ok {
			missing = append(missing, r["ts_code"])
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		p.logger.WithField("tickers", missing).Warn("tickers absent from daily metrics, possibly halted today")
	}

	merged := basic.LeftJoin(metrics, "ts_code")
	p.logger.Infof("after join: %d stocks", merged.Len())

	ceiling := p.cfg.Selection.CircMVCeiling
	filtered := merged.Filter(func(r table.Row) bool {
		mv, err := r.Float("circ_mv")
		if err != nil {
			return false
		}
		return mv <= ceiling
	})
	p.logger.Infof("after float-market-cap ceiling (%.0f): %d stocks", ceiling, filtered.Len())

	return p.writeStageOutput(filtered, out)
}
