package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/luqian/astock-screener/internal/calendar"
	"github.com/luqian/astock-screener/pkg/table"
)

// Stage3 screens the stage-2 survivors on quarterly fundamentals. It runs
// once per configured reporting period, writes one file per (date, period)
// pair, then merges: a ticker survives only if it passed the screen in
// every period that produced data. A period whose bulk fetch stays empty
// after the retry budget is logged and skipped; the merge proceeds with
// the periods that succeeded.
func (p *Pipeline) Stage3(ctx context.Context, tradeDate string) error {
	mergedOut := p.Stage3MergedPath(tradeDate)
	if fileExists(mergedOut) {
		p.logger.Warnf("refusing to overwrite existing output: %s", mergedOut)
		return &OutputExistsError{Path: mergedOut}
	}

	stage2, err := p.loadStageInput(ctx, p.stage2Path(tradeDate), p.Stage2, tradeDate)
	if err != nil {
		return err
	}
	p.logger.Infof("stage2 survivors: %d stocks", stage2.Len())

	var periodTables []*table.Table
	for _, rp := range p.cfg.Periods {
		period, err := calendar.QuarterEnd(rp.Year, rp.Quarter)
		if err != nil {
			return err
		}
		out := p.stage3PeriodPath(tradeDate, period)

		if fileExists(out) {
			p.logger.Warnf("period output already exists, reusing: %s", out)
			t, err := table.ReadCSV(out)
			if err != nil {
				return err
			}
			periodTables = append(periodTables, t)
			continue
		}

		t, err := p.screenFundamentals(ctx, stage2, period)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			p.logger.WithError(err).Errorf("no fundamentals data for period %s, skipping", period)
			continue
		}
		if err := p.writeStageOutput(t, out); err != nil && !IsOutputExists(err) {
			return err
		}
		periodTables = append(periodTables, t)
	}

	if len(periodTables) == 0 {
		return fmt.Errorf("no reporting period produced fundamentals data")
	}

	merged := periodTables[0]
	for _, t := range periodTables[1:] {
		merged = intersectByTicker(merged, t)
	}
	p.logger.Infof("merged across %d periods: %d stocks", len(periodTables), merged.Len())

	return p.writeStageOutput(merged, mergedOut)
}

// screenFundamentals evaluates the three-predicate screen for one period
// over a bounded worker pool. Each unit of work is a read-only lookup in
// the ticker index; results are re-projected to the input row order so
// the output file is deterministic.
func (p *Pipeline) screenFundamentals(ctx context.Context, stage2 *table.Table, period string) (*table.Table, error) {
	fina, err := p.data.FinaIndicatorByPeriod(ctx, period)
	if err != nil {
		return nil, err
	}
	if fina.Empty() {
		return nil, fmt.Errorf("fundamentals dataset empty for period %s", period)
	}

	index := make(map[string]table.Row, fina.Len())
	for _, r := range fina.Rows {
		if _, seen := index[r["ts_code"]]; !seen {
			index[r["ts_code"]] = r
		}
	}

	pass := make([]bool, stage2.Len())
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Selection.Workers)
	for i, row := range stage2.Rows {
		i, row := i, row
		g.Go(func() error {
			pass[i] = p.passesFundamentals(row["ts_code"], index)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := table.New(stage2.Columns...)
	for i, r := range stage2.Rows {
		if pass[i] {
			out.Append(r)
		}
	}
	p.logger.Infof("period %s: %d of %d stocks pass the fundamentals screen", period, out.Len(), stage2.Len())
	return out, nil
}

// passesFundamentals applies the three numeric predicates. A parse failure
// on any field excludes the ticker (logged at debug level, not fatal).
func (p *Pipeline) passesFundamentals(tsCode string, index map[string]table.Row) bool {
	row, ok := index[tsCode]
	if !ok {
		return false
	}

	roe, err := row.Float("roe")
	if err != nil {
		p.logger.Debugf("%s: bad fundamentals value: %v", tsCode, err)
		return false
	}
	yoy, err := row.Float("q_netprofit_yoy")
	if err != nil {
		p.logger.Debugf("%s: bad fundamentals value: %v", tsCode, err)
		return false
	}
	debt, err := row.Float("debt_to_assets")
	if err != nil {
		p.logger.Debugf("%s: bad fundamentals value: %v", tsCode, err)
		return false
	}

	sel := p.cfg.Selection
	return roe >= sel.ROEFloor && yoy > sel.NetProfitFloor && debt < sel.DebtCeiling
}

// intersectByTicker keeps the rows of a whose ticker also appears in b.
func intersectByTicker(a, b *table.Table) *table.Table {
	keys := b.KeySet("ts_code")
	return a.Filter(func(r table.Row) bool {
		_, ok := keys[r["ts_code"]]
		return ok
	})
}
