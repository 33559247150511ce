package pipeline

import (
	"context"
	"fmt"

	"github.com/luqian/astock-screener/pkg/table"
)

// stage4Columns is the projection written to the final short list.
// trade_date_x is the stage-3 side's trading date after the weekly join
// renames the colliding columns.
var stage4Columns = []string{"ts_code", "name", "trade_date_x", "rank", "area", "industry", "market", "pe"}

// Stage4 joins the stage-3 merged survivors with the weekly bars, ranks
// by traded value and by weekly percentage change, and unions the two top
// lists. Unlike stage 2, rows missing from either join side are dropped:
// a ticker with no weekly bar cannot be ranked.
func (p *Pipeline) Stage4(ctx context.Context, tradeDate string) error {
	out := p.Stage4Path(tradeDate)
	if fileExists(out) {
		p.logger.Warnf("refusing to overwrite existing output: %s", out)
		return &OutputExistsError{Path: out}
	}

	merged3, err := p.loadStageInput(ctx, p.Stage3MergedPath(tradeDate), p.Stage3, tradeDate)
	if err != nil {
		return err
	}
	p.logger.Infof("stage3 survivors: %d stocks", merged3.Len())

	weekly, err := p.data.Weekly(ctx, tradeDate)
	if err != nil {
		return err
	}
	if weekly.Empty() {
		return fmt.Errorf("weekly dataset empty for %s, check the upstream API", tradeDate)
	}
	p.logger.Infof("weekly bars: %d stocks", weekly.Len())

	joined := merged3.InnerJoin(weekly, "ts_code")
	p.logger.Infof("after weekly join: %d stocks", joined.Len())

	topVolume := p.topRanked(joined, "amount", "volume_rank", p.cfg.Selection.TopVolume)
	p.logger.Infof("top %d by weekly traded value: %d stocks", p.cfg.Selection.TopVolume, topVolume.Len())

	topPctChg := p.topRanked(joined, "pct_chg", "pct_rank", p.cfg.Selection.TopPctChg)
	p.logger.Infof("top %d by weekly pct change: %d stocks", p.cfg.Selection.TopPctChg, topPctChg.Len())

	topVolume.AddColumn("rank", func(_ int, r table.Row) string {
		return fmt.Sprintf("周成交额排名 %s", r["volume_rank"])
	})
	topPctChg.AddColumn("rank", func(_ int, r table.Row) string {
		return fmt.Sprintf("周涨幅排名 %s", r["pct_rank"])
	})

	volProj, err := topVolume.Select(stage4Columns...)
	if err != nil {
		return err
	}
	pctProj, err := topPctChg.Select(stage4Columns...)
	if err != nil {
		return err
	}

	// Union, first occurrence wins: a ticker present in both lists keeps
	// its traded-value ranking label.
	final := table.New(stage4Columns...)
	seen := make(map[string]struct{})
	for _, t := range []*table.Table{volProj, pctProj} {
		for _, r := range t.Rows {
			if _, dup := seen[r["ts_code"]]; dup {
				continue
			}
			seen[r["ts_code"]] = struct{}{}
			final.Append(r)
		}
	}
	p.logger.Infof("final short list: %d stocks", final.Len())

	if final.Empty() {
		return fmt.Errorf("no stocks matched the momentum/volume screen")
	}
	return p.writeStageOutput(final, out)
}

// topRanked sorts descending by a numeric column, attaches a min-method
// rank column (ties share the smallest rank of their group), and keeps
// the top n rows.
func (p *Pipeline) topRanked(t *table.Table, col, rankCol string, n int) *table.Table {
	sorted := t.SortFloatDesc(col)
	// Detach rows from the input before mutating them with rank columns.
	copied := table.New(sorted.Columns...)
	for _, r := range sorted.Rows {
		copied.Append(r.Clone())
	}
	ranks := copied.RankMinDesc(col)
	copied.AddColumn(rankCol, func(i int, _ table.Row) string {
		return fmt.Sprintf("%d", ranks[i])
	})
	return copied.Head(n)
}
