package pipeline

import (
	"context"
	"strings"

	"github.com/luqian/astock-screener/pkg/table"
)

// Tickers whose code starts with one of these characters belong to the
// Beijing exchange tier (4/8/9 prefixes) and are excluded outright.
var excludedCodePrefixes = map[byte]struct{}{'4': {}, '8': {}, '9': {}}

// Stage1 screens the base listing: drops special-treatment (ST) names and
// the excluded exchange-prefix class, then writes the stage-1 file.
func (p *Pipeline) Stage1(ctx context.Context, tradeDate string) error {
	out := p.stage1Path(tradeDate)
	if fileExists(out) {
		p.logger.Warnf("refusing to overwrite existing output: %s", out)
		return &OutputExistsError{Path: out}
	}

	df, err := p.data.StockBasic(ctx, tradeDate)
	if err != nil {
		return err
	}
	p.logger.Infof("listing snapshot: %d stocks", df.Len())

	df = df.Filter(func(r table.Row) bool {
		return !strings.Contains(r["name"], "ST")
	})
	p.logger.Infof("after ST exclusion: %d stocks", df.Len())

	df = df.Filter(func(r table.Row) bool {
		code := r["ts_code"]
		if code == "" {
			return false
		}
		_, excluded := excludedCodePrefixes[code[0]]
		return !excluded
	})
	p.logger.Infof("after 4/8/9 prefix exclusion: %d stocks", df.Len())

	return p.writeStageOutput(df, out)
}
