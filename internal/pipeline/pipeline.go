// Package pipeline implements the four-stage stock filter pipeline.
// Each stage persists its output as a dated CSV in the filter directory
// and refuses to re-run once that file exists.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/luqian/astock-screener/pkg/config"
	"github.com/luqian/astock-screener/pkg/logger"
	"github.com/luqian/astock-screener/pkg/table"
)

// Datasets supplies the upstream data each stage consumes, cache first.
type Datasets interface {
	StockBasic(ctx context.Context, tradeDate string) (*table.Table, error)
	DailyBasic(ctx context.Context, tradeDate string) (*table.Table, error)
	Weekly(ctx context.Context, tradeDate string) (*table.Table, error)
	FinaIndicatorByPeriod(ctx context.Context, period string) (*table.Table, error)
}

// Pipeline wires the four filter stages over shared datasets and config.
type Pipeline struct {
	data   Datasets
	cfg    *config.Config
	logger *logger.Logger
}

// New creates a Pipeline.
func New(data Datasets, cfg *config.Config, log *logger.Logger) *Pipeline {
	return &Pipeline{data: data, cfg: cfg, logger: log}
}

// Run executes stages 1 through 4 for one trading date, strictly in
// order. An idempotent refusal from any stage stops the run and is
// returned to the caller (who treats it as prior completion).
func (p *Pipeline) Run(ctx context.Context, tradeDate string) error {
	stages := []struct {
		name string
		fn   func(context.Context, string) error
	}{
		{"stage1 universe screen", p.Stage1},
		{"stage2 liquidity screen", p.Stage2},
		{"stage3 fundamentals screen", p.Stage3},
		{"stage4 momentum/volume screen", p.Stage4},
	}
	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.logger.WithField("trade_date", tradeDate).Infof("running %s", s.name)
		if err := s.fn(ctx, tradeDate); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}

// Stage output file locations, all keyed by trading date.

func (p *Pipeline) stage1Path(tradeDate string) string {
	return filepath.Join(p.cfg.Paths.FilterDir, fmt.Sprintf("tushare_stock_basic_filter1_%s.csv", tradeDate))
}

func (p *Pipeline) stage2Path(tradeDate string) string {
	return filepath.Join(p.cfg.Paths.FilterDir, fmt.Sprintf("tushare_stock_basic_filter2_%s.csv", tradeDate))
}

func (p *Pipeline) stage3PeriodPath(tradeDate, period string) string {
	return filepath.Join(p.cfg.Paths.FilterDir, fmt.Sprintf("tushare_stock_basic_filter3_%s_%s.csv", tradeDate, period))
}

// Stage3MergedPath is the stage-3 result consumed by stage 4.
func (p *Pipeline) Stage3MergedPath(tradeDate string) string {
	return filepath.Join(p.cfg.Paths.FilterDir, fmt.Sprintf("tushare_stock_basic_filter3_%s_merged.csv", tradeDate))
}

// Stage4Path is the final short-list location for one trading date.
func (p *Pipeline) Stage4Path(tradeDate string) string {
	return filepath.Join(p.cfg.Paths.FilterDir, fmt.Sprintf("tushare_stock_basic_filter4_%s.csv", tradeDate))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}

// loadStageInput reads a prior stage's output, re-deriving it through the
// prior stage's entry point when the file is missing.
func (p *Pipeline) loadStageInput(ctx context.Context, path string, rebuild func(context.Context, string) error, tradeDate string) (*table.Table, error) {
	if !fileExists(path) {
		p.logger.Warnf("input file missing, regenerating: %s", path)
		if err := rebuild(ctx, tradeDate); err != nil && !IsOutputExists(err) {
			return nil, err
		}
	}
	return table.ReadCSV(path)
}

// writeStageOutput persists a stage result, refusing when the file exists.
func (p *Pipeline) writeStageOutput(t *table.Table, path string) error {
	if fileExists(path) {
		p.logger.Warnf("refusing to overwrite existing output: %s", path)
		return &OutputExistsError{Path: path}
	}
	if err := t.WriteCSV(path); err != nil {
		return fmt.Errorf("write stage output: %w", err)
	}
	p.logger.WithFields(map[string]interface{}{
		"path": path,
		"rows": t.Len(),
	}).Info("stage output saved")
	return nil
}
