package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
paths:
  csv_dir: data/csv
  log_dir: data/logs
  filter_dir: data/filter

stock_selection:
  circ_mv: 10000000
  roe: 4
  q_netprofit_yoy: 0
  debt_to_assets: 80
  top_volume: 6
  top_pct_chg: 3

report_periods:
  - year: 2023
    quarter: Q4
  - year: 2024
    quarter: Q3

apis:
  stock_basic:
    tushare_api: stock_basic
    date_field: trade_date
    fields:
      - { name: ts_code, zh: 股票代码 }
      - { name: name, zh: 股票名称 }
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "http://api.tushare.pro", cfg.Tushare.BaseURL)
	assert.Equal(t, float64(180), cfg.Tushare.RateLimit)
	assert.Equal(t, 28, cfg.Selection.Workers)
	assert.Equal(t, 2023, cfg.StartYear)

	assert.Equal(t, float64(10000000), cfg.Selection.CircMVCeiling)
	assert.Equal(t, float64(4), cfg.Selection.ROEFloor)
	assert.Equal(t, 6, cfg.Selection.TopVolume)

	require.Len(t, cfg.Periods, 2)
	assert.Equal(t, ReportPeriod{Year: 2023, Quarter: "Q4"}, cfg.Periods[0])
}

func TestLoadTokenFromEnv(t *testing.T) {
	t.Setenv("TUSHARE_TOKEN", "env-token")
	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.Tushare.Token)
}

func TestLoadValidation(t *testing.T) {
	const paths = "paths:\n  csv_dir: a\n  log_dir: b\n  filter_dir: c\n"
	const periods = "report_periods:\n  - year: 2024\n    quarter: Q1\n"

	tests := []struct {
		name string
		yaml string
	}{
		{name: "bad env", yaml: paths + periods + "env: prod\n"},
		{name: "bad quarter", yaml: paths + "report_periods:\n  - year: 2024\n    quarter: Q5\n"},
		{name: "bad year", yaml: paths + "report_periods:\n  - year: 1024\n    quarter: Q1\n"},
		{name: "bad workers", yaml: paths + periods + "stock_selection:\n  workers: -1\n"},
		{name: "missing paths", yaml: periods},
		{name: "missing periods", yaml: paths},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestFieldNames(t *testing.T) {
	api := API{Fields: []Field{
		{Name: "ts_code", Zh: "股票代码"},
		{Name: "circ_mv", Zh: "流通市值"},
	}}
	assert.Equal(t, []string{"ts_code", "circ_mv"}, api.FieldNames())
}

func TestEnsureDirs(t *testing.T) {
	base := t.TempDir()
	cfg := &Config{Paths: PathsConfig{
		CSVDir:    filepath.Join(base, "csv"),
		LogDir:    filepath.Join(base, "logs"),
		FilterDir: filepath.Join(base, "filter"),
	}}
	require.NoError(t, cfg.EnsureDirs())
	for _, dir := range []string{cfg.Paths.CSVDir, cfg.Paths.LogDir, cfg.Paths.FilterDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
