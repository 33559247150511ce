package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
// Built once at process start and passed into every constructor;
// there is no package-level instance.
type Config struct {
	Env string `yaml:"env"` // development, staging, production

	Log       LogConfig       `yaml:"log"`
	Paths     PathsConfig     `yaml:"paths"`
	Tushare   TushareConfig   `yaml:"tushare"`
	Selection SelectionConfig `yaml:"stock_selection"`
	Periods   []ReportPeriod  `yaml:"report_periods"`
	StartYear int             `yaml:"start_year"` // first year of quarterly pre-warm
	Trading   TradingConfig   `yaml:"trading"`
	APIs      map[string]API  `yaml:"apis"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// PathsConfig holds the three working directories.
type PathsConfig struct {
	CSVDir    string `yaml:"csv_dir"`    // cached upstream datasets
	LogDir    string `yaml:"log_dir"`    // run logs
	FilterDir string `yaml:"filter_dir"` // stage outputs
}

// TushareConfig holds tushare API configuration.
type TushareConfig struct {
	Token     string  `yaml:"token"`
	BaseURL   string  `yaml:"base_url"`
	RateLimit float64 `yaml:"rate_limit"` // calls per minute
}

// SelectionConfig holds the stock-selection thresholds.
type SelectionConfig struct {
	CircMVCeiling  float64 `yaml:"circ_mv"`         // 流通市值上限 (万元)
	ROEFloor       float64 `yaml:"roe"`             // 净资产收益率下限 (%)
	NetProfitFloor float64 `yaml:"q_netprofit_yoy"` // 单季度净利润同比增长率下限 (%)
	DebtCeiling    float64 `yaml:"debt_to_assets"`  // 资产负债率上限 (%)
	TopVolume      int     `yaml:"top_volume"`      // 周成交额排名取前N
	TopPctChg      int     `yaml:"top_pct_chg"`     // 周涨幅排名取前N
	Workers        int     `yaml:"workers"`         // stage-3 worker pool size
}

// ReportPeriod identifies one fiscal quarter used by the fundamentals screen.
type ReportPeriod struct {
	Year    int    `yaml:"year"`
	Quarter string `yaml:"quarter"` // Q1..Q4
}

// TradingConfig holds per-fill cost rates.
type TradingConfig struct {
	CommissionRate float64 `yaml:"commission_rate"`
	TaxRate        float64 `yaml:"tax_rate"`
	Slippage       float64 `yaml:"slippage"`
}

// API describes one upstream dataset: its tushare api name, the parameter
// that scopes it by date, and the ordered field list with display names.
type API struct {
	TushareAPI string  `yaml:"tushare_api"`
	DateField  string  `yaml:"date_field"`
	Fields     []Field `yaml:"fields"`
}

// Field pairs a wire field name with its Chinese display name.
type Field struct {
	Name string `yaml:"name"`
	Zh   string `yaml:"zh"`
}

// FieldNames returns the wire names in catalog order.
func (a API) FieldNames() []string {
	names := make([]string, 0, len(a.Fields))
	for _, f := range a.Fields {
		names = append(names, f.Name)
	}
	return names
}

// Load reads configuration from a YAML file. A .env file next to the
// config (or in the working directory) may supply TUSHARE_TOKEN so the
// token never has to live in the YAML file.
func Load(path string) (*Config, error) {
	loadEnvFile(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := &Config{}
	applyDefaults(cfg)
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if token := os.Getenv("TUSHARE_TOKEN"); token != "" {
		cfg.Tushare.Token = token
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	cfg.Env = "development"
	cfg.Log = LogConfig{Level: "info", Format: "console"}
	cfg.Tushare.BaseURL = "http://api.tushare.pro"
	cfg.Tushare.RateLimit = 180
	cfg.Selection.Workers = 28
	cfg.StartYear = 2023
}

// validate checks required values.
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("env must be one of: development, staging, production")
	}
	if c.Paths.CSVDir == "" || c.Paths.LogDir == "" || c.Paths.FilterDir == "" {
		return fmt.Errorf("paths.csv_dir, paths.log_dir and paths.filter_dir are required")
	}
	if len(c.Periods) == 0 {
		return fmt.Errorf("at least one report_periods entry is required")
	}
	for _, p := range c.Periods {
		switch p.Quarter {
		case "Q1", "Q2", "Q3", "Q4":
		default:
			return fmt.Errorf("report_periods: invalid quarter %q", p.Quarter)
		}
		if p.Year < 1990 {
			return fmt.Errorf("report_periods: invalid year %d", p.Year)
		}
	}
	if c.Selection.Workers <= 0 {
		return fmt.Errorf("stock_selection.workers must be positive")
	}
	return nil
}

// EnsureDirs creates the configured directories if missing.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.Paths.CSVDir, c.Paths.LogDir, c.Paths.FilterDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
	}
	return nil
}

// loadEnvFile tries .env next to the config file, then the working directory.
func loadEnvFile(configPath string) {
	paths := []string{
		filepath.Join(filepath.Dir(configPath), ".env"),
		".env",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			return
		}
	}
}
