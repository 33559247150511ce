package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/luqian/astock-screener/internal/cache"
	"github.com/luqian/astock-screener/internal/calendar"
	"github.com/luqian/astock-screener/internal/dataset"
	"github.com/luqian/astock-screener/internal/gateway"
	"github.com/luqian/astock-screener/internal/pipeline"
	"github.com/luqian/astock-screener/internal/tushare"
	"github.com/luqian/astock-screener/pkg/config"
	"github.com/luqian/astock-screener/pkg/logger"
)

var errNoTradeDate = errors.New("could not resolve the last trading date")

// app bundles the wired components every command works with.
type app struct {
	cfg  *config.Config
	log  *logger.Logger
	gw   *gateway.Gateway
	data *dataset.Service
	cal  *calendar.Resolver
	pipe *pipeline.Pipeline
}

// newApp loads config and wires the component graph. logName selects the
// per-command log file under the log directory.
func newApp(logName string) (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}
	log, err := logger.NewWithFile(cfg, logName)
	if err != nil {
		return nil, err
	}

	client := tushare.NewClient(cfg.Tushare, log)
	gw := gateway.New(cfg, client, log)
	store := cache.New(cfg.Paths.CSVDir, log)
	data := dataset.New(gw, store, log)

	return &app{
		cfg:  cfg,
		log:  log,
		gw:   gw,
		data: data,
		cal:  calendar.New(gw, log),
		pipe: pipeline.New(data, cfg, log),
	}, nil
}

// signalContext returns a context cancelled on Ctrl+C.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// finish maps a pipeline result to the process contract: idempotent
// refusal and normal completion both exit 0, a manual interrupt logs and
// exits 1, anything else propagates as a command error.
func (a *app) finish(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if pipeline.IsOutputExists(err) {
		a.log.WithError(err).Warn("output already exists, nothing to do")
		return nil
	}
	if errors.Is(err, context.Canceled) || ctx.Err() != nil {
		a.log.Error("manual interrupt received, exiting")
		os.Exit(1)
	}
	return err
}

// resolveDate returns the --date flag when set, otherwise the most recent
// trading date from the exchange calendar.
func (a *app) resolveDate(ctx context.Context, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	date := a.cal.LastTradeDate(ctx)
	if date == "" {
		return "", errNoTradeDate
	}
	return date, nil
}
