// Package dataset layers the named upstream datasets over the gateway and
// the dated file cache.
package dataset

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/luqian/astock-screener/internal/cache"
	"github.com/luqian/astock-screener/internal/calendar"
	"github.com/luqian/astock-screener/internal/gateway"
	"github.com/luqian/astock-screener/pkg/logger"
	"github.com/luqian/astock-screener/pkg/table"
)

// Cache file prefixes, one per logical dataset.
const (
	NameStockBasic    = "tushare_stock_basic"
	NameDaily         = "tushare_daily"
	NameDailyBasic    = "tushare_daily_basic"
	NameWeekly        = "tushare_weekly"
	NameFinaIndicator = "tushare_fina_indicator_vip"
)

const (
	// Bulk reporting-period fetches get a small in-stage retry budget on
	// top of the cache's natural next-run retry.
	periodFetchAttempts = 3
	periodFetchBackoff  = 5 * time.Second
)

// Service fetches named datasets through the cache.
type Service struct {
	gw      *gateway.Gateway
	cache   *cache.Store
	logger  *logger.Logger
	backoff time.Duration
}

// New creates a dataset Service.
func New(gw *gateway.Gateway, store *cache.Store, log *logger.Logger) *Service {
	return &Service{gw: gw, cache: store, logger: log, backoff: periodFetchBackoff}
}

// Gateway exposes the underlying gateway for catalog lookups.
func (s *Service) Gateway() *gateway.Gateway {
	return s.gw
}

// StockBasic returns the listing snapshot, cached under the trading date.
// The upstream call itself is not date-scoped; the date keys the cache so
// each trading day gets its own snapshot.
func (s *Service) StockBasic(ctx context.Context, tradeDate string) (*table.Table, error) {
	return s.cache.LoadOrFetch(ctx, NameStockBasic, tradeDate, func(ctx context.Context, _ string) (*table.Table, error) {
		return s.gw.Fetch(ctx, "stock_basic", map[string]string{
			"exchange":    "",
			"list_status": "L",
		})
	})
}

// Daily returns the daily bar dataset for one trading date.
func (s *Service) Daily(ctx context.Context, tradeDate string) (*table.Table, error) {
	return s.dated(ctx, NameDaily, "daily", tradeDate)
}

// DailyBasic returns the per-ticker daily metrics for one trading date.
func (s *Service) DailyBasic(ctx context.Context, tradeDate string) (*table.Table, error) {
	return s.dated(ctx, NameDailyBasic, "daily_basic", tradeDate)
}

// Weekly returns the weekly bars keyed by the week-ending trading date.
func (s *Service) Weekly(ctx context.Context, tradeDate string) (*table.Table, error) {
	return s.dated(ctx, NameWeekly, "weekly", tradeDate)
}

func (s *Service) dated(ctx context.Context, dataset, apiName, tradeDate string) (*table.Table, error) {
	return s.cache.LoadOrFetch(ctx, dataset, tradeDate, func(ctx context.Context, scope string) (*table.Table, error) {
		return s.gw.Fetch(ctx, apiName, map[string]string{"trade_date": scope})
	})
}

// FinaIndicatorByPeriod returns the financial indicators for every ticker
// in one reporting period. One bulk query (empty ts_code) covers all
// tickers. The fetch retries up to 3 times with a 5s backoff; after that
// the period is reported unavailable.
func (s *Service) FinaIndicatorByPeriod(ctx context.Context, period string) (*table.Table, error) {
	return s.cache.LoadOrFetch(ctx, NameFinaIndicator, period, func(ctx context.Context, scope string) (*table.Table, error) {
		var lastErr error
		for attempt := 1; attempt <= periodFetchAttempts; attempt++ {
			t, err := s.gw.Fetch(ctx, "fina_indicator_vip", map[string]string{
				"ts_code":     "",
				"period":      scope,
				"update_flag": "1",
			})
			if err == nil && !t.Empty() {
				return t, nil
			}
			if err != nil {
				lastErr = err
				s.logger.WithError(err).Warnf("fina_indicator fetch failed for %s, attempt %d/%d", scope, attempt, periodFetchAttempts)
			} else {
				lastErr = fmt.Errorf("no rows for period %s", scope)
				s.logger.Warnf("fina_indicator returned no rows for %s, attempt %d/%d", scope, attempt, periodFetchAttempts)
			}
			if attempt < periodFetchAttempts {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(s.backoff):
				}
			}
		}
		return nil, fmt.Errorf("fina_indicator unavailable for period %s after %d attempts: %w", scope, periodFetchAttempts, lastErr)
	})
}

// StockFactor returns technical-factor rows for one ticker over a date
// window, sorted ascending by trade date. Not cached: the window is
// ticker- and call-specific.
func (s *Service) StockFactor(ctx context.Context, tsCode, startDate, endDate string) (*table.Table, error) {
	t, err := s.gw.Fetch(ctx, "stk_factor_pro", map[string]string{
		"ts_code":    tsCode,
		"start_date": startDate,
		"end_date":   endDate,
	})
	if err != nil {
		return nil, err
	}
	return sortByTradeDate(t), nil
}

// StockFactorWindow widens the lookback window until at least minRows of
// factor data come back, within a small attempt budget.
func (s *Service) StockFactorWindow(ctx context.Context, tsCode string, minRows, maxAttempts int) (*table.Table, error) {
	now := time.Now()
	end := now.Format(calendar.DateLayout)
	start := now.AddDate(0, 0, -2*minRows)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		t, err := s.StockFactor(ctx, tsCode, start.Format(calendar.DateLayout), end)
		if err != nil {
			return nil, err
		}
		if t.Len() >= minRows {
			return t, nil
		}
		start = start.AddDate(0, 0, -minRows)
		s.logger.Debugf("%s: only %d factor rows, widening window to %s", tsCode, t.Len(), start.Format(calendar.DateLayout))
	}
	return nil, fmt.Errorf("%s: fewer than %d factor rows after %d attempts", tsCode, minRows, maxAttempts)
}

// ColumnByName resolves a display name through the field catalog and
// returns that single column of the dataset for the given date, cache
// first. Used by ad-hoc catalog queries.
func (s *Service) ColumnByName(ctx context.Context, zhName, date string) (*table.Table, error) {
	ref, ok := s.gw.FindField(zhName)
	if !ok {
		return nil, fmt.Errorf("no catalog field named %q", zhName)
	}
	dateField, err := s.gw.DateField(ref.API)
	if err != nil {
		return nil, err
	}
	t, err := s.cache.LoadOrFetch(ctx, "tushare_"+ref.API, date, func(ctx context.Context, scope string) (*table.Table, error) {
		return s.gw.Fetch(ctx, ref.API, map[string]string{dateField: scope})
	})
	if err != nil {
		return nil, err
	}
	if !t.HasColumn(ref.Field) {
		return t, nil
	}
	return t.Select(ref.Field)
}

// WithBackoff overrides the retry backoff (tests).
func (s *Service) WithBackoff(d time.Duration) *Service {
	s.backoff = d
	return s
}

func sortByTradeDate(t *table.Table) *table.Table {
	out := table.New(t.Columns...)
	out.Rows = append(out.Rows, t.Rows...)
	sort.SliceStable(out.Rows, func(i, j int) bool {
		return out.Rows[i]["trade_date"] < out.Rows[j]["trade_date"]
	})
	return out
}
