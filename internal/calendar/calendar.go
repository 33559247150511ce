// Package calendar resolves trading dates against the exchange calendar.
package calendar

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/luqian/astock-screener/pkg/logger"
	"github.com/luqian/astock-screener/pkg/table"
)

const (
	// DateLayout is the 8-digit date format used by every dataset key.
	DateLayout = "20060102"

	// Daily data for a trading day is published in the evening; before
	// this local hour the current day does not count as the latest
	// trading date even when the exchange was open.
	sameDayCutoffHour = 17
)

// Source provides the trading-calendar dataset.
type Source interface {
	Fetch(ctx context.Context, apiName string, params map[string]string) (*table.Table, error)
}

// Resolver computes trading dates and reporting periods.
type Resolver struct {
	src    Source
	now    func() time.Time
	logger *logger.Logger
}

// New creates a Resolver using the local wall clock.
func New(src Source, log *logger.Logger) *Resolver {
	return &Resolver{src: src, now: time.Now, logger: log}
}

// NewWithClock creates a Resolver with an injected clock.
func NewWithClock(src Source, log *logger.Logger, now func() time.Time) *Resolver {
	return &Resolver{src: src, now: now, logger: log}
}

// openDates extracts the open trading days from the calendar window
// [start, end], sorted descending.
func (r *Resolver) openDates(ctx context.Context, start, end time.Time) ([]string, error) {
	t, err := r.src.Fetch(ctx, "trade_cal", map[string]string{
		"start_date": start.Format(DateLayout),
		"end_date":   end.Format(DateLayout),
	})
	if err != nil {
		return nil, err
	}
	var dates []string
	for _, row := range t.Rows {
		if row["is_open"] == "1" {
			dates = append(dates, row["cal_date"])
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates, nil
}

// LastTradeDate returns the most recent trading date. The current day only
// counts once the daily data is published (17:00 local). Returns "" when
// the calendar yields nothing; the failure is logged, not raised.
func (r *Resolver) LastTradeDate(ctx context.Context) string {
	now := r.now()
	today := now.Format(DateLayout)

	dates, err := r.openDates(ctx, now.AddDate(0, 0, -30), now)
	if err != nil {
		r.logger.WithError(err).Error("failed to resolve last trading date")
		return ""
	}
	if len(dates) == 0 {
		r.logger.Info("no trading dates found in calendar window")
		return ""
	}

	if dates[0] == today && now.Hour() < sameDayCutoffHour {
		dates = dates[1:]
	}
	if len(dates) == 0 {
		r.logger.Info("no trading dates found in calendar window")
		return ""
	}
	return dates[0]
}

// LastNTradeDates returns the n most recent trading dates at or before
// today, descending. May return fewer than n when the lookback window
// (2n calendar days) holds fewer open days.
func (r *Resolver) LastNTradeDates(ctx context.Context, n int) []string {
	now := r.now()
	today := now.Format(DateLayout)

	dates, err := r.openDates(ctx, now.AddDate(0, 0, -2*n), now)
	if err != nil {
		r.logger.WithError(err).Errorf("failed to resolve last %d trading dates", n)
		return nil
	}

	filtered := dates[:0]
	for _, d := range dates {
		if d > today {
			continue
		}
		if d == today && now.Hour() < sameDayCutoffHour {
			continue
		}
		filtered = append(filtered, d)
	}
	if len(filtered) > n {
		filtered = filtered[:n]
	}
	if len(filtered) == 0 {
		r.logger.Info("no trading dates found in calendar window")
	}
	return filtered
}

// FridayTradeDates returns the trading days of the given month that fall
// on a Friday, excluding dates after today. Used by the weekly batch mode.
func (r *Resolver) FridayTradeDates(ctx context.Context, year int, month time.Month) []string {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)
	end := start.AddDate(0, 1, -1)

	dates, err := r.openDates(ctx, start, end)
	if err != nil {
		r.logger.WithError(err).Errorf("failed to resolve trading dates for %d-%02d", year, month)
		return nil
	}

	today := r.now().Format(DateLayout)
	var fridays []string
	for _, d := range dates {
		if d > today {
			continue
		}
		day, err := time.ParseInLocation(DateLayout, d, time.Local)
		if err != nil {
			continue
		}
		if day.Weekday() == time.Friday {
			fridays = append(fridays, d)
		}
	}
	sort.Strings(fridays)
	return fridays
}

// QuarterEndDates returns the four fiscal-quarter end dates of the year,
// keyed Q1..Q4. Pure calendar arithmetic, no API call.
func QuarterEndDates(year int) map[string]string {
	ends := make(map[string]string, 4)
	for i, month := range []time.Month{time.March, time.June, time.September, time.December} {
		// Day 0 of the following month normalizes to the month's last day.
		last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
		ends[fmt.Sprintf("Q%d", i+1)] = last.Format(DateLayout)
	}
	return ends
}

// QuarterEnd returns the end date for one quarter key (Q1..Q4).
func QuarterEnd(year int, quarter string) (string, error) {
	d, ok := QuarterEndDates(year)[quarter]
	if !ok {
		return "", fmt.Errorf("invalid quarter %q", quarter)
	}
	return d, nil
}

// QuarterList enumerates quarter-end dates from startYear up to now,
// excluding the quarter currently in progress.
func (r *Resolver) QuarterList(startYear int) []string {
	now := r.now()
	currentYear := now.Year()
	currentQuarter := fmt.Sprintf("Q%d", (int(now.Month())-1)/3+1)

	var quarters []string
	for year := startYear; year <= currentYear; year++ {
		ends := QuarterEndDates(year)
		for _, q := range []string{"Q1", "Q2", "Q3", "Q4"} {
			if year == currentYear && q == currentQuarter {
				return quarters
			}
			quarters = append(quarters, ends[q])
		}
	}
	return quarters
}
