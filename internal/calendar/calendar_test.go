package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luqian/astock-screener/pkg/config"
	"github.com/luqian/astock-screener/pkg/logger"
	"github.com/luqian/astock-screener/pkg/table"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Log: config.LogConfig{Level: "error", Format: "console"}})
}

// calendarSource serves a fixed trade_cal table regardless of the window.
type calendarSource struct {
	table *table.Table
	err   error
}

func (s *calendarSource) Fetch(context.Context, string, map[string]string) (*table.Table, error) {
	return s.table, s.err
}

func calTable(openDates []string, closedDates []string) *table.Table {
	t := table.New("exchange", "cal_date", "is_open", "pretrade_date")
	for _, d := range openDates {
		t.Append(table.Row{"exchange": "SSE", "cal_date": d, "is_open": "1"})
	}
	for _, d := range closedDates {
		t.Append(table.Row{"exchange": "SSE", "cal_date": d, "is_open": "0"})
	}
	return t
}

func fixedClock(year int, month time.Month, day, hour int) func() time.Time {
	return func() time.Time {
		return time.Date(year, month, day, hour, 0, 0, 0, time.Local)
	}
}

func TestLastTradeDateCutoff(t *testing.T) {
	// 2025-02-07 is a Friday and an open trading day.
	src := &calendarSource{table: calTable(
		[]string{"20250205", "20250206", "20250207"},
		[]string{"20250208", "20250209"},
	)}

	tests := []struct {
		name string
		hour int
		want string
	}{
		{name: "before publish cutoff today does not count", hour: 9, want: "20250206"},
		{name: "at cutoff today counts", hour: 17, want: "20250207"},
		{name: "after cutoff today counts", hour: 20, want: "20250207"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewWithClock(src, testLogger(), fixedClock(2025, time.February, 7, tt.hour))
			assert.Equal(t, tt.want, r.LastTradeDate(context.Background()))
		})
	}
}

func TestLastTradeDateFailure(t *testing.T) {
	r := NewWithClock(&calendarSource{err: errors.New("upstream down")},
		testLogger(), fixedClock(2025, time.February, 7, 18))
	assert.Equal(t, "", r.LastTradeDate(context.Background()))

	r = NewWithClock(&calendarSource{table: calTable(nil, []string{"20250208"})},
		testLogger(), fixedClock(2025, time.February, 7, 18))
	assert.Equal(t, "", r.LastTradeDate(context.Background()))
}

func TestLastNTradeDates(t *testing.T) {
	src := &calendarSource{table: calTable(
		[]string{"20250203", "20250204", "20250205", "20250206", "20250207"},
		[]string{"20250201", "20250202", "20250208"},
	)}
	r := NewWithClock(src, testLogger(), fixedClock(2025, time.February, 7, 18))

	got := r.LastNTradeDates(context.Background(), 3)
	assert.Equal(t, []string{"20250207", "20250206", "20250205"}, got)

	// Before the cutoff today drops out of the window.
	r = NewWithClock(src, testLogger(), fixedClock(2025, time.February, 7, 9))
	got = r.LastNTradeDates(context.Background(), 3)
	assert.Equal(t, []string{"20250206", "20250205", "20250204"}, got)

	// Fewer open days than requested returns what exists.
	got = r.LastNTradeDates(context.Background(), 10)
	assert.Equal(t, []string{"20250206", "20250205", "20250204", "20250203"}, got)
}

func TestFridayTradeDates(t *testing.T) {
	// February 2025 Fridays: 7, 14, 21, 28. The 14th is marked closed.
	src := &calendarSource{table: calTable(
		[]string{"20250203", "20250207", "20250221", "20250228"},
		[]string{"20250214"},
	)}
	r := NewWithClock(src, testLogger(), fixedClock(2025, time.March, 15, 12))

	got := r.FridayTradeDates(context.Background(), 2025, time.February)
	assert.Equal(t, []string{"20250207", "20250221", "20250228"}, got)

	// Future dates are excluded.
	r = NewWithClock(src, testLogger(), fixedClock(2025, time.February, 22, 12))
	got = r.FridayTradeDates(context.Background(), 2025, time.February)
	assert.Equal(t, []string{"20250207", "20250221"}, got)
}

func TestQuarterEndDates(t *testing.T) {
	assert.Equal(t, map[string]string{
		"Q1": "20240331",
		"Q2": "20240630",
		"Q3": "20240930",
		"Q4": "20241231",
	}, QuarterEndDates(2024))

	// Leap years do not affect quarter ends, but check a non-leap year too.
	assert.Equal(t, "20230331", QuarterEndDates(2023)["Q1"])
}

func TestQuarterEnd(t *testing.T) {
	d, err := QuarterEnd(2024, "Q3")
	require.NoError(t, err)
	assert.Equal(t, "20240930", d)

	_, err = QuarterEnd(2024, "Q5")
	assert.Error(t, err)
}

func TestQuarterList(t *testing.T) {
	// Mid-February 2024: Q1 2024 is in progress and excluded, all of
	// 2023 is complete.
	r := NewWithClock(&calendarSource{}, testLogger(), fixedClock(2024, time.February, 15, 12))
	got := r.QuarterList(2023)
	assert.Equal(t, []string{"20230331", "20230630", "20230930", "20231231"}, got)

	// Mid-November: Q1..Q3 of the current year are complete.
	r = NewWithClock(&calendarSource{}, testLogger(), fixedClock(2024, time.November, 10, 12))
	got = r.QuarterList(2024)
	assert.Equal(t, []string{"20240331", "20240630", "20240930"}, got)

	// The first day of a quarter already counts as in progress.
	r = NewWithClock(&calendarSource{}, testLogger(), fixedClock(2024, time.October, 1, 0))
	got = r.QuarterList(2024)
	assert.Equal(t, []string{"20240331", "20240630", "20240930"}, got)
}
