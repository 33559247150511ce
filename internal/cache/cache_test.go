package cache

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luqian/astock-screener/pkg/config"
	"github.com/luqian/astock-screener/pkg/logger"
	"github.com/luqian/astock-screener/pkg/table"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Log: config.LogConfig{Level: "error", Format: "console"}})
}

func sampleTable() *table.Table {
	t := table.New("ts_code", "name")
	t.Append(table.Row{"ts_code": "000001.SZ", "name": "平安银行"})
	return t
}

func TestLoadOrFetchPersistsAndHits(t *testing.T) {
	store := New(t.TempDir(), testLogger())
	ctx := context.Background()

	calls := 0
	fetch := func(context.Context, string) (*table.Table, error) {
		calls++
		return sampleTable(), nil
	}

	got, err := store.LoadOrFetch(ctx, "tushare_stock_basic", "20250207", fetch)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Len())
	assert.Equal(t, 1, calls)

	info, err := os.Stat(store.Path("tushare_stock_basic", "20250207"))
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	// Second call is served from the file, not the fetcher.
	got, err = store.LoadOrFetch(ctx, "tushare_stock_basic", "20250207", fetch)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Len())
	assert.Equal(t, "平安银行", got.Rows[0]["name"])
	assert.Equal(t, 1, calls)
}

func TestLoadOrFetchEmptyNotPersisted(t *testing.T) {
	store := New(t.TempDir(), testLogger())
	ctx := context.Background()

	calls := 0
	fetch := func(context.Context, string) (*table.Table, error) {
		calls++
		return table.New("ts_code"), nil
	}

	got, err := store.LoadOrFetch(ctx, "tushare_fina_indicator_vip", "20250331", fetch)
	require.NoError(t, err)
	assert.True(t, got.Empty())
	assert.Equal(t, 1, calls)

	_, err = os.Stat(store.Path("tushare_fina_indicator_vip", "20250331"))
	assert.True(t, os.IsNotExist(err), "empty results must not be persisted")

	// Within the same run the empty result is memoised, not refetched.
	_, err = store.LoadOrFetch(ctx, "tushare_fina_indicator_vip", "20250331", fetch)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	// A fresh run (new Store) retries, because nothing is on disk.
	store2 := New(store.dir, testLogger())
	_, err = store2.LoadOrFetch(ctx, "tushare_fina_indicator_vip", "20250331", fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestLoadOrFetchError(t *testing.T) {
	store := New(t.TempDir(), testLogger())

	wantErr := errors.New("upstream down")
	calls := 0
	fetch := func(context.Context, string) (*table.Table, error) {
		calls++
		return nil, wantErr
	}

	_, err := store.LoadOrFetch(context.Background(), "tushare_daily", "20250207", fetch)
	require.Error(t, err)
	assert.ErrorIs(t, err, wantErr)

	// Errors are not memoised: the same run may retry.
	_, err = store.LoadOrFetch(context.Background(), "tushare_daily", "20250207", fetch)
	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestLoadOrFetchDistinctScopes(t *testing.T) {
	store := New(t.TempDir(), testLogger())
	ctx := context.Background()

	calls := 0
	fetch := func(context.Context, string) (*table.Table, error) {
		calls++
		return sampleTable(), nil
	}

	_, err := store.LoadOrFetch(ctx, "tushare_daily", "20250206", fetch)
	require.NoError(t, err)
	_, err = store.LoadOrFetch(ctx, "tushare_daily", "20250207", fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "each trading date is its own cache key")
}

func TestPath(t *testing.T) {
	store := New("/data/csv", testLogger())
	assert.Equal(t, "/data/csv/tushare_weekly_20250207.csv", store.Path("tushare_weekly", "20250207"))
}
