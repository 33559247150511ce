package gateway

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luqian/astock-screener/pkg/config"
	"github.com/luqian/astock-screener/pkg/logger"
	"github.com/luqian/astock-screener/pkg/table"
)

// fakeQuerier records the last call and returns a canned table.
type fakeQuerier struct {
	apiName string
	params  map[string]string
	fields  []string
	result  *table.Table
	err     error
}

func (f *fakeQuerier) Query(_ context.Context, apiName string, params map[string]string, fields []string) (*table.Table, error) {
	f.apiName = apiName
	f.params = params
	f.fields = fields
	return f.result, f.err
}

func testConfig() *config.Config {
	return &config.Config{
		APIs: map[string]config.API{
			"stock_basic": {
				TushareAPI: "stock_basic",
				DateField:  "trade_date",
				Fields: []config.Field{
					{Name: "ts_code", Zh: "股票代码"},
					{Name: "name", Zh: "股票名称"},
				},
			},
			"daily_basic": {
				TushareAPI: "daily_basic",
				DateField:  "trade_date",
				Fields: []config.Field{
					{Name: "ts_code", Zh: "股票代码"},
					{Name: "pe", Zh: "市盈率"},
					{Name: "pe_ttm", Zh: "市盈率TTM"},
					{Name: "circ_mv", Zh: "流通市值"},
				},
			},
		},
	}
}

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Log: config.LogConfig{Level: "error", Format: "console"}})
}

func TestFetchUsesCatalog(t *testing.T) {
	want := table.New("ts_code", "name")
	q := &fakeQuerier{result: want}
	gw := New(testConfig(), q, testLogger())

	got, err := gw.Fetch(context.Background(), "stock_basic", map[string]string{"list_status": "L"})
	require.NoError(t, err)
	assert.Same(t, want, got)

	assert.Equal(t, "stock_basic", q.apiName)
	assert.Equal(t, "L", q.params["list_status"])
	assert.Equal(t, []string{"ts_code", "name"}, q.fields)
}

func TestFetchUnknownAPI(t *testing.T) {
	gw := New(testConfig(), &fakeQuerier{}, testLogger())

	_, err := gw.Fetch(context.Background(), "no_such_dataset", nil)
	require.Error(t, err)

	var unknown *UnknownAPIError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "no_such_dataset", unknown.API)
}

func TestDateField(t *testing.T) {
	gw := New(testConfig(), &fakeQuerier{}, testLogger())

	field, err := gw.DateField("daily_basic")
	require.NoError(t, err)
	assert.Equal(t, "trade_date", field)

	_, err = gw.DateField("missing")
	assert.Error(t, err)
}

func TestFindField(t *testing.T) {
	gw := New(testConfig(), &fakeQuerier{}, testLogger())

	ref, ok := gw.FindField("流通市值")
	require.True(t, ok)
	assert.Equal(t, FieldRef{API: "daily_basic", Field: "circ_mv", Zh: "流通市值"}, ref)

	// Duplicated display names resolve to the first dataset in sorted order.
	ref, ok = gw.FindField("股票代码")
	require.True(t, ok)
	assert.Equal(t, "daily_basic", ref.API)

	_, ok = gw.FindField("不存在的字段")
	assert.False(t, ok)
}

func TestFindAllFields(t *testing.T) {
	gw := New(testConfig(), &fakeQuerier{}, testLogger())

	refs := gw.FindAllFields("股票代码")
	require.Len(t, refs, 2)
	assert.Equal(t, "daily_basic", refs[0].API)
	assert.Equal(t, "stock_basic", refs[1].API)

	assert.Empty(t, gw.FindAllFields("不存在的字段"))
}

func TestFuzzyFindFields(t *testing.T) {
	gw := New(testConfig(), &fakeQuerier{}, testLogger())

	refs := gw.FuzzyFindFields("市盈率")
	require.Len(t, refs, 2)
	assert.Equal(t, "pe", refs[0].Field)
	assert.Equal(t, "pe_ttm", refs[1].Field)

	assert.Empty(t, gw.FuzzyFindFields("现金流"))
}
