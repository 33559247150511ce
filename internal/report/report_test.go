package report

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/luqian/astock-screener/pkg/table"
)

func shortList(rows ...[2]string) *table.Table {
	t := table.New("ts_code", "name")
	for _, r := range rows {
		t.Append(table.Row{"ts_code": r[0], "name": r[1]})
	}
	return t
}

func TestMergeCSV(t *testing.T) {
	dir := t.TempDir()
	week1 := filepath.Join(dir, "week1.csv")
	week2 := filepath.Join(dir, "week2.csv")
	out := filepath.Join(dir, "merged.csv")

	require.NoError(t, shortList([2]string{"600519.SH", "贵州茅台"}).WriteCSV(week1))
	require.NoError(t, shortList(
		[2]string{"601318.SH", "中国平安"},
		[2]string{"000001.SZ", "平安银行"},
	).WriteCSV(week2))

	merged, err := MergeCSV([]string{week1, week2}, out)
	require.NoError(t, err)
	assert.Equal(t, 3, merged.Len())

	// The merged file round-trips with all rows in file order.
	reread, err := table.ReadCSV(out)
	require.NoError(t, err)
	require.Equal(t, 3, reread.Len())
	assert.Equal(t, "600519.SH", reread.Rows[0]["ts_code"])
	assert.Equal(t, "000001.SZ", reread.Rows[2]["ts_code"])
}

func TestMergeCSVNoInputs(t *testing.T) {
	_, err := MergeCSV(nil, filepath.Join(t.TempDir(), "out.csv"))
	assert.Error(t, err)
}

func TestSaveExcel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "picks.xlsx")

	tab := table.New("ts_code", "name", "rank")
	tab.Append(table.Row{"ts_code": "600519.SH", "name": "贵州茅台", "rank": "周成交额排名 1"})

	require.NoError(t, SaveExcel(tab, path, "2025-02"))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"2025-02"}, f.GetSheetList())

	// Mapped headers render in Chinese, unmapped keep the wire name.
	for cell, want := range map[string]string{
		"A1": "股票代码",
		"B1": "股票名称",
		"C1": "排名方式",
		"A2": "600519.SH",
		"B2": "贵州茅台",
		"C2": "周成交额排名 1",
	} {
		got, err := f.GetCellValue("2025-02", cell)
		require.NoError(t, err)
		assert.Equal(t, want, got, cell)
	}

	// CJK content widens its column beyond the header baseline.
	width, err := f.GetColWidth("2025-02", "C")
	require.NoError(t, err)
	assert.Greater(t, width, 8.0)
}

func TestSaveExcelUnmappedColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw.xlsx")

	tab := table.New("custom_col")
	tab.Append(table.Row{"custom_col": "v"})
	require.NoError(t, SaveExcel(tab, path, "Sheet1"))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetCellValue("Sheet1", "A1")
	require.NoError(t, err)
	assert.Equal(t, "custom_col", got)
}

func TestDisplayWidth(t *testing.T) {
	assert.Equal(t, 7, displayWidth("ts_code"))
	assert.Equal(t, 8, displayWidth("股票代码"))
	assert.Equal(t, 8, displayWidth("周排名 1"), "mixed CJK and ascii")
	assert.Equal(t, 0, displayWidth(""))
}
