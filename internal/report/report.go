// Package report merges stage-4 short lists and exports them as styled
// Excel workbooks for human review.
package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/luqian/astock-screener/pkg/table"
)

// headerZh renames the short-list columns to their Chinese display names
// on export. Columns without a mapping keep their wire name.
var headerZh = map[string]string{
	"ts_code":      "股票代码",
	"name":         "股票名称",
	"trade_date_x": "交易日期",
	"rank":         "排名方式",
	"area":         "区域",
	"industry":     "行业",
	"market":       "板块",
	"pe":           "市盈率",
}

const (
	colWidthMargin = 2
	colWidthMax    = 50
)

// MergeCSV concatenates stage-output CSV files (one header row) into a
// single table and persists it.
func MergeCSV(paths []string, outPath string) (*table.Table, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no files to merge")
	}
	merged, err := table.ReadCSV(paths[0])
	if err != nil {
		return nil, err
	}
	for _, p := range paths[1:] {
		t, err := table.ReadCSV(p)
		if err != nil {
			return nil, err
		}
		merged.Rows = append(merged.Rows, t.Rows...)
	}
	if err := merged.WriteCSV(outPath); err != nil {
		return nil, err
	}
	return merged, nil
}

// SaveExcel writes the table to an xlsx workbook with Chinese headers and
// column widths fitted to the content.
func SaveExcel(t *table.Table, path, sheet string) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return fmt.Errorf("rename sheet: %w", err)
		}
	}

	maxWidths := make([]int, len(t.Columns))
	for i, col := range t.Columns {
		header := col
		if zh, ok := headerZh[col]; ok {
			header = zh
		}
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		maxWidths[i] = displayWidth(header)
	}

	for rowIdx, r := range t.Rows {
		for colIdx, col := range t.Columns {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, r[col]); err != nil {
				return fmt.Errorf("write cell %s: %w", cell, err)
			}
			if w := displayWidth(r[col]); w > maxWidths[colIdx] {
				maxWidths[colIdx] = w
			}
		}
	}

	for i, w := range maxWidths {
		colName, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		width := w + colWidthMargin
		if width > colWidthMax {
			width = colWidthMax
		}
		if err := f.SetColWidth(sheet, colName, colName, float64(width)); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

// displayWidth counts ASCII runes as 1 and wide (CJK) runes as 2, the
// convention spreadsheet column sizing expects.
func displayWidth(s string) int {
	w := 0
	for _, r := range s {
		if r > 127 {
			w += 2
		} else {
			w++
		}
	}
	return w
}
