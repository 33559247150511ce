// Package table implements the tabular value type shared by every dataset
// and filter stage: an ordered column list over rows of string cells,
// round-tripping losslessly through CSV.
package table

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// utf8BOM is prepended on write so spreadsheet tools open the files
// with the right encoding (the upstream datasets carry Chinese text).
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Row maps column name to cell value.
type Row map[string]string

// Float parses the named cell as a float64.
func (r Row) Float(col string) (float64, error) {
	v, ok := r[col]
	if !ok || v == "" {
		return 0, fmt.Errorf("column %q: empty value", col)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("column %q: %w", col, err)
	}
	return f, nil
}

// Clone returns a copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Table is an ordered sequence of rows with a fixed column order.
type Table struct {
	Columns []string
	Rows    []Row
}

// New creates an empty table with the given column order.
func New(columns ...string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool {
	return t == nil || len(t.Rows) == 0
}

// Len returns the row count.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Append adds a row.
func (t *Table) Append(r Row) {
	t.Rows = append(t.Rows, r)
}

// HasColumn reports whether the column exists.
func (t *Table) HasColumn(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// Select returns a new table restricted to the given columns, in order.
func (t *Table) Select(columns ...string) (*Table, error) {
	for _, c := range columns {
		if !t.HasColumn(c) {
			return nil, fmt.Errorf("select: unknown column %q", c)
		}
	}
	out := New(columns...)
	for _, r := range t.Rows {
		nr := make(Row, len(columns))
		for _, c := range columns {
			nr[c] = r[c]
		}
		out.Append(nr)
	}
	return out, nil
}

// Filter returns a new table with the rows for which keep returns true.
// Column order is preserved.
func (t *Table) Filter(keep func(Row) bool) *Table {
	out := New(t.Columns...)
	for _, r := range t.Rows {
		if keep(r) {
			out.Append(r)
		}
	}
	return out
}

// Head returns the first n rows (all rows if n exceeds the length).
func (t *Table) Head(n int) *Table {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	out := New(t.Columns...)
	out.Rows = append(out.Rows, t.Rows[:n]...)
	return out
}

// KeySet returns the set of values in the given column.
func (t *Table) KeySet(col string) map[string]struct{} {
	set := make(map[string]struct{}, len(t.Rows))
	for _, r := range t.Rows {
		set[r[col]] = struct{}{}
	}
	return set
}

// index builds a first-occurrence lookup from key value to row.
func (t *Table) index(key string) map[string]Row {
	idx := make(map[string]Row, len(t.Rows))
	for _, r := range t.Rows {
		if _, seen := idx[r[key]]; !seen {
			idx[r[key]] = r
		}
	}
	return idx
}

// joinColumns works out the output column order for a join. Non-key
// columns present on both sides are suffixed _x (left) and _y (right).
func joinColumns(left, right *Table, key string) (cols []string, leftRename, rightRename map[string]string) {
	rightSet := make(map[string]struct{}, len(right.Columns))
	for _, c := range right.Columns {
		rightSet[c] = struct{}{}
	}
	leftRename = make(map[string]string)
	rightRename = make(map[string]string)

	for _, c := range left.Columns {
		name := c
		if _, clash := rightSet[c]; clash && c != key {
			name = c + "_x"
			leftRename[c] = name
		}
		cols = append(cols, name)
	}
	leftSet := make(map[string]struct{}, len(left.Columns))
	for _, c := range left.Columns {
		leftSet[c] = struct{}{}
	}
	for _, c := range right.Columns {
		if c == key {
			continue
		}
		name := c
		if _, clash := leftSet[c]; clash {
			name = c + "_y"
			rightRename[c] = name
		}
		cols = append(cols, name)
	}
	return cols, leftRename, rightRename
}

func joinRow(left, rightRow Row, key string, leftRename, rightRename map[string]string, rightCols []string) Row {
	out := make(Row)
	for k, v := range left {
		if nk, ok := leftRename[k]; ok {
			out[nk] = v
		} else {
			out[k] = v
		}
	}
	for _, c := range rightCols {
		if c == key {
			continue
		}
		name := c
		if nk, ok := rightRename[c]; ok {
			name = nk
		}
		if rightRow != nil {
			out[name] = rightRow[c]
		} else {
			out[name] = ""
		}
	}
	return out
}

// LeftJoin joins on key, keeping every left row; unmatched right-side
// cells are empty strings.
func (t *Table) LeftJoin(right *Table, key string) *Table {
	cols, lr, rr := joinColumns(t, right, key)
	idx := right.index(key)
	out := &Table{Columns: cols}
	for _, r := range t.Rows {
		out.Append(joinRow(r, idx[r[key]], key, lr, rr, right.Columns))
	}
	return out
}

// InnerJoin joins on key, keeping only rows present on both sides.
func (t *Table) InnerJoin(right *Table, key string) *Table {
	cols, lr, rr := joinColumns(t, right, key)
	idx := right.index(key)
	out := &Table{Columns: cols}
	for _, r := range t.Rows {
		rightRow, ok := idx[r[key]]
		if !ok {
			continue
		}
		out.Append(joinRow(r, rightRow, key, lr, rr, right.Columns))
	}
	return out
}

// SortFloatDesc returns a new table sorted descending by the numeric value
// of col. Rows whose cell does not parse sort last. The sort is stable.
func (t *Table) SortFloatDesc(col string) *Table {
	type keyed struct {
		row Row
		val float64
		ok  bool
	}
	keyedRows := make([]keyed, 0, len(t.Rows))
	for _, r := range t.Rows {
		v, err := r.Float(col)
		keyedRows = append(keyedRows, keyed{row: r, val: v, ok: err == nil})
	}
	sort.SliceStable(keyedRows, func(i, j int) bool {
		a, b := keyedRows[i], keyedRows[j]
		if a.ok != b.ok {
			return a.ok
		}
		return a.val > b.val
	})
	out := New(t.Columns...)
	for _, k := range keyedRows {
		out.Append(k.row)
	}
	return out
}

// RankMinDesc computes a descending rank over the numeric column using the
// min convention: equal values share the smallest rank of the group, so
// values [100, 100, 50] rank [1, 1, 3]. The result is positionally aligned
// with t.Rows. Unparseable cells rank 0.
func (t *Table) RankMinDesc(col string) []int {
	vals := make([]float64, len(t.Rows))
	parsed := make([]bool, len(t.Rows))
	for i, r := range t.Rows {
		if v, err := r.Float(col); err == nil {
			vals[i] = v
			parsed[i] = true
		}
	}
	ranks := make([]int, len(t.Rows))
	for i := range t.Rows {
		if !parsed[i] {
			continue
		}
		rank := 1
		for j := range t.Rows {
			if parsed[j] && vals[j] > vals[i] {
				rank++
			}
		}
		ranks[i] = rank
	}
	return ranks
}

// AddColumn appends a column, populating each row via fn.
func (t *Table) AddColumn(name string, fn func(i int, r Row) string) {
	t.Columns = append(t.Columns, name)
	for i, r := range t.Rows {
		r[name] = fn(i, r)
	}
}

// WriteCSV persists the table as a UTF-8 BOM-signed CSV file. The write is
// atomic: a temp file in the target directory is renamed into place, so a
// partially written output is never observable at path.
func (t *Table) WriteCSV(path string) error {
	var buf bytes.Buffer
	buf.Write(utf8BOM)
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	record := make([]string, len(t.Columns))
	for _, r := range t.Rows {
		for i, c := range t.Columns {
			record[i] = r[c]
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// ReadCSV loads a table from a CSV file, tolerating a UTF-8 BOM.
func ReadCSV(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return New(), nil
	}
	t := New(records[0]...)
	for _, rec := range records[1:] {
		row := make(Row, len(t.Columns))
		for i, c := range t.Columns {
			if i < len(rec) {
				row[c] = rec[i]
			}
		}
		t.Append(row)
	}
	return t, nil
}
