package memtable

import (
	"fmt"
	"strings"

	"github.com/domonda/go-retable"
)

// rowsView exposes rows as a retable.View of raw column values.
type rowsView struct {
	title   string
	columns []Column
	rows    []Row
}

var _ retable.View = (*rowsView)(nil)

func (v *rowsView) Title() string { return v.title }

func (v *rowsView) Columns() []string {
	ids := make([]string, len(v.columns))
	for i, column := range v.columns {
		ids[i] = column.ID
	}
	return ids
}

func (v *rowsView) NumRows() int { return len(v.rows) }

func (v *rowsView) Cell(row, col int) any {
	if row < 0 || col < 0 || row >= len(v.rows) || col >= len(v.columns) {
		return nil
	}
	return v.columns[col].Value(v.rows[row])
}

// RowModel returns the current page as a retable.View of raw values, sorted
// and sliced according to the instance state.
func (t *Table) RowModel() retable.View {
	options := t.Options()
	p := t.Pagination()
	return &retable.FilteredView{
		Source: &rowsView{
			title:   options.Config.Title,
			columns: options.Config.Columns,
			rows:    t.sortedRows(),
		},
		RowOffset: p.PageIndex * p.PageSize,
		RowLimit:  p.PageSize,
	}
}

// HeaderProps are passed to header content.
type HeaderProps struct {
	Column string
	Index  int
	Sorted string
}

// PropsMap exposes the props to expressions as column, index and sorted.
func (p HeaderProps) PropsMap() map[string]any {
	return map[string]any{"column": p.Column, "index": p.Index, "sorted": p.Sorted}
}

// CellProps are passed to cell content.
type CellProps struct {
	Column string
	Row    Row
	Value  any
}

// PropsMap exposes the props to expressions as column, row and value.
func (p CellProps) PropsMap() map[string]any {
	return map[string]any{"column": p.Column, "row": map[string]any(p.Row), "value": p.Value}
}

// HeaderContent returns the header content of column col and its props.
func (t *Table) HeaderContent(col int) (content any, props any) {
	options := t.Options()
	if col < 0 || col >= len(options.Config.Columns) {
		return nil, nil
	}
	column := options.Config.Columns[col]
	hp := HeaderProps{Column: column.ID, Index: col}
	for _, s := range Sorting(options.State) {
		if s.ID == column.ID {
			hp.Sorted = "asc"
			if s.Desc {
				hp.Sorted = "desc"
			}
		}
	}
	if column.Header == nil {
		return column.ID, hp
	}
	return column.Header, hp
}

// CellContent returns the content of the cell at row (within the current
// page) and col, and its props. Without Cell content the column renders its
// value, including zero values.
func (t *Table) CellContent(row, col int) (content any, props any) {
	options := t.Options()
	rows := t.pageRows()
	if row < 0 || row >= len(rows) || col < 0 || col >= len(options.Config.Columns) {
		return nil, nil
	}
	column := options.Config.Columns[col]
	cp := CellProps{Column: column.ID, Row: rows[row], Value: column.Value(rows[row])}
	if column.Cell == nil {
		return renderValue, cp
	}
	return column.Cell, cp
}

func renderValue(props CellProps) any {
	return props.Value
}

// compareValues orders nil first, then numbers numerically, then strings,
// then anything else by its formatted text.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if x, ok := toFloat(a); ok {
		if y, ok := toFloat(b); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			default:
				return 0
			}
		}
	}
	if x, ok := a.(string); ok {
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
