// Package memtable is a small in-memory table engine implementing
// reactable.Handle and reactable.Instance. It keeps its algorithms minimal
// (stable multi-column sorting and page slicing) and exists to drive
// bindings end to end and to feed htmlview.
package memtable

import (
	"errors"
	"fmt"
	"strings"
)

// Row is one record, keyed by column ID.
type Row map[string]any

// Column describes one table column.
//
// Header and Cell hold renderable content: a string or other plain value, a
// component, a content function or a reactable.Expression. A nil Cell renders
// the accessed value; a nil Header renders the column ID.
type Column struct {
	ID       string
	Header   any
	Cell     any
	Accessor func(Row) any
}

// Value returns the column value of row.
func (c Column) Value(row Row) any {
	if c.Accessor != nil {
		return c.Accessor(row)
	}
	return row[c.ID]
}

// Config is the engine specific part of reactable.Options.
type Config struct {
	Title    string
	Columns  []Column
	Data     []Row
	PageSize int
}

// DefaultPageSize applies when Config.PageSize is zero.
const DefaultPageSize = 10

var (
	ErrColumnID      = errors.New("memtable: column id is required")
	ErrDuplicateID   = errors.New("memtable: duplicate column id")
	ErrPageSize      = errors.New("memtable: page size must not be negative")
	ErrUnknownColumn = errors.New("memtable: unknown column")
)

// Validate checks column IDs and the page size.
func (c Config) Validate() error {
	if c.PageSize < 0 {
		return fmt.Errorf("%w: %d", ErrPageSize, c.PageSize)
	}
	seen := make(map[string]struct{}, len(c.Columns))
	for i, column := range c.Columns {
		id := strings.TrimSpace(column.ID)
		if id == "" {
			return fmt.Errorf("%w: column %d", ErrColumnID, i)
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateID, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

func (c Config) pageSize() int {
	if c.PageSize > 0 {
		return c.PageSize
	}
	return DefaultPageSize
}

func (c Config) columnIndex(id string) int {
	for i, column := range c.Columns {
		if column.ID == id {
			return i
		}
	}
	return -1
}
