// Package htmlview writes the current page of a bound table as an HTML
// table. Cell content is normalized through the table's Render option and
// written with the server rendering of the resulting component.
package htmlview

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/domonda/go-retable"
	"github.com/domonda/go-retable/htmltable"
	"github.com/goliatone/go-reactable"
)

// ErrNotRenderable indicates a descriptor whose component cannot be rendered
// to a string.
var ErrNotRenderable = errors.New("htmlview: component has no server rendering")

// Table is the part of an engine instance the writer needs.
type Table interface {
	RowModel() retable.View
	HeaderContent(col int) (content any, props any)
	CellContent(row, col int) (content any, props any)
	Render(content, props any) *reactable.Descriptor
}

// Option configures Write.
type Option func(*config)

type config struct {
	tableClass string
	caption    *string
}

// WithTableClass sets the class attribute of the table element.
func WithTableClass(class string) Option {
	return func(c *config) {
		c.tableClass = class
	}
}

// WithCaption replaces the view title as the table caption. An empty
// caption omits the element.
func WithCaption(caption string) Option {
	return func(c *config) {
		c.caption = &caption
	}
}

// Write renders the table's current row model to w. Header cells are written
// as escaped text; data cells are written as the HTML of their rendered
// component.
func Write(ctx context.Context, w io.Writer, table Table, opts ...Option) error {
	var cfg config
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	source := table.RowModel()
	view := &headedView{View: source, title: source.Title()}
	if cfg.caption != nil {
		view.title = *cfg.caption
	}
	numCols := len(source.Columns())
	view.headers = make([]string, numCols)
	for col := range numCols {
		text, err := HeaderText(table, col)
		if err != nil {
			return err
		}
		view.headers[col] = text
	}

	writer := htmltable.NewWriter[retable.View]().
		WithHeaderRow(true).
		WithTableClass(cfg.tableClass)
	formatter := cellFormatter{table: table}
	for col := range numCols {
		writer = writer.WithColumnFormatter(col, formatter)
	}
	return writer.WriteView(ctx, w, view)
}

// String is Write into a string.
func String(ctx context.Context, table Table, opts ...Option) (string, error) {
	var buf bytes.Buffer
	if err := Write(ctx, &buf, table, opts...); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// HeaderText renders the header of column col as plain text.
func HeaderText(table Table, col int) (string, error) {
	d := table.Render(table.HeaderContent(col))
	if d == nil {
		return "", nil
	}
	if d.Kind == reactable.KindPlaceholder {
		if p, ok := d.Props.(reactable.PlaceholderProps); ok {
			if p.Content == nil {
				return "", nil
			}
			return fmt.Sprint(p.Content), nil
		}
	}
	out, err := RenderHTML(d)
	if err != nil {
		return "", fmt.Errorf("htmlview: header %d: %w", col, err)
	}
	return out, nil
}

// RenderHTML renders a descriptor with its component's server rendering. A
// nil descriptor renders as an empty string.
func RenderHTML(d *reactable.Descriptor) (string, error) {
	if d == nil {
		return "", nil
	}
	component, ok := d.Component.(reactable.ServerComponent)
	if !ok {
		return "", fmt.Errorf("%w: %T", ErrNotRenderable, d.Component)
	}
	return component.RenderString(d.Props)
}

// headedView replaces the column titles and the title of a view.
type headedView struct {
	retable.View
	title   string
	headers []string
}

func (v *headedView) Title() string     { return v.title }
func (v *headedView) Columns() []string { return v.headers }

// cellFormatter renders data cells through the table, ignoring the raw view
// value.
type cellFormatter struct {
	table Table
}

var _ retable.CellFormatter = cellFormatter{}

func (f cellFormatter) FormatCell(ctx context.Context, _ retable.View, row, col int) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	out, err := RenderHTML(f.table.Render(f.table.CellContent(row, col)))
	if err != nil {
		return "", false, fmt.Errorf("htmlview: cell %d,%d: %w", row, col, err)
	}
	return out, true, nil
}
