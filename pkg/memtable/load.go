package memtable

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-reactable"
	"github.com/goliatone/go-reactable/internal/hydrate"
)

// File is the on-disk form of a table definition.
//
//	title: Orders
//	pageSize: 20
//	columns:
//	  - id: total
//	    header: Total
//	    cell: sprintf("%.2f", value)
//	    engine: expr
type File struct {
	Title    string       `json:"title"`
	PageSize int          `json:"pageSize"`
	Columns  []ColumnSpec `json:"columns"`
}

// ColumnSpec declares a column. Cell is an expression evaluated by Engine
// ("expr" by default, "cel" or "js").
type ColumnSpec struct {
	ID     string `json:"id"`
	Header string `json:"header"`
	Cell   string `json:"cell"`
	Engine string `json:"engine"`
}

// Format selects the decoder of LoadConfig.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var fileDecoder = hydrate.NewDecoder[File](
	hydrate.WithDisallowUnknownFields[File](),
	hydrate.WithPreHook[File](normalizeColumnKeys),
)

// LoadConfig decodes a table definition into a Config without data.
func LoadConfig(raw []byte, format Format) (Config, error) {
	ctx := hydrate.Context{Source: "memtable", Key: string(format)}
	var (
		file File
		err  error
	)
	switch format {
	case FormatJSON:
		file, err = fileDecoder.DecodeJSON(ctx, raw)
	case FormatYAML:
		file, err = fileDecoder.DecodeYAML(ctx, raw)
	default:
		return Config{}, fmt.Errorf("memtable: unsupported format %q", format)
	}
	if err != nil {
		return Config{}, err
	}
	return file.Config()
}

// LoadConfigFile reads path and picks the format from its extension.
func LoadConfigFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("memtable: read %q: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadConfig(raw, FormatYAML)
	case ".json":
		return LoadConfig(raw, FormatJSON)
	default:
		return Config{}, fmt.Errorf("memtable: unsupported file extension %q", filepath.Ext(path))
	}
}

// Config builds the engine configuration from the definition.
func (f File) Config() (Config, error) {
	config := Config{Title: f.Title, PageSize: f.PageSize}
	for _, entry := range f.Columns {
		column := Column{ID: strings.TrimSpace(entry.ID)}
		if entry.Header != "" {
			column.Header = entry.Header
		}
		if entry.Cell != "" {
			expr, err := expression(entry)
			if err != nil {
				return Config{}, err
			}
			column.Cell = expr
		}
		config.Columns = append(config.Columns, column)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func expression(entry ColumnSpec) (reactable.Expression, error) {
	switch strings.ToLower(strings.TrimSpace(entry.Engine)) {
	case "", "expr":
		return reactable.Expr(entry.Cell), nil
	case "cel":
		return reactable.CEL(entry.Cell), nil
	case "js":
		return reactable.JS(entry.Cell), nil
	default:
		return reactable.Expression{}, fmt.Errorf("memtable: column %q: unknown expression engine %q", entry.ID, entry.Engine)
	}
}

// normalizeColumnKeys accepts page_size as an alias of pageSize.
func normalizeColumnKeys(_ hydrate.Context, payload map[string]any) (map[string]any, error) {
	if value, ok := payload["page_size"]; ok {
		if _, exists := payload["pageSize"]; !exists {
			payload["pageSize"] = value
		}
		delete(payload, "page_size")
	}
	return payload, nil
}
