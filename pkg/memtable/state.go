package memtable

import (
	"encoding/json"
	"strings"

	"github.com/goliatone/go-reactable"
)

// State keys owned by the engine.
const (
	KeySorting    = "sorting"
	KeyPagination = "pagination"
)

// Sort is one sorting entry.
type Sort struct {
	ID   string
	Desc bool
}

// Sorting reads the sorting key. Entries are column IDs, with a leading "-"
// for descending order. Values restored from JSON ([]any) are accepted.
func Sorting(s reactable.State) []Sort {
	var raw []string
	switch v := s[KeySorting].(type) {
	case []string:
		raw = v
	case []any:
		for _, item := range v {
			if str, ok := item.(string); ok {
				raw = append(raw, str)
			}
		}
	case []Sort:
		return append([]Sort(nil), v...)
	}

	sorting := make([]Sort, 0, len(raw))
	for _, entry := range raw {
		entry = strings.TrimSpace(entry)
		if id, ok := strings.CutPrefix(entry, "-"); ok {
			sorting = append(sorting, Sort{ID: id, Desc: true})
			continue
		}
		if entry != "" {
			sorting = append(sorting, Sort{ID: entry})
		}
	}
	return sorting
}

func encodeSorting(sorting []Sort) []string {
	out := make([]string, len(sorting))
	for i, s := range sorting {
		if s.Desc {
			out[i] = "-" + s.ID
		} else {
			out[i] = s.ID
		}
	}
	return out
}

// Pagination is the pagination key.
type Pagination struct {
	PageIndex int
	PageSize  int
}

// PaginationOf reads the pagination key. pageSize falls back to fallback.
func PaginationOf(s reactable.State, fallback int) Pagination {
	p := Pagination{PageSize: fallback}
	switch v := s[KeyPagination].(type) {
	case Pagination:
		p = v
	case map[string]any:
		if index, ok := toInt(v["pageIndex"]); ok {
			p.PageIndex = index
		}
		if size, ok := toInt(v["pageSize"]); ok && size > 0 {
			p.PageSize = size
		}
	}
	if p.PageIndex < 0 {
		p.PageIndex = 0
	}
	if p.PageSize <= 0 {
		p.PageSize = fallback
	}
	return p
}

func (p Pagination) encode() map[string]any {
	return map[string]any{"pageIndex": p.PageIndex, "pageSize": p.PageSize}
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	default:
		return 0, false
	}
}

// nextSorting cycles a column through ascending, descending and unsorted.
// With multi set the other entries are kept, otherwise they are replaced.
func nextSorting(current []Sort, id string, multi bool) []Sort {
	var next []Sort
	found := false
	for _, s := range current {
		if s.ID != id {
			if multi {
				next = append(next, s)
			}
			continue
		}
		found = true
		if !s.Desc {
			next = append(next, Sort{ID: id, Desc: true})
		}
	}
	if !found {
		next = append(next, Sort{ID: id})
	}
	return next
}
