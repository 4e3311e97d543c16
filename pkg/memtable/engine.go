package memtable

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/goliatone/go-reactable"
)

// Engine is a reactable.Handle[Config]. Base options sit at the bottom of
// the binding's merge precedence; InitialState is overlaid on the engine's
// default state.
type Engine struct {
	Base         reactable.Options[Config]
	InitialState reactable.State
}

// New returns an engine whose base options carry config.
func New(config Config) *Engine {
	return &Engine{Base: reactable.Options[Config]{Config: config}}
}

// Options implements reactable.Handle.
func (e *Engine) Options() reactable.Options[Config] {
	return e.Base
}

// NewInstance implements reactable.Handle.
func (e *Engine) NewInstance(resolved reactable.Options[Config]) (reactable.Instance[Config], error) {
	if err := resolved.Config.Validate(); err != nil {
		return nil, err
	}
	initial := reactable.State{
		KeySorting:    []string{},
		KeyPagination: Pagination{PageSize: resolved.Config.pageSize()}.encode(),
	}.Merge(e.InitialState)
	return &Table{options: resolved, initial: initial}, nil
}

// Table is a live engine instance. SetOptions mutates it in place.
type Table struct {
	mu      sync.RWMutex
	options reactable.Options[Config]
	initial reactable.State
	version uint64
	sorted  sortedRows
}

// sortedRows caches the sorted data for one options version.
type sortedRows struct {
	version uint64
	valid   bool
	rows    []Row
}

var _ reactable.Instance[Config] = (*Table)(nil)

// Options implements reactable.Instance.
func (t *Table) Options() reactable.Options[Config] {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.options
}

// InitialState implements reactable.Instance.
func (t *Table) InitialState() reactable.State {
	return t.initial.Clone()
}

// SetOptions implements reactable.Instance. Options with an invalid Config
// are rejected and leave the instance unchanged.
func (t *Table) SetOptions(updater reactable.OptionsUpdater[Config]) error {
	if updater == nil {
		return fmt.Errorf("memtable: options updater is nil")
	}
	next := updater(t.Options())
	if err := next.Config.Validate(); err != nil {
		return err
	}
	t.mu.Lock()
	t.options = next
	t.version++
	t.mu.Unlock()
	return nil
}

// State returns the state the instance was last synchronized with.
func (t *Table) State() reactable.State {
	return t.Options().State
}

// Sorting returns the active sorting.
func (t *Table) Sorting() []Sort {
	return Sorting(t.State())
}

// Pagination returns the active pagination.
func (t *Table) Pagination() Pagination {
	options := t.Options()
	return PaginationOf(options.State, options.Config.pageSize())
}

// PageCount returns the number of pages, at least one.
func (t *Table) PageCount() int {
	rows := len(t.Options().Config.Data)
	size := t.Pagination().PageSize
	if rows == 0 {
		return 1
	}
	return (rows + size - 1) / size
}

// ToggleSorting cycles columnID through ascending, descending and unsorted
// by raising a state change, as headless engines do.
func (t *Table) ToggleSorting(columnID string, multi bool) error {
	options := t.Options()
	if options.Config.columnIndex(columnID) < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownColumn, columnID)
	}
	return t.raise(reactable.UpdaterFunc(func(prev reactable.State) reactable.State {
		next := nextSorting(Sorting(prev), columnID, multi)
		return prev.Merge(reactable.State{KeySorting: encodeSorting(next)})
	}))
}

// ResetSorting clears the sorting.
func (t *Table) ResetSorting() error {
	return t.raise(reactable.SetKey(KeySorting, []string{}))
}

// SetPageIndex moves to page index, clamped to the available pages.
func (t *Table) SetPageIndex(index int) error {
	pages := t.PageCount()
	if index >= pages {
		index = pages - 1
	}
	if index < 0 {
		index = 0
	}
	fallback := t.Options().Config.pageSize()
	return t.raise(reactable.UpdaterFunc(func(prev reactable.State) reactable.State {
		p := PaginationOf(prev, fallback)
		p.PageIndex = index
		return prev.Merge(reactable.State{KeyPagination: p.encode()})
	}))
}

// SetState replaces the whole state.
func (t *Table) SetState(state reactable.State) error {
	return t.raise(state)
}

func (t *Table) raise(updater reactable.Updater) error {
	handler := t.Options().OnStateChange
	if handler == nil {
		return nil
	}
	return handler(updater)
}

// SortedRows returns the data ordered by the active sorting. The sort is
// stable and leaves Config.Data untouched.
func (t *Table) SortedRows() []Row {
	return slices.Clone(t.sortedRows())
}

// sortedRows sorts once per options version. The result is shared and must
// not be modified.
func (t *Table) sortedRows() []Row {
	t.mu.RLock()
	cached, version, options := t.sorted, t.version, t.options
	t.mu.RUnlock()
	if cached.valid && cached.version == version {
		return cached.rows
	}

	rows := sortRows(options)
	t.mu.Lock()
	if t.version == version {
		t.sorted = sortedRows{version: version, valid: true, rows: rows}
	}
	t.mu.Unlock()
	return rows
}

func sortRows(options reactable.Options[Config]) []Row {
	rows := append([]Row(nil), options.Config.Data...)
	sorting := Sorting(options.State)
	if len(sorting) == 0 {
		return rows
	}

	type key struct {
		column Column
		desc   bool
	}
	keys := make([]key, 0, len(sorting))
	for _, s := range sorting {
		if i := options.Config.columnIndex(s.ID); i >= 0 {
			keys = append(keys, key{column: options.Config.Columns[i], desc: s.Desc})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, k := range keys {
			c := compareValues(k.column.Value(rows[i]), k.column.Value(rows[j]))
			if c == 0 {
				continue
			}
			if k.desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return rows
}

// PageRows returns the rows of the current page.
func (t *Table) PageRows() []Row {
	return slices.Clone(t.pageRows())
}

func (t *Table) pageRows() []Row {
	rows := t.sortedRows()
	p := t.Pagination()
	start := p.PageIndex * p.PageSize
	if start >= len(rows) {
		return nil
	}
	end := min(start+p.PageSize, len(rows))
	return rows[start:end]
}

// Render normalizes content with the instance's Render option, falling back
// to reactable.Render.
func (t *Table) Render(content, props any) *reactable.Descriptor {
	if render := t.Options().Render; render != nil {
		return render(content, props)
	}
	return reactable.Render(content, props)
}
