package memtable_test

import (
	"errors"
	"testing"

	"github.com/goliatone/go-reactable"
	"github.com/goliatone/go-reactable/pkg/memtable"
	"github.com/goliatone/go-reactable/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func people() []memtable.Row {
	return []memtable.Row{
		{"name": "carol", "total": 30.0},
		{"name": "alice", "total": 10.0},
		{"name": "bob", "total": 20.0},
		{"name": "dave", "total": 0.0},
		{"name": "erin", "total": 40.0},
	}
}

func columns() []memtable.Column {
	return []memtable.Column{
		{ID: "name", Header: "Name"},
		{ID: "total"},
	}
}

func names(rows []memtable.Row) []string {
	out := make([]string, len(rows))
	for i, row := range rows {
		out[i], _ = row["name"].(string)
	}
	return out
}

type harness struct {
	binding *reactable.Binding[memtable.Config]
	table   *memtable.Table
	seen    int
}

func bind(t *testing.T, source any, opts ...reactable.Option) *harness {
	t.Helper()
	binding, err := reactable.CreateBinding[memtable.Config](memtable.New(memtable.Config{Columns: columns()}), source, opts...)
	require.NoError(t, err)

	h := &harness{binding: binding}
	unsubscribe := binding.Subscribe(func(instance reactable.Instance[memtable.Config]) {
		h.seen++
		table, ok := instance.(*memtable.Table)
		require.True(t, ok)
		h.table = table
	})
	t.Cleanup(unsubscribe)
	return h
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		config memtable.Config
		err    error
	}{
		{name: "valid", config: memtable.Config{Columns: columns()}},
		{name: "missing id", config: memtable.Config{Columns: []memtable.Column{{ID: " "}}}, err: memtable.ErrColumnID},
		{name: "duplicate id", config: memtable.Config{Columns: []memtable.Column{{ID: "a"}, {ID: "a"}}}, err: memtable.ErrDuplicateID},
		{name: "negative page size", config: memtable.Config{PageSize: -1}, err: memtable.ErrPageSize},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.config.Validate()
			if tc.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestEngineRejectsInvalidConfig(t *testing.T) {
	engine := memtable.New(memtable.Config{Columns: []memtable.Column{{ID: "a"}, {ID: "a"}}})
	_, err := reactable.CreateBinding[memtable.Config](engine, reactable.Options[memtable.Config]{})
	require.Error(t, err)
	assert.ErrorIs(t, err, memtable.ErrDuplicateID)
}

func TestInitialStateCarriesSortingAndPagination(t *testing.T) {
	h := bind(t, reactable.Options[memtable.Config]{Config: memtable.Config{Data: people(), PageSize: 2}})

	assert.Equal(t, 1, h.seen)
	assert.Empty(t, h.table.Sorting())
	assert.Equal(t, memtable.Pagination{PageIndex: 0, PageSize: 2}, h.table.Pagination())
	assert.Equal(t, 3, h.table.PageCount())
	assert.Equal(t, []string{"carol", "alice"}, names(h.table.PageRows()))
}

func TestToggleSortingCyclesThroughBinding(t *testing.T) {
	h := bind(t, reactable.Options[memtable.Config]{Config: memtable.Config{Data: people(), PageSize: 2}})

	require.NoError(t, h.table.ToggleSorting("name", false))
	assert.Equal(t, 2, h.seen)
	assert.Equal(t, []memtable.Sort{{ID: "name"}}, h.table.Sorting())
	assert.Equal(t, []string{"alice", "bob"}, names(h.table.PageRows()))

	require.NoError(t, h.table.ToggleSorting("name", false))
	assert.Equal(t, []memtable.Sort{{ID: "name", Desc: true}}, h.table.Sorting())
	assert.Equal(t, []string{"erin", "dave"}, names(h.table.PageRows()))

	require.NoError(t, h.table.ToggleSorting("name", false))
	assert.Empty(t, h.table.Sorting())
	assert.Equal(t, []string{"carol", "alice"}, names(h.table.PageRows()))
	assert.Equal(t, 4, h.seen)

	internal, ok := store.Get(h.binding.State())
	require.True(t, ok)
	assert.Equal(t, []string{}, internal[memtable.KeySorting])
}

func TestToggleSortingMulti(t *testing.T) {
	h := bind(t, reactable.Options[memtable.Config]{Config: memtable.Config{Data: people()}})

	require.NoError(t, h.table.ToggleSorting("total", false))
	require.NoError(t, h.table.ToggleSorting("name", true))
	assert.Equal(t, []memtable.Sort{{ID: "total"}, {ID: "name"}}, h.table.Sorting())

	require.NoError(t, h.table.ToggleSorting("total", false))
	assert.Equal(t, []memtable.Sort{{ID: "total", Desc: true}}, h.table.Sorting())
	assert.Equal(t, []string{"erin", "carol", "bob", "alice", "dave"}, names(h.table.SortedRows()))
}

func TestToggleSortingUnknownColumn(t *testing.T) {
	h := bind(t, reactable.Options[memtable.Config]{Config: memtable.Config{Data: people()}})

	err := h.table.ToggleSorting("missing", false)
	assert.True(t, errors.Is(err, memtable.ErrUnknownColumn))
	assert.Equal(t, 1, h.seen)
}

func TestSetPageIndexClamps(t *testing.T) {
	h := bind(t, reactable.Options[memtable.Config]{Config: memtable.Config{Data: people(), PageSize: 2}})

	require.NoError(t, h.table.SetPageIndex(10))
	assert.Equal(t, 2, h.table.Pagination().PageIndex)
	assert.Equal(t, []string{"erin"}, names(h.table.PageRows()))

	require.NoError(t, h.table.SetPageIndex(-3))
	assert.Equal(t, 0, h.table.Pagination().PageIndex)
}

func TestSnapshotStateOverridesEngineState(t *testing.T) {
	source := store.New(reactable.Options[memtable.Config]{
		Config: memtable.Config{Data: people()},
		State:  reactable.State{memtable.KeySorting: []string{"-total"}},
	})
	h := bind(t, source)

	assert.Equal(t, []memtable.Sort{{ID: "total", Desc: true}}, h.table.Sorting())

	// The snapshot keeps winning over internally raised sorting.
	require.NoError(t, h.table.ToggleSorting("name", false))
	assert.Equal(t, []memtable.Sort{{ID: "total", Desc: true}}, h.table.Sorting())

	source.Set(reactable.Options[memtable.Config]{Config: memtable.Config{Data: people()}})
	assert.Equal(t, []memtable.Sort{{ID: "name"}}, h.table.Sorting())
}

func TestRowModelPagesSortedRows(t *testing.T) {
	h := bind(t, reactable.Options[memtable.Config]{Config: memtable.Config{Title: "People", Data: people(), PageSize: 2}})
	require.NoError(t, h.table.ToggleSorting("total", false))
	require.NoError(t, h.table.SetPageIndex(1))

	view := h.table.RowModel()
	assert.Equal(t, "People", view.Title())
	assert.Equal(t, []string{"name", "total"}, view.Columns())
	require.Equal(t, 2, view.NumRows())
	assert.Equal(t, "bob", view.Cell(0, 0))
	assert.Equal(t, 30.0, view.Cell(1, 1))
	assert.Nil(t, view.Cell(2, 0))
}

func TestHeaderAndCellContent(t *testing.T) {
	h := bind(t, reactable.Options[memtable.Config]{Config: memtable.Config{Data: people()}})
	require.NoError(t, h.table.ToggleSorting("name", false))

	content, props := h.table.HeaderContent(0)
	assert.Equal(t, "Name", content)
	assert.Equal(t, memtable.HeaderProps{Column: "name", Index: 0, Sorted: "asc"}, props)

	content, props = h.table.HeaderContent(1)
	assert.Equal(t, "total", content)
	assert.Equal(t, memtable.HeaderProps{Column: "total", Index: 1}, props)

	content, _ = h.table.HeaderContent(5)
	assert.Nil(t, content)

	// Sorted by name: alice, bob, carol, dave, erin.
	content, props = h.table.CellContent(3, 1)
	d := h.table.Render(content, props)
	require.NotNil(t, d)
	assert.Equal(t, reactable.KindPlaceholder, d.Kind)
	assert.Equal(t, reactable.PlaceholderProps{Content: 0.0}, d.Props)
}

func TestCellExpressionContent(t *testing.T) {
	cols := []memtable.Column{
		{ID: "name"},
		{ID: "total", Cell: reactable.Expr(`sprintf("%.2f", value)`)},
	}
	engine := memtable.New(memtable.Config{Columns: cols})
	binding, err := reactable.CreateBinding[memtable.Config](engine, reactable.Options[memtable.Config]{
		Config: memtable.Config{Data: []memtable.Row{{"name": "alice", "total": 12.5}}},
	})
	require.NoError(t, err)

	var table *memtable.Table
	unsubscribe := binding.Subscribe(func(instance reactable.Instance[memtable.Config]) {
		table = instance.(*memtable.Table)
	})
	defer unsubscribe()

	d := table.Render(table.CellContent(0, 1))
	require.NotNil(t, d)
	assert.Equal(t, reactable.PlaceholderProps{Content: "12.50"}, d.Props)
}

func TestSetStateReplacesState(t *testing.T) {
	h := bind(t, reactable.Options[memtable.Config]{Config: memtable.Config{Data: people(), PageSize: 2}})

	require.NoError(t, h.table.SetState(reactable.State{memtable.KeySorting: []any{"-name"}}))
	assert.Equal(t, []memtable.Sort{{ID: "name", Desc: true}}, h.table.Sorting())
	assert.Equal(t, memtable.Pagination{PageSize: 2}, h.table.Pagination())

	require.NoError(t, h.table.ResetSorting())
	assert.Empty(t, h.table.Sorting())
}

func TestRowsSortedOncePerOptionsVersion(t *testing.T) {
	var reads int
	counted := []memtable.Column{
		{ID: "name"},
		{ID: "total", Accessor: func(row memtable.Row) any {
			reads++
			return row["total"]
		}},
	}
	binding, err := reactable.CreateBinding[memtable.Config](
		memtable.New(memtable.Config{Columns: counted}),
		reactable.Options[memtable.Config]{Config: memtable.Config{Data: people()}},
	)
	require.NoError(t, err)

	var table *memtable.Table
	unsubscribe := binding.Subscribe(func(instance reactable.Instance[memtable.Config]) {
		table = instance.(*memtable.Table)
	})
	defer unsubscribe()

	require.NoError(t, table.ToggleSorting("total", false))
	_, _ = table.CellContent(0, 0)
	afterFirstSort := reads
	require.NotZero(t, afterFirstSort)

	for row := 0; row < 5; row++ {
		_, _ = table.CellContent(row, 0)
	}
	_ = table.RowModel()
	assert.Equal(t, afterFirstSort, reads, "rendering name cells should reuse the sorted rows")

	rows := table.SortedRows()
	rows[0] = memtable.Row{"name": "mallory"}
	assert.Equal(t, "dave", table.PageRows()[0]["name"], "callers must not alter the cached rows")

	require.NoError(t, table.ToggleSorting("total", false))
	_, _ = table.CellContent(0, 0)
	assert.Greater(t, reads, afterFirstSort, "a new sorting should sort again")
	assert.Equal(t, "erin", table.PageRows()[0]["name"])
}
