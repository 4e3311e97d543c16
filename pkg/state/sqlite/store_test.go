package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/goliatone/go-reactable/pkg/state"
	"github.com/goliatone/go-reactable/pkg/state/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tableState struct {
	Sorting []string `json:"sorting"`
	Page    int      `json:"page"`
}

func openStore(t *testing.T) *sqlite.Store[tableState] {
	t.Helper()
	clock := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	st, err := sqlite.Open[tableState](
		filepath.Join(t.TempDir(), "state.db"),
		sqlite.WithClock[tableState](func() time.Time { return clock }),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	ref := state.Ref{Domain: "tables", Owner: "u42", Key: "orders"}

	_, _, ok, err := st.Load(ctx, ref)
	require.NoError(t, err)
	assert.False(t, ok)

	meta, err := st.Save(ctx, ref, tableState{Sorting: []string{"total"}, Page: 2}, state.Meta{Extra: map[string]string{"source": "test"}})
	require.NoError(t, err)
	assert.NotEmpty(t, meta.SnapshotID)
	assert.NotEmpty(t, meta.ETag)

	got, loaded, ok, err := st.Load(ctx, ref)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, tableState{Sorting: []string{"total"}, Page: 2}, got)
	assert.Equal(t, meta.ETag, loaded.ETag)
	assert.Equal(t, meta.SnapshotID, loaded.SnapshotID)
	assert.Equal(t, "test", loaded.Extra["source"])
	assert.True(t, loaded.UpdatedAt.Equal(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)))
}

func TestStoreRotatesETagAndRejectsStale(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	ref := state.Ref{Domain: "tables", Key: "orders"}

	first, err := st.Save(ctx, ref, tableState{Page: 1}, state.Meta{})
	require.NoError(t, err)

	second, err := st.Save(ctx, ref, tableState{Page: 2}, first)
	require.NoError(t, err)
	assert.NotEqual(t, first.ETag, second.ETag)
	assert.Equal(t, first.SnapshotID, second.SnapshotID)

	_, err = st.Save(ctx, ref, tableState{Page: 3}, first)
	require.ErrorIs(t, err, state.ErrETagMismatch)
}

func TestStoreWorksWithMutate(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	ref := state.Ref{Domain: "tables", Key: "orders"}

	_, _, err := state.Mutate[tableState](ctx, st, ref, state.Meta{}, func(s *tableState) error {
		s.Page = 4
		return nil
	})
	require.NoError(t, err)

	got, _, ok, err := st.Load(ctx, ref)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 4, got.Page)
}

func TestStoreDeleteAndRefs(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	orders := state.Ref{Domain: "tables", Key: "orders"}
	users := state.Ref{Domain: "tables", Key: "users"}

	_, err := st.Save(ctx, orders, tableState{}, state.Meta{})
	require.NoError(t, err)
	_, err = st.Save(ctx, users, tableState{}, state.Meta{})
	require.NoError(t, err)

	refs, err := st.Refs(ctx, "tables")
	require.NoError(t, err)
	assert.Equal(t, []state.Ref{orders, users}, refs)

	require.NoError(t, st.Delete(ctx, orders))
	_, _, ok, err := st.Load(ctx, orders)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreRejectsInvalidRef(t *testing.T) {
	st := openStore(t)
	_, err := st.Save(context.Background(), state.Ref{Domain: "tables"}, tableState{}, state.Meta{})
	require.ErrorIs(t, err, state.ErrInvalidRef)
}
