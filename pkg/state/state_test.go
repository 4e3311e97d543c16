package state_test

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-reactable/pkg/state"
)

func TestRefIdentifier(t *testing.T) {
	cases := []struct {
		name string
		ref  state.Ref
		want string
		err  bool
	}{
		{name: "domain and key", ref: state.Ref{Domain: "tables", Key: "orders"}, want: "tables/orders"},
		{name: "owner", ref: state.Ref{Domain: "tables", Owner: "u42", Key: "orders"}, want: "tables/u42/orders"},
		{name: "trimmed", ref: state.Ref{Domain: " tables ", Key: " orders "}, want: "tables/orders"},
		{name: "missing domain", ref: state.Ref{Key: "orders"}, err: true},
		{name: "missing key", ref: state.Ref{Domain: "tables"}, err: true},
		{name: "slash", ref: state.Ref{Domain: "tables", Key: "a/b"}, err: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.ref.Identifier()
			if tc.err {
				if !errors.Is(err, state.ErrInvalidRef) {
					t.Fatalf("expected ErrInvalidRef, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("identifier: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestMemoryStoreRoundTripStampsMeta(t *testing.T) {
	ctx := context.Background()
	st := state.NewMemoryStore[map[string]any]()
	ref := state.Ref{Domain: "tables", Key: "orders"}

	if _, _, ok, err := st.Load(ctx, ref); err != nil || ok {
		t.Fatalf("expected missing snapshot, got ok=%v err=%v", ok, err)
	}

	meta, err := st.Save(ctx, ref, map[string]any{"page": 2}, state.Meta{Extra: map[string]string{"source": "test"}})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if meta.SnapshotID == "" || meta.ETag == "" || meta.UpdatedAt.IsZero() {
		t.Fatalf("expected stamped meta, got %+v", meta)
	}

	snapshot, loaded, ok, err := st.Load(ctx, ref)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if snapshot["page"] != 2 {
		t.Fatalf("unexpected snapshot %v", snapshot)
	}
	if loaded.ETag != meta.ETag || loaded.Extra["source"] != "test" {
		t.Fatalf("unexpected meta %+v", loaded)
	}
	if st.Len() != 1 {
		t.Fatalf("expected one record, got %d", st.Len())
	}
}

func TestMemoryStoreRejectsStaleETag(t *testing.T) {
	ctx := context.Background()
	st := state.NewMemoryStore[string]()
	ref := state.Ref{Domain: "tables", Key: "orders"}

	first, err := st.Save(ctx, ref, "a", state.Meta{})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := st.Save(ctx, ref, "b", first); err != nil {
		t.Fatalf("save with current etag: %v", err)
	}
	if _, err := st.Save(ctx, ref, "c", first); !errors.Is(err, state.ErrETagMismatch) {
		t.Fatalf("expected ErrETagMismatch, got %v", err)
	}
}

type validatingState struct {
	Page int
}

func (s validatingState) Validate() error {
	if s.Page < 0 {
		return errors.New("page must not be negative")
	}
	return nil
}

func TestMutateAppliesAndSaves(t *testing.T) {
	ctx := context.Background()
	st := state.NewMemoryStore[validatingState]()
	ref := state.Ref{Domain: "tables", Key: "orders"}

	got, meta, err := state.Mutate(ctx, st, ref, state.Meta{}, func(s *validatingState) error {
		s.Page = 3
		return nil
	})
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if got.Page != 3 || meta.ETag == "" {
		t.Fatalf("unexpected result %+v %+v", got, meta)
	}

	loaded, _, ok, _ := st.Load(ctx, ref)
	if !ok || loaded.Page != 3 {
		t.Fatalf("expected saved snapshot, got %+v", loaded)
	}
}

func TestMutateValidationFailureDoesNotSave(t *testing.T) {
	ctx := context.Background()
	st := state.NewMemoryStore[validatingState]()
	ref := state.Ref{Domain: "tables", Key: "orders"}

	_, _, err := state.Mutate(ctx, st, ref, state.Meta{}, func(s *validatingState) error {
		s.Page = -1
		return nil
	})
	if err == nil || err.Error() != "page must not be negative" {
		t.Fatalf("expected validation error, got %v", err)
	}
	if st.Len() != 0 {
		t.Fatalf("expected nothing saved")
	}
}

func TestMutateETagMismatch(t *testing.T) {
	ctx := context.Background()
	st := state.NewMemoryStore[validatingState]()
	ref := state.Ref{Domain: "tables", Key: "orders"}
	if _, err := st.Save(ctx, ref, validatingState{Page: 1}, state.Meta{}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, _, err := state.Mutate(ctx, st, ref, state.Meta{ETag: "stale"}, func(s *validatingState) error {
		s.Page = 2
		return nil
	})
	if !errors.Is(err, state.ErrETagMismatch) {
		t.Fatalf("expected ErrETagMismatch, got %v", err)
	}
}

func TestMutateRequiresStoreAndMutator(t *testing.T) {
	ctx := context.Background()
	ref := state.Ref{Domain: "tables", Key: "orders"}
	if _, _, err := state.Mutate[validatingState](ctx, nil, ref, state.Meta{}, func(*validatingState) error { return nil }); !errors.Is(err, state.ErrStoreRequired) {
		t.Fatalf("expected ErrStoreRequired, got %v", err)
	}
	if _, _, err := state.Mutate(ctx, state.NewMemoryStore[validatingState](), ref, state.Meta{}, nil); err == nil {
		t.Fatalf("expected mutator error")
	}
}
