package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrETagMismatch  = errors.New("state: etag mismatch")
	ErrInvalidRef    = errors.New("state: invalid ref")
	ErrStoreRequired = errors.New("state: store is required")
)

// Ref identifies one persisted snapshot: a table (Key) within a Domain,
// optionally owned by a user or tenant.
type Ref struct {
	Domain string
	Owner  string
	Key    string
}

// Meta is storage-owned metadata used for audit and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store loads and saves one snapshot per Ref.
type Store[T any] interface {
	Load(ctx context.Context, ref Ref) (snapshot T, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, snapshot T, meta Meta) (Meta, error)
}

// Mutator edits a loaded snapshot in place.
type Mutator[T any] func(*T) error

type validator interface {
	Validate() error
}

// Identifier returns the canonical storage key: domain/key, or
// domain/owner/key when an owner is set.
func (r Ref) Identifier() (string, error) {
	domain := strings.TrimSpace(r.Domain)
	key := strings.TrimSpace(r.Key)
	if domain == "" {
		return "", fmt.Errorf("%w: domain is required", ErrInvalidRef)
	}
	if key == "" {
		return "", fmt.Errorf("%w: key is required", ErrInvalidRef)
	}
	if strings.Contains(domain, "/") || strings.Contains(key, "/") || strings.Contains(r.Owner, "/") {
		return "", fmt.Errorf("%w: segments must not contain '/'", ErrInvalidRef)
	}
	if owner := strings.TrimSpace(r.Owner); owner != "" {
		return domain + "/" + owner + "/" + key, nil
	}
	return domain + "/" + key, nil
}

// Mutate loads the snapshot for ref, applies fn, validates the result and
// saves it. A non-empty meta.ETag must match the stored ETag. Snapshots
// implementing Validate() error are validated before saving.
func Mutate[T any](ctx context.Context, st Store[T], ref Ref, meta Meta, fn Mutator[T]) (T, Meta, error) {
	var zero T
	if st == nil {
		return zero, Meta{}, ErrStoreRequired
	}
	if _, err := ref.Identifier(); err != nil {
		return zero, Meta{}, err
	}
	if fn == nil {
		return zero, Meta{}, fmt.Errorf("state: mutator is required")
	}

	snapshot, loadedMeta, ok, err := st.Load(ctx, ref)
	if err != nil {
		return zero, Meta{}, fmt.Errorf("state: load %q/%q: %w", ref.Domain, ref.Key, err)
	}
	if !ok {
		snapshot = zero
		loadedMeta = Meta{}
	}

	if meta.ETag != "" && loadedMeta.ETag != "" && meta.ETag != loadedMeta.ETag {
		return zero, loadedMeta, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, meta.ETag, loadedMeta.ETag)
	}

	if err := fn(&snapshot); err != nil {
		return zero, loadedMeta, err
	}
	if err := validate(snapshot); err != nil {
		return zero, loadedMeta, err
	}

	saved, err := st.Save(ctx, ref, snapshot, mergeMeta(loadedMeta, meta))
	if err != nil {
		return zero, loadedMeta, fmt.Errorf("state: save %q/%q: %w", ref.Domain, ref.Key, err)
	}
	return snapshot, saved, nil
}

func validate[T any](snapshot T) error {
	if v, ok := any(snapshot).(validator); ok {
		return v.Validate()
	}
	if v, ok := any(&snapshot).(validator); ok {
		return v.Validate()
	}
	return nil
}

func mergeMeta(base, override Meta) Meta {
	out := base
	if override.SnapshotID != "" {
		out.SnapshotID = override.SnapshotID
	}
	if override.ETag != "" {
		out.ETag = override.ETag
	}
	if !override.UpdatedAt.IsZero() {
		out.UpdatedAt = override.UpdatedAt
	}
	if override.Extra != nil {
		out.Extra = override.Extra
	}
	return out
}

// CloneMeta returns meta with a copied Extra map.
func CloneMeta(meta Meta) Meta {
	out := meta
	if meta.Extra == nil {
		return out
	}
	out.Extra = make(map[string]string, len(meta.Extra))
	for k, v := range meta.Extra {
		out.Extra[k] = v
	}
	return out
}
