// Package state persists table state snapshots.
//
// A Store loads and saves one snapshot per Ref. Bindings use it to seed their
// internal state on creation and to save it after every intercepted change,
// so sorting or pagination survive a restart.
//
// Ref.Identifier() is the canonical storage key:
//
//	<domain>/<key>
//	<domain>/<owner>/<key>
//
// Meta carries the storage-owned snapshot id and ETag. Mutate implements the
// optimistic load, edit, save cycle on top of any Store.
//
// The sqlite subpackage provides a durable Store backed by mattn/go-sqlite3.
package state
