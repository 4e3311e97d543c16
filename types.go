package reactable

import (
	"sort"

	"github.com/goliatone/go-reactable/layering"
)

// State is the slice of table state a binding owns on behalf of its caller
// (sorting, pagination, selection and similar keys).
type State map[string]any

// Clone returns a deep copy of s.
func (s State) Clone() State {
	if s == nil {
		return nil
	}
	return layering.Clone(s)
}

// Merge returns a new State holding the keys of s overlaid by the keys of
// over. Keys present in over always win.
func (s State) Merge(over State) State {
	out := make(State, len(s)+len(over))
	for key, value := range s {
		out[key] = value
	}
	for key, value := range over {
		out[key] = value
	}
	return out
}

// Keys returns the state keys sorted alphabetically.
func (s State) Keys() []string {
	keys := make([]string, 0, len(s))
	for key := range s {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Apply makes a State usable as a replacement Updater.
func (s State) Apply(State) State {
	return s.Clone()
}

// Updater describes a change to State. A State value is a full replacement;
// any other implementation is applied functionally to the previous state.
type Updater interface {
	Apply(prev State) State
}

// UpdaterFunc adapts a function to Updater.
type UpdaterFunc func(prev State) State

// Apply implements Updater.
func (f UpdaterFunc) Apply(prev State) State {
	if f == nil {
		return prev
	}
	return f(prev)
}

// SetKey returns an Updater that sets key to value, keeping every other key.
func SetKey(key string, value any) Updater {
	return UpdaterFunc(func(prev State) State {
		return prev.Merge(State{key: value})
	})
}

// StateChangeFunc receives state updaters raised by the engine.
type StateChangeFunc func(updater Updater) error

// RenderFunc turns cell/header content plus props into a Descriptor.
type RenderFunc func(content, props any) *Descriptor

// Options is the full option set handed to an engine. Config carries the
// engine specific part (columns, data, feature flags); the remaining fields
// are the ones this package manages.
type Options[C any] struct {
	Config              C
	State               State
	OnStateChange       StateChangeFunc
	Render              RenderFunc
	RenderFallbackValue any
}

// OptionsUpdater computes the next options from the engine's current ones.
type OptionsUpdater[C any] func(prev Options[C]) Options[C]

// Instance is a live engine instance. SetOptions mutates the instance in
// place.
type Instance[C any] interface {
	Options() Options[C]
	InitialState() State
	SetOptions(updater OptionsUpdater[C]) error
}

// Handle is an engine factory. Options returns the engine's base options,
// which sit at the bottom of the merge precedence.
type Handle[C any] interface {
	Options() Options[C]
	NewInstance(resolved Options[C]) (Instance[C], error)
}

// HandleFunc adapts a constructor to Handle with empty base options.
type HandleFunc[C any] func(resolved Options[C]) (Instance[C], error)

// Options implements Handle.
func (HandleFunc[C]) Options() Options[C] {
	return Options[C]{}
}

// NewInstance implements Handle.
func (f HandleFunc[C]) NewInstance(resolved Options[C]) (Instance[C], error) {
	return f(resolved)
}
