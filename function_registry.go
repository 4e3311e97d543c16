package reactable

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Function is a helper callable from content expressions.
type Function func(args ...any) (any, error)

var (
	ErrFunctionNotFound = errors.New("reactable: function not registered")
	ErrFunctionExists   = errors.New("reactable: function already registered")
)

// FunctionRegistry holds the helpers exposed to cell and header expressions.
// Lookups ignore case.
type FunctionRegistry struct {
	mu    sync.RWMutex
	funcs map[string]Function
}

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{funcs: map[string]Function{}}
}

// Register adds fn under name.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	key := strings.ToLower(strings.TrimSpace(name))
	switch {
	case key == "":
		return fmt.Errorf("reactable: function name must not be empty")
	case fn == nil:
		return fmt.Errorf("reactable: function %q is nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.funcs == nil {
		r.funcs = map[string]Function{}
	}
	if _, taken := r.funcs[key]; taken {
		return fmt.Errorf("%w: %q", ErrFunctionExists, name)
	}
	r.funcs[key] = fn
	return nil
}

// Clone copies the registry so evaluators can own their function set.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	funcs := maps.Clone(r.funcs)
	if funcs == nil {
		funcs = map[string]Function{}
	}
	return &FunctionRegistry{funcs: funcs}
}

// Call runs the function registered under name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	var fn Function
	if r != nil {
		r.mu.RLock()
		fn = r.funcs[strings.ToLower(name)]
		r.mu.RUnlock()
	}
	if fn == nil {
		return nil, fmt.Errorf("%w: %q", ErrFunctionNotFound, name)
	}
	return fn(args...)
}

// Names lists the registered names in order.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.funcs))
}

// contentHelpers are registered on the registry shared by Expr, CEL and JS.
var contentHelpers = map[string]Function{
	// sprintf(format, args...) formats cell values.
	"sprintf": func(args ...any) (any, error) {
		if len(args) == 0 {
			return "", fmt.Errorf("reactable: sprintf requires a format")
		}
		format, ok := args[0].(string)
		if !ok {
			return "", fmt.Errorf("reactable: sprintf format must be a string, got %T", args[0])
		}
		return fmt.Sprintf(format, args[1:]...), nil
	},
	// coalesce returns the first argument that would render.
	"coalesce": func(args ...any) (any, error) {
		for _, arg := range args {
			if !isFalsy(arg) {
				return arg, nil
			}
		}
		return nil, nil
	},
}

func newContentRegistry() *FunctionRegistry {
	registry := NewFunctionRegistry()
	for name, fn := range contentHelpers {
		_ = registry.Register(name, fn)
	}
	return registry
}
