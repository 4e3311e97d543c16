package reactable

import "time"

// DefaultJSTimeout bounds a single JS content evaluation.
const DefaultJSTimeout = 250 * time.Millisecond

// JSEvaluatorOption configures NewJSEvaluator.
type JSEvaluatorOption func(*jsSettings)

type jsSettings struct {
	cache     ProgramCache
	functions *FunctionRegistry
	timeout   time.Duration
}

// JSWithProgramCache shares compiled programs through cache.
func JSWithProgramCache(cache ProgramCache) JSEvaluatorOption {
	return func(s *jsSettings) { s.cache = cache }
}

// JSWithFunctionRegistry exposes a copy of registry as globals and through
// call(name, ...).
func JSWithFunctionRegistry(registry *FunctionRegistry) JSEvaluatorOption {
	return func(s *jsSettings) { s.functions = registry.Clone() }
}

// JSWithTimeout interrupts scripts running longer than d. Zero disables the
// limit.
func JSWithTimeout(d time.Duration) JSEvaluatorOption {
	return func(s *jsSettings) { s.timeout = d }
}

func newJSSettings(opts []JSEvaluatorOption) jsSettings {
	s := jsSettings{timeout: DefaultJSTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	return s
}
