//go:build !js_eval

package reactable

// NewJSEvaluator returns nil unless built with the js_eval tag. Expressions
// holding a nil evaluator fail with ErrNoEvaluator.
func NewJSEvaluator(opts ...JSEvaluatorOption) Evaluator {
	_ = newJSSettings(opts)
	return nil
}

func jsEvaluatorAvailable() bool {
	return false
}
