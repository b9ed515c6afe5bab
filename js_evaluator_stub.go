//go:build !js_eval

package statetree

// NewJSEvaluator is unavailable without the js_eval build tag and returns nil.
func NewJSEvaluator(opts ...JSEvaluatorOption) Evaluator {
	_ = newJSConfig(opts)
	return nil
}

func jsEvaluatorAvailable() bool {
	return false
}
