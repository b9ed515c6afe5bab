package statetree

import "time"

// jsConfig is shared by the goja-backed evaluator and the stub built without
// the js_eval tag, so both accept the same options.
type jsConfig struct {
	cache    ProgramCache
	registry *FunctionRegistry
	timeout  time.Duration
}

// JSEvaluatorOption configures the JS evaluator.
type JSEvaluatorOption func(*jsConfig)

// JSWithProgramCache stores compiled goja programs in cache.
func JSWithProgramCache(cache ProgramCache) JSEvaluatorOption {
	return func(cfg *jsConfig) {
		cfg.cache = cache
	}
}

// JSWithFunctionRegistry exposes registry to scripts through call(name, ...).
func JSWithFunctionRegistry(registry *FunctionRegistry) JSEvaluatorOption {
	return func(cfg *jsConfig) {
		if registry == nil {
			return
		}
		cfg.registry = registry.Clone()
	}
}

// JSWithTimeout interrupts a predicate still running after d. Zero disables
// the limit.
func JSWithTimeout(d time.Duration) JSEvaluatorOption {
	return func(cfg *jsConfig) {
		if d < 0 {
			d = 0
		}
		cfg.timeout = d
	}
}

func newJSConfig(opts []JSEvaluatorOption) jsConfig {
	var cfg jsConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
