package persist

import "errors"

// ErrEngineUnavailable is returned by rule engines that were compiled out of
// the binary.
var ErrEngineUnavailable = errors.New("persist: rule engine unavailable")

// JSEvaluatorOption configures the JavaScript rule engine.
type JSEvaluatorOption func(*jsRuleSettings)

type jsRuleSettings struct {
	cache     ProgramCache
	functions *FunctionRegistry
}

// JSWithProgramCache shares compiled scripts through cache. Keys are
// prefixed so one cache can serve several engines.
func JSWithProgramCache(cache ProgramCache) JSEvaluatorOption {
	return func(s *jsRuleSettings) { s.cache = cache }
}

// JSWithFunctionRegistry exposes every function of registry as a global of
// the same name. The registry is copied.
func JSWithFunctionRegistry(registry *FunctionRegistry) JSEvaluatorOption {
	return func(s *jsRuleSettings) {
		if registry != nil {
			s.functions = registry.Clone()
		}
	}
}

func newJSRuleSettings(opts []JSEvaluatorOption) jsRuleSettings {
	var settings jsRuleSettings
	for _, opt := range opts {
		if opt != nil {
			opt(&settings)
		}
	}
	return settings
}
