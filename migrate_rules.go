package persist

import (
	"fmt"
	"time"
)

// Rule computes one field of a migrated document. Expr is evaluated against
// the document as it stood when the step started; its result is stored under
// Field. When, if set, must evaluate to a boolean and gates the rule. Drop
// lists keys removed once every rule has run.
type Rule struct {
	Field string
	Expr  string
	When  string
	Drop  []string
}

// RuleOption configures RuleStep.
type RuleOption func(*ruleConfig)

type ruleConfig struct {
	evaluator Evaluator
	logger    Logger
	cache     ProgramCache
	functions *FunctionRegistry
	args      map[string]any
	metadata  map[string]any
	now       func() time.Time
}

// WithRuleEvaluator selects the expression engine. The expr engine is used
// when none is configured.
func WithRuleEvaluator(evaluator Evaluator) RuleOption {
	return func(cfg *ruleConfig) {
		cfg.evaluator = evaluator
	}
}

// WithRuleLogger receives one "evaluate" event per expression.
func WithRuleLogger(logger Logger) RuleOption {
	return func(cfg *ruleConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithRuleCache wires a ProgramCache into the default evaluator.
func WithRuleCache(cache ProgramCache) RuleOption {
	return func(cfg *ruleConfig) {
		cfg.cache = cache
	}
}

// WithRuleFunctions exposes registry to the default evaluator.
func WithRuleFunctions(registry *FunctionRegistry) RuleOption {
	return func(cfg *ruleConfig) {
		cfg.functions = registry
	}
}

// WithRuleArgs binds args as the "args" variable.
func WithRuleArgs(args map[string]any) RuleOption {
	return func(cfg *ruleConfig) {
		cfg.args = args
	}
}

// WithRuleMetadata binds metadata as the "metadata" variable.
func WithRuleMetadata(metadata map[string]any) RuleOption {
	return func(cfg *ruleConfig) {
		cfg.metadata = metadata
	}
}

// WithRuleClock overrides the value bound to "now".
func WithRuleClock(now func() time.Time) RuleOption {
	return func(cfg *ruleConfig) {
		cfg.now = now
	}
}

// RuleStep builds a Step whose body is a list of expression rules. Any
// evaluation failure aborts the step and with it the whole import.
func RuleStep(from, to int, rules []Rule, opts ...RuleOption) Step {
	cfg := ruleConfig{logger: noopLogger{}}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	evaluator := resolveEvaluator(cfg.evaluator, cfg.cache, cfg.functions)

	return Step{
		From: from,
		To:   to,
		Apply: func(doc Document) (Document, error) {
			ctx := RuleContext{
				Document: map[string]any(doc.Clone()),
				Type:     doc.TypeTag(),
				Version:  doc.Version(),
				Args:     cfg.args,
				Metadata: cfg.metadata,
			}
			if cfg.now != nil {
				now := cfg.now()
				ctx.Now = &now
			}

			var drops []string
			for _, rule := range rules {
				if rule.When != "" {
					ok, err := evaluateRule(evaluator, cfg.logger, ctx, rule.When)
					if err != nil {
						return nil, err
					}
					matched, isBool := ok.(bool)
					if !isBool {
						return nil, fmt.Errorf("persist: rule condition %q returned %T, want bool", rule.When, ok)
					}
					if !matched {
						continue
					}
				}
				if rule.Field != "" && rule.Expr != "" {
					if isMarker(rule.Field) {
						return nil, fmt.Errorf("persist: rule cannot assign marker key %q", rule.Field)
					}
					value, err := evaluateRule(evaluator, cfg.logger, ctx, rule.Expr)
					if err != nil {
						return nil, err
					}
					doc[rule.Field] = normalizeRuleValue(value)
				}
				drops = append(drops, rule.Drop...)
			}
			for _, key := range drops {
				if !isMarker(key) {
					delete(doc, key)
				}
			}
			return doc, nil
		},
	}
}

// normalizeRuleValue folds engine-specific results back into document kinds.
func normalizeRuleValue(value any) any {
	switch typed := value.(type) {
	case time.Time:
		return typed.UTC().Format(time.RFC3339Nano)
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = normalizeRuleValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[key] = normalizeRuleValue(item)
		}
		return out
	}
	return value
}
