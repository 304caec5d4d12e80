//go:build !js_eval

package persist

import "fmt"

// NewJSEvaluator returns an evaluator that fails every rule with
// ErrEngineUnavailable. Build with the js_eval tag for the goja engine.
func NewJSEvaluator(opts ...JSEvaluatorOption) Evaluator {
	_ = newJSRuleSettings(opts)
	return missingJSEngine{}
}

type missingJSEngine struct{}

func (missingJSEngine) engineName() string { return "js" }

func (missingJSEngine) Evaluate(ctx RuleContext, expression string) (any, error) {
	return nil, wrapEvaluationError("js", expression, ctx.typeLabel(), missingJSError())
}

func (missingJSEngine) Compile(expression string, _ ...CompileOption) (CompiledRule, error) {
	return nil, wrapEvaluationError("js", expression, "", missingJSError())
}

func missingJSError() error {
	return fmt.Errorf("%w: rebuild with -tags js_eval", ErrEngineUnavailable)
}
