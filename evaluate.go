package persist

import (
	"errors"
	"fmt"
	"time"
)

var ErrNoEvaluator = errors.New("persist: evaluator not configured")

// evaluateRule runs expr with evaluator and logs the attempt.
func evaluateRule(evaluator Evaluator, logger Logger, ctx RuleContext, expr string) (any, error) {
	if expr == "" {
		return nil, fmt.Errorf("expression must not be empty")
	}
	if evaluator == nil {
		return nil, ErrNoEvaluator
	}
	ctx = ctx.withDefaults()
	engine := evaluatorEngineName(evaluator)
	start := time.Now()
	value, evalErr := evaluator.Evaluate(ctx, expr)
	evalErr = wrapEvaluationError(engine, expr, ctx.typeLabel(), evalErr)
	logger.Log(LogEvent{
		Op:       "evaluate",
		Type:     ctx.typeLabel(),
		Message:  fmt.Sprintf("%s %s", engine, describeExpression(expr)),
		Duration: time.Since(start),
		Err:      evalErr,
	})
	if evalErr != nil {
		return nil, evalErr
	}
	return value, nil
}

// resolveEvaluator falls back to the expr evaluator wired with the given
// cache and function registry.
func resolveEvaluator(evaluator Evaluator, cache ProgramCache, registry *FunctionRegistry) Evaluator {
	if evaluator != nil {
		return evaluator
	}
	var exprOpts []ExprEvaluatorOption
	if cache != nil {
		exprOpts = append(exprOpts, ExprWithProgramCache(cache))
	}
	if registry != nil {
		exprOpts = append(exprOpts, ExprWithFunctionRegistry(registry))
	}
	return NewExprEvaluator(exprOpts...)
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	switch e.(type) {
	case *exprEvaluator:
		return "expr"
	case *celEvaluator:
		return "cel"
	}
	if named, ok := e.(interface{ engineName() string }); ok {
		return named.engineName()
	}
	return "custom"
}
