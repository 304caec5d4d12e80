//go:build js_eval

package persist

import (
	"fmt"

	"github.com/dop251/goja"
)

// jsEvaluator runs rule expressions as JavaScript on goja. Every evaluation
// gets its own runtime, so rules never observe each other's globals.
type jsEvaluator struct {
	settings jsRuleSettings
}

// NewJSEvaluator constructs the goja backed rule engine.
func NewJSEvaluator(opts ...JSEvaluatorOption) Evaluator {
	return &jsEvaluator{settings: newJSRuleSettings(opts)}
}

func (e *jsEvaluator) engineName() string { return "js" }

func (e *jsEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	ctx = ctx.withDefaults()
	script, err := e.script(expression, ctx.typeLabel())
	if err != nil {
		return nil, err
	}
	return e.run(ctx, expression, script)
}

func (e *jsEvaluator) Compile(expression string, _ ...CompileOption) (CompiledRule, error) {
	script, err := e.script(expression, "")
	if err != nil {
		return nil, err
	}
	return &jsRule{engine: e, expression: expression, script: script}, nil
}

// script compiles expression as a parenthesized statement so the completion
// value of the program is the rule result.
func (e *jsEvaluator) script(expression, typeTag string) (*goja.Program, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("js", fmt.Errorf("expression must not be empty"))
	}
	key := "js:" + expression
	if e.settings.cache != nil {
		if cached, ok := e.settings.cache.Get(key); ok {
			if script, ok := cached.(*goja.Program); ok {
				return script, nil
			}
		}
	}
	script, err := goja.Compile("rule", "("+expression+"\n)", true)
	if err != nil {
		return nil, wrapEvaluationError("js", expression, typeTag, err)
	}
	if e.settings.cache != nil {
		e.settings.cache.Set(key, script)
	}
	return script, nil
}

func (e *jsEvaluator) run(ctx RuleContext, expression string, script *goja.Program) (any, error) {
	vm := goja.New()
	for name, value := range ctx.bindings() {
		if err := vm.Set(name, value); err != nil {
			return nil, wrapEvaluationError("js", expression, ctx.typeLabel(), err)
		}
	}
	if registry := e.settings.functions; registry != nil {
		call := func(name string, arguments ...any) (any, error) {
			return registry.Call(name, arguments...)
		}
		if err := vm.Set("call", call); err != nil {
			return nil, wrapEvaluationError("js", expression, ctx.typeLabel(), err)
		}
		for _, name := range registry.Names() {
			fn := func(arguments ...any) (any, error) { return registry.Call(name, arguments...) }
			if err := vm.Set(name, fn); err != nil {
				return nil, wrapEvaluationError("js", expression, ctx.typeLabel(), err)
			}
		}
	}
	result, err := vm.RunProgram(script)
	if err != nil {
		return nil, wrapEvaluationError("js", expression, ctx.typeLabel(), err)
	}
	if goja.IsUndefined(result) || goja.IsNull(result) {
		return nil, nil
	}
	return result.Export(), nil
}

type jsRule struct {
	engine     *jsEvaluator
	expression string
	script     *goja.Program
}

func (r *jsRule) Evaluate(ctx RuleContext) (any, error) {
	return r.engine.run(ctx.withDefaults(), r.expression, r.script)
}
