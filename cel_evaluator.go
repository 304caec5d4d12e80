package persist

import (
	"fmt"
	"regexp"
	"strings"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// CELEvaluatorOption configures the CEL evaluator.
type CELEvaluatorOption func(*celEvaluator)

// CELWithProgramCache wires a ProgramCache into the CEL evaluator.
func CELWithProgramCache(cache ProgramCache) CELEvaluatorOption {
	return func(e *celEvaluator) {
		e.cache = cache
	}
}

// CELWithFunctionRegistry wires a FunctionRegistry into the CEL evaluator.
func CELWithFunctionRegistry(registry *FunctionRegistry) CELEvaluatorOption {
	return func(e *celEvaluator) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

type celProgram struct {
	env     *celgo.Env
	program celgo.Program
}

type celEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

var celIdentifier = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

var celReserved = map[string]struct{}{
	"as": {}, "break": {}, "const": {}, "continue": {}, "else": {}, "false": {}, "for": {},
	"function": {}, "if": {}, "import": {}, "in": {}, "let": {}, "loop": {}, "package": {},
	"namespace": {}, "null": {}, "return": {}, "true": {}, "var": {}, "void": {}, "while": {},
}

// NewCELEvaluator constructs an Evaluator backed by cel-go. Document keys
// that are not valid CEL identifiers are reachable through doc["key"].
func NewCELEvaluator(opts ...CELEvaluatorOption) Evaluator {
	e := &celEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *celEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	if expression == "" {
		return nil, fmt.Errorf("expression must not be empty")
	}
	ctx = ctx.withDefaults()
	bindings := celBindings(ctx)
	program, err := e.loadOrCompile(expression, bindings)
	if err != nil {
		return nil, err
	}
	out, _, err := program.program.Eval(e.activation(bindings))
	if err != nil {
		return nil, err
	}
	return out.Value(), nil
}

func (e *celEvaluator) Compile(expression string, _ ...CompileOption) (CompiledRule, error) {
	if expression == "" {
		return nil, fmt.Errorf("expression must not be empty")
	}
	return &celCompiledRule{
		evaluator:  e,
		expression: expression,
	}, nil
}

func (e *celEvaluator) loadOrCompile(expression string, bindings map[string]any) (*celProgram, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(celCacheKey(expression)); ok {
			if program, ok := cached.(*celProgram); ok {
				return program, nil
			}
		}
	}

	env, err := e.buildEnv(bindings)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Parse(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	checked, issues := env.Check(ast)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	prg, err := env.Program(checked)
	if err != nil {
		return nil, err
	}

	bundle := &celProgram{
		env:     env,
		program: prg,
	}
	if e.cache != nil {
		e.cache.Set(celCacheKey(expression), bundle)
	}
	return bundle, nil
}

func (e *celEvaluator) buildEnv(bindings map[string]any) (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("now", celgo.TimestampType),
	}
	if e.registry != nil {
		opts = append(opts, celgo.Function("call", e.callOverloads()...))
	}
	for key := range bindings {
		if key == "now" {
			continue
		}
		opts = append(opts, celgo.Variable(key, celgo.DynType))
	}
	return celgo.NewEnv(opts...)
}

func (e *celEvaluator) activation(bindings map[string]any) map[string]any {
	activation := make(map[string]any, len(bindings))
	for key, value := range bindings {
		activation[key] = value
	}
	return activation
}

// callOverloads declares call(name), call(name, a) up to three arguments;
// CEL has no variadic functions.
func (e *celEvaluator) callOverloads() []celgo.FunctionOpt {
	binding := celgo.FunctionBinding(e.callBinding())
	overloads := make([]celgo.FunctionOpt, 0, 4)
	for arity := 0; arity <= 3; arity++ {
		params := []*celgo.Type{celgo.StringType}
		for i := 0; i < arity; i++ {
			params = append(params, celgo.DynType)
		}
		overloads = append(overloads, celgo.Overload(fmt.Sprintf("call_string_dyn%d", arity), params, celgo.DynType, binding))
	}
	return overloads
}

type celCompiledRule struct {
	evaluator  *celEvaluator
	expression string
}

func (r *celCompiledRule) Evaluate(ctx RuleContext) (any, error) {
	if r.evaluator == nil {
		return nil, fmt.Errorf("cel compiled rule missing evaluator")
	}
	return r.evaluator.Evaluate(ctx, r.expression)
}

// celBindings keeps only names CEL can declare as variables.
func celBindings(ctx RuleContext) map[string]any {
	bindings := ctx.bindings()
	for key := range bindings {
		if _, reserved := celReserved[key]; reserved || !celIdentifier.MatchString(key) {
			delete(bindings, key)
		}
	}
	return bindings
}

func celCacheKey(expression string) string {
	return "cel:" + strings.TrimSpace(expression)
}

func (e *celEvaluator) callBinding() func(...ref.Val) ref.Val {
	return func(values ...ref.Val) ref.Val {
		if e.registry == nil {
			return types.NewErr("persist: function registry not configured")
		}
		if len(values) == 0 {
			return types.NewErr("persist: call requires function name")
		}
		name, ok := values[0].Value().(string)
		if !ok {
			return types.NewErr("persist: call name must be string")
		}
		args := make([]any, 0, len(values)-1)
		for _, val := range values[1:] {
			args = append(args, val.Value())
		}
		result, err := e.registry.Call(name, args...)
		if err != nil {
			return types.NewErr("%s", err.Error())
		}
		if result == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(result)
	}
}
