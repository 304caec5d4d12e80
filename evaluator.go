package persist

import (
	"time"
)

// RuleContext carries the inputs of one migration rule evaluation.
type RuleContext struct {
	Document map[string]any
	Type     string
	Version  int
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
}

func (ctx RuleContext) withDefaultNow() RuleContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx RuleContext) withDefaultMaps() RuleContext {
	if ctx.Document == nil {
		ctx.Document = map[string]any{}
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) withDefaults() RuleContext {
	return ctx.withDefaultNow().withDefaultMaps()
}

func (ctx RuleContext) typeLabel() string {
	if ctx.Type != "" {
		return ctx.Type
	}
	return "unknown"
}

// bindings returns the variables visible to an expression: now, args,
// metadata, doc (the whole document), tag, version, plus every top-level
// document key that is not an internal marker.
func (ctx RuleContext) bindings() map[string]any {
	env := map[string]any{
		"now":      ctx.timestamp(),
		"args":     ctx.Args,
		"metadata": ctx.Metadata,
		"doc":      ctx.Document,
		"tag":      ctx.Type,
		"version":  ctx.Version,
	}
	for key, value := range ctx.Document {
		if isMarker(key) {
			continue
		}
		if _, reserved := env[key]; reserved {
			continue
		}
		env[key] = value
	}
	return env
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct{}

type compileOptionFunc func(*compileConfig)

func (f compileOptionFunc) applyCompileOption(cfg *compileConfig) {
	if f != nil {
		f(cfg)
	}
}
