package reactable

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrNoEvaluator indicates an Expression without a usable evaluator, for
// example a JS expression in a build without the js_eval tag.
var ErrNoEvaluator = errors.New("reactable: evaluator not configured")

// EvalContext carries the inputs of one expression evaluation.
type EvalContext struct {
	Props    any
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
}

// PropsMapper lets typed props expose their fields to expressions.
type PropsMapper interface {
	PropsMap() map[string]any
}

func (ctx EvalContext) withDefaults() EvalContext {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx EvalContext) timestamp() time.Time {
	if ctx.Now == nil {
		return time.Now()
	}
	return *ctx.Now
}

// variables returns the names exposed at the top level of the expression
// environment: every props key plus "props".
func (ctx EvalContext) variables() map[string]any {
	vars := map[string]any{}
	switch p := ctx.Props.(type) {
	case map[string]any:
		for key, value := range p {
			vars[key] = value
		}
	case PropsMapper:
		for key, value := range p.PropsMap() {
			vars[key] = value
		}
	}
	vars["props"] = ctx.Props
	return vars
}

// Evaluator executes expressions against an evaluation context.
type Evaluator interface {
	Evaluate(ctx EvalContext, expr string) (any, error)
	Compile(expr string) (CompiledExpression, error)
}

// CompiledExpression is a reusable program.
type CompiledExpression interface {
	Evaluate(ctx EvalContext) (any, error)
}

type engineNamer interface {
	engineName() string
}

func evaluatorEngineName(e Evaluator) string {
	if named, ok := e.(engineNamer); ok {
		return named.engineName()
	}
	if e == nil {
		return "unknown"
	}
	return "custom"
}

// Expression is cell or header content computed from props.
type Expression struct {
	Source    string
	Evaluator Evaluator
}

// NewExpression pairs source with evaluator.
func NewExpression(source string, evaluator Evaluator) Expression {
	return Expression{Source: source, Evaluator: evaluator}
}

// Expr returns an expr-lang expression using the shared evaluator.
func Expr(source string) Expression {
	return NewExpression(source, sharedExprEvaluator())
}

// CEL returns a CEL expression using the shared evaluator.
func CEL(source string) Expression {
	return NewExpression(source, sharedCELEvaluator())
}

// JS returns a JavaScript expression using the shared evaluator. It only
// evaluates in builds with the js_eval tag.
func JS(source string) Expression {
	return NewExpression(source, sharedJSEvaluator())
}

// Evaluate implements Evaluable.
func (e Expression) Evaluate(props any) (any, error) {
	if strings.TrimSpace(e.Source) == "" {
		return nil, wrapEvaluationError(e.engine(), e.Source, fmt.Errorf("expression must not be empty"))
	}
	if e.Evaluator == nil {
		return nil, wrapEvaluationError(e.engine(), e.Source, ErrNoEvaluator)
	}
	value, err := e.Evaluator.Evaluate(EvalContext{Props: props}, e.Source)
	if err != nil {
		return nil, withColumn(wrapEvaluationError(e.engine(), e.Source, err), props)
	}
	return value, nil
}

func (e Expression) engine() string {
	return evaluatorEngineName(e.Evaluator)
}

var (
	sharedFunctions = sync.OnceValue(newContentRegistry)
	sharedCache = sync.OnceValue(func() ProgramCache {
		return NewProgramCache(512)
	})
	sharedExprEvaluator = sync.OnceValue(func() Evaluator {
		return NewExprEvaluator(ExprWithProgramCache(sharedCache()), ExprWithFunctionRegistry(sharedFunctions()))
	})
	sharedCELEvaluator = sync.OnceValue(func() Evaluator {
		return NewCELEvaluator(CELWithProgramCache(sharedCache()), CELWithFunctionRegistry(sharedFunctions()))
	})
	sharedJSEvaluator = sync.OnceValue(func() Evaluator {
		return NewJSEvaluator(JSWithProgramCache(sharedCache()), JSWithFunctionRegistry(sharedFunctions()))
	})
)

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
