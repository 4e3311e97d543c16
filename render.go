package reactable

import (
	"errors"
	"fmt"
	"html"
	"io"
	"math"
	"reflect"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Kind tags a Descriptor.
type Kind uint8

const (
	// KindComponent is a component ready for mounting.
	KindComponent Kind = iota + 1
	// KindPlaceholder wraps a plain value for fallback display.
	KindPlaceholder
)

func (k Kind) String() string {
	switch k {
	case KindComponent:
		return "component"
	case KindPlaceholder:
		return "placeholder"
	default:
		return "unknown"
	}
}

// Descriptor is the normalized form of cell, header or footer content. It is
// built fresh on every render call.
type Descriptor struct {
	Kind      Kind
	Component any
	Props     any
}

// PlaceholderProps are the props of the fallback-display component.
type PlaceholderProps struct {
	Content any
}

// PlaceholderComponent displays a plain value. It satisfies both classifier
// strategies.
type PlaceholderComponent struct {
	ComponentBase
}

// Placeholder is the fallback-display component used by Render.
var Placeholder = PlaceholderComponent{}

// RenderString returns the escaped text of the placeholder content. A nil
// content renders as an empty string.
func (PlaceholderComponent) RenderString(props any) (string, error) {
	content := placeholderContent(props)
	if content == nil {
		return "", nil
	}
	return html.EscapeString(fmt.Sprint(content)), nil
}

// Render writes RenderString to w.
func (p PlaceholderComponent) Render(w io.Writer, props any) error {
	out, err := p.RenderString(props)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

func placeholderContent(props any) any {
	switch p := props.(type) {
	case PlaceholderProps:
		return p.Content
	case *PlaceholderProps:
		if p == nil {
			return nil
		}
		return p.Content
	default:
		return props
	}
}

func placeholderDescriptor(content any) *Descriptor {
	return &Descriptor{
		Kind:      KindPlaceholder,
		Component: Placeholder,
		Props:     PlaceholderProps{Content: content},
	}
}

// ContentFunc produces content from props.
type ContentFunc func(props any) any

// Evaluable is content computed by evaluating against props, such as an
// Expression.
type Evaluable interface {
	Evaluate(props any) (any, error)
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithClassifier sets the component classifier.
func WithClassifier(classifier Classifier) RendererOption {
	return func(r *Renderer) {
		if classifier != nil {
			r.classifier = classifier
		}
	}
}

// WithEnvironment selects the classifier strategy for env instead of probing.
func WithEnvironment(env Environment, hotReload bool) RendererOption {
	return func(r *Renderer) {
		r.classifier = ClassifierFor(env, hotReload)
	}
}

// WithRendererLogger sets the logger used for content evaluation failures.
func WithRendererLogger(logger *zap.Logger) RendererOption {
	return func(r *Renderer) {
		r.logger = logger
	}
}

// WithRendererEvaluatorLogger records every expression evaluation.
func WithRendererEvaluatorLogger(logger EvaluatorLogger) RendererOption {
	return func(r *Renderer) {
		r.evalLogger = logger
	}
}

// Renderer normalizes content into Descriptors.
type Renderer struct {
	classifier Classifier
	logger     *zap.Logger
	evalLogger EvaluatorLogger
}

// NewRenderer builds a Renderer. Without options it uses the detected
// environment's classifier and the package logger.
func NewRenderer(opts ...RendererOption) *Renderer {
	r := &Renderer{}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.classifier == nil {
		r.classifier = DefaultClassifier()
	}
	if r.evalLogger == nil {
		r.evalLogger = noopEvaluatorLogger{}
	}
	return r
}

var defaultRenderer = sync.OnceValue(func() *Renderer {
	return NewRenderer()
})

// DefaultRenderer returns the shared renderer used when a binding is created
// without WithRenderer.
func DefaultRenderer() *Renderer {
	return defaultRenderer()
}

// Render normalizes content with the default renderer.
func Render(content, props any) *Descriptor {
	return DefaultRenderer().Render(content, props)
}

// IsComponent reports whether the renderer's classifier accepts value.
func (r *Renderer) IsComponent(value any) bool {
	return r.classifier.IsComponent(value)
}

// Render normalizes content:
//   - falsy content returns nil;
//   - a component is wrapped with props;
//   - a *Descriptor is returned as is;
//   - invocable content (funcs, ContentFunc, Evaluable) is called with props;
//     a component result is returned without props, anything else is wrapped
//     in the placeholder;
//   - any other value is wrapped in the placeholder.
func (r *Renderer) Render(content, props any) *Descriptor {
	if isFalsy(content) {
		return nil
	}
	if d, ok := content.(*Descriptor); ok {
		return d
	}
	if r.classifier.IsComponent(content) {
		return &Descriptor{Kind: KindComponent, Component: content, Props: props}
	}
	if result, ok := r.invoke(content, props); ok {
		if d, ok := result.(*Descriptor); ok && d != nil {
			return d
		}
		if r.classifier.IsComponent(result) {
			return &Descriptor{Kind: KindComponent, Component: result}
		}
		return placeholderDescriptor(result)
	}
	return placeholderDescriptor(content)
}

func (r *Renderer) invoke(content, props any) (any, bool) {
	switch fn := content.(type) {
	case ContentFunc:
		return fn(props), true
	case func(any) any:
		return fn(props), true
	case func() any:
		return fn(), true
	case Evaluable:
		return r.evaluate(fn, props), true
	}

	v := reflect.ValueOf(content)
	if v.Kind() != reflect.Func {
		return nil, false
	}
	return r.call(v, props), true
}

func (r *Renderer) evaluate(content Evaluable, props any) any {
	start := time.Now()
	value, err := content.Evaluate(props)
	event := EvaluatorLogEvent{Duration: time.Since(start), Err: err}
	if expr, ok := content.(Expression); ok {
		event.Engine = expr.engine()
		event.Expr = expr.Source
	}
	r.evalLogger.LogEvaluation(event)
	if err != nil {
		fields := []zap.Field{zap.String("engine", event.Engine), zap.Error(err)}
		var evalErr *EvaluationError
		if errors.As(err, &evalErr) && evalErr.Column != "" {
			fields = append(fields, zap.String("column", evalErr.Column))
		}
		r.log().Warn("content evaluation failed", fields...)
		return nil
	}
	return value
}

// call invokes an arbitrary func taking zero or one argument. A trailing
// error result is logged and yields nil content.
func (r *Renderer) call(fn reflect.Value, props any) any {
	t := fn.Type()
	var args []reflect.Value
	switch {
	case t.NumIn() == 0:
	case t.NumIn() == 1 && !t.IsVariadic():
		arg := reflect.New(t.In(0)).Elem()
		if props != nil {
			pv := reflect.ValueOf(props)
			if !pv.Type().AssignableTo(t.In(0)) {
				r.log().Warn("content function props mismatch",
					zap.Stringer("func_type", t),
					zap.Stringer("props_type", pv.Type()),
				)
				return nil
			}
			arg.Set(pv)
		}
		args = []reflect.Value{arg}
	default:
		r.log().Warn("content function signature unsupported", zap.Stringer("func_type", t))
		return nil
	}

	out := fn.Call(args)
	if len(out) == 0 {
		return nil
	}
	if last := out[len(out)-1]; len(out) > 1 && last.Type().Implements(errorType) && !last.IsNil() {
		r.log().Warn("content function failed", zap.Error(last.Interface().(error)))
		return nil
	}
	return out[0].Interface()
}

func (r *Renderer) log() *zap.Logger {
	if r.logger != nil {
		return r.logger
	}
	return Logger()
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// isFalsy treats nil, typed nils, false, "", numeric zero and NaN as absent
// content.
func isFalsy(value any) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Bool:
		return !v.Bool()
	case reflect.String:
		return v.Len() == 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		return f == 0 || math.IsNaN(f)
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface, reflect.UnsafePointer:
		return v.IsNil()
	default:
		return false
	}
}

func isNilValue(value any) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface, reflect.UnsafePointer:
		return v.IsNil()
	default:
		return false
	}
}
