package reactable

import (
	"bytes"
	"errors"
	"io"
	"math"
	"reflect"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type serverWidget struct{}

func (serverWidget) RenderString(props any) (string, error) { return "<widget>", nil }

func (serverWidget) Render(w io.Writer, props any) error {
	_, err := io.WriteString(w, "<widget>")
	return err
}

type halfWidget struct{}

func (halfWidget) RenderString(any) (string, error) { return "", nil }

type clientWidget struct {
	ComponentBase
}

type named string

func (n named) DisplayName() string { return string(n) }

type panickyName struct{}

func (panickyName) DisplayName() string { panic("no name") }

func TestClassifierFailClosed(t *testing.T) {
	var nilWidget *clientWidget
	values := []any{
		nil,
		42,
		"widget",
		struct{}{},
		map[string]any{"render": true},
		func() {},
		halfWidget{},
		named("Widget"),
		named("Proxy<"),
		panickyName{},
		nilWidget,
	}
	classifiers := map[string]Classifier{
		"server":           ServerClassifier{},
		"client":           ClientClassifier{},
		"client-hotreload": ClientClassifier{HotReload: true},
	}

	for name, classifier := range classifiers {
		for _, value := range values {
			if classifier.IsComponent(value) {
				t.Fatalf("%s classifier accepted %#v", name, value)
			}
		}
	}
}

func TestClassifierStrategies(t *testing.T) {
	server := ClassifierFor(EnvironmentServer, false)
	client := ClassifierFor(EnvironmentClient, false)
	hot := ClassifierFor(EnvironmentClient, true)

	if !server.IsComponent(serverWidget{}) {
		t.Fatalf("server strategy should accept structural components")
	}
	if server.IsComponent(clientWidget{}) {
		t.Fatalf("server strategy should not accept client-only components")
	}
	if !client.IsComponent(clientWidget{}) || !client.IsComponent(&clientWidget{}) {
		t.Fatalf("client strategy should accept embedded ComponentBase")
	}
	if client.IsComponent(serverWidget{}) {
		t.Fatalf("client strategy should not accept structural components")
	}
	if client.IsComponent(named("Proxy<Grid>")) {
		t.Fatalf("proxies require the hot-reload marker")
	}
	if !hot.IsComponent(named("Proxy<Grid>")) {
		t.Fatalf("hot-reload strategy should accept proxies")
	}
	if !server.IsComponent(Placeholder) || !client.IsComponent(Placeholder) {
		t.Fatalf("placeholder should satisfy both strategies")
	}
	if DetectEnvironment() != EnvironmentServer {
		t.Fatalf("tests run without a document")
	}
	if EnvironmentClient.String() != "client" || EnvironmentServer.String() != "server" {
		t.Fatalf("unexpected environment names")
	}
}

func TestRenderNullSafety(t *testing.T) {
	r := NewRenderer(WithEnvironment(EnvironmentServer, false))
	var nilPtr *int
	var nilFunc func() any
	falsy := []any{nil, nilPtr, nilFunc, false, "", 0, 0.0, math.NaN(), uint8(0)}
	for _, value := range falsy {
		if d := r.Render(value, "props"); d != nil {
			t.Fatalf("Render(%#v) should be nil, got %#v", value, d)
		}
	}

	d := r.Render(42, "props")
	if d == nil || d.Kind != KindPlaceholder {
		t.Fatalf("expected placeholder descriptor, got %#v", d)
	}
	if d.Component != Placeholder || d.Props != (PlaceholderProps{Content: 42}) {
		t.Fatalf("unexpected placeholder %#v", d)
	}
}

func TestRenderComponentsAndFunctions(t *testing.T) {
	r := NewRenderer(WithEnvironment(EnvironmentServer, false))
	props := map[string]any{"id": 7}

	d := r.Render(serverWidget{}, props)
	if d.Kind != KindComponent || d.Component != (serverWidget{}) || !reflect.DeepEqual(d.Props, props) {
		t.Fatalf("component should be wrapped with props, got %#v", d)
	}

	d = r.Render(func(p any) any { return serverWidget{} }, props)
	if d.Kind != KindComponent || d.Props != nil {
		t.Fatalf("component results should be returned without props, got %#v", d)
	}

	d = r.Render(func(p map[string]any) int { return p["id"].(int) * 2 }, props)
	if d.Kind != KindPlaceholder || d.Props != (PlaceholderProps{Content: 14}) {
		t.Fatalf("typed function results should be wrapped, got %#v", d)
	}

	d = r.Render(ContentFunc(func(any) any { return nil }), props)
	if d == nil || d.Kind != KindPlaceholder || d.Props != (PlaceholderProps{}) {
		t.Fatalf("nil results should wrap an empty placeholder, got %#v", d)
	}

	d = r.Render(func() (string, error) { return "", errors.New("boom") }, props)
	if d == nil || d.Props != (PlaceholderProps{}) {
		t.Fatalf("failing functions should produce empty content, got %#v", d)
	}

	d = r.Render(func(p string) string { return p }, props)
	if d == nil || d.Props != (PlaceholderProps{}) {
		t.Fatalf("mismatched props should produce empty content, got %#v", d)
	}

	existing := &Descriptor{Kind: KindComponent, Component: clientWidget{}}
	if got := r.Render(existing, props); got != existing {
		t.Fatalf("descriptors should pass through unchanged")
	}

	first, second := r.Render("x", nil), r.Render("x", nil)
	if first == second {
		t.Fatalf("descriptors should be built fresh on every call")
	}
}

func TestRenderLogsUncallableFunctions(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	r := NewRenderer(WithEnvironment(EnvironmentServer, false), WithRendererLogger(zap.New(core)))

	type cellProps struct{ Value int }
	type headerProps struct{ Column string }

	invoked := false
	d := r.Render(func(cellProps) any {
		invoked = true
		return "cell"
	}, headerProps{Column: "name"})
	if invoked {
		t.Fatalf("function should not be called with mismatched props")
	}
	if d == nil || d.Kind != KindPlaceholder || d.Props != (PlaceholderProps{}) {
		t.Fatalf("mismatched props should produce empty content, got %#v", d)
	}
	mismatch := logs.FilterMessage("content function props mismatch")
	if mismatch.Len() != 1 {
		t.Fatalf("expected one props mismatch log, got %d", logs.Len())
	}
	fields := mismatch.All()[0].ContextMap()
	if fields["func_type"] != "func(reactable.cellProps) interface {}" || fields["props_type"] != "reactable.headerProps" {
		t.Fatalf("unexpected log fields %#v", fields)
	}

	r.Render(func(a, b any) any { return a }, "props")
	if logs.FilterMessage("content function signature unsupported").Len() != 1 {
		t.Fatalf("expected one unsupported signature log, got %d", logs.Len())
	}
}

func TestRenderEvaluatesExpressions(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	var events []EvaluatorLogEvent
	r := NewRenderer(
		WithEnvironment(EnvironmentServer, false),
		WithRendererLogger(zap.New(core)),
		WithRendererEvaluatorLogger(EvaluatorLoggerFunc(func(event EvaluatorLogEvent) {
			events = append(events, event)
		})),
	)

	d := r.Render(Expr(`name + "!"`), map[string]any{"name": "ada"})
	if d == nil || d.Props != (PlaceholderProps{Content: "ada!"}) {
		t.Fatalf("unexpected expression result %#v", d)
	}

	d = r.Render(Expr(`name +`), map[string]any{"name": "ada"})
	if d == nil || d.Props != (PlaceholderProps{}) {
		t.Fatalf("failed expressions should produce empty content, got %#v", d)
	}

	if len(events) != 2 || events[0].Engine != "expr" || events[0].Err != nil || events[1].Err == nil {
		t.Fatalf("unexpected evaluator events %#v", events)
	}
	if logs.FilterMessage("content evaluation failed").Len() != 1 {
		t.Fatalf("expected one evaluation failure log, got %d", logs.Len())
	}
}

func TestPlaceholderRendersEscapedContent(t *testing.T) {
	out, err := Placeholder.RenderString(PlaceholderProps{Content: "<b>&</b>"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "&lt;b&gt;&amp;&lt;/b&gt;" {
		t.Fatalf("unexpected placeholder output %q", out)
	}

	var buf bytes.Buffer
	if err := Placeholder.Render(&buf, &PlaceholderProps{Content: 3}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if buf.String() != "3" {
		t.Fatalf("unexpected writer output %q", buf.String())
	}

	if out, _ := Placeholder.RenderString(PlaceholderProps{}); out != "" {
		t.Fatalf("nil content should render empty, got %q", out)
	}
}

func TestPackageRenderUsesDefaultRenderer(t *testing.T) {
	if Render(nil, nil) != nil {
		t.Fatalf("nil content should not render")
	}
	if d := Render(serverWidget{}, nil); d == nil || d.Kind != KindComponent {
		t.Fatalf("default renderer should classify server components, got %#v", d)
	}
	if !IsComponent(serverWidget{}) || IsComponent(42) {
		t.Fatalf("IsComponent should use the detected environment")
	}
}

func TestKindString(t *testing.T) {
	if KindComponent.String() != "component" || KindPlaceholder.String() != "placeholder" || Kind(0).String() != "unknown" {
		t.Fatalf("unexpected kind names")
	}
}
