package reactable

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Trace reports which precedence layers supplied a merged option during the
// last synchronization cycle. Layers are ordered strongest first.
type Trace struct {
	Path   string       `json:"path"`
	Cycle  uint64       `json:"cycle"`
	Layers []Provenance `json:"layers"`
}

// Provenance describes one layer's contribution to a traced path. Func values
// are reported as found without a value.
type Provenance struct {
	Layer string `json:"layer"`
	Value any    `json:"value,omitempty"`
	Found bool   `json:"found"`
}

// Winner returns the strongest layer that supplied the path.
func (t Trace) Winner() (Provenance, bool) {
	for _, layer := range t.Layers {
		if layer.Found {
			return layer, true
		}
	}
	return Provenance{}, false
}

// ToJSON serialises the trace.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON decodes a payload produced by ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}

// Supported paths: "state.<key>", "config.<field or key>", "render",
// "onStateChange" and "renderFallbackValue".
func traceRecord[C any](record *cycleRecord[C], path string) (Trace, error) {
	trace := Trace{Path: path, Cycle: record.cycle}
	head, rest, _ := strings.Cut(path, ".")

	switch head {
	case "state":
		if rest == "" {
			return Trace{}, fmt.Errorf("%w: %q", ErrUnknownPath, path)
		}
		snapValue, inSnapshot := record.snapshot.State[rest]
		internalValue, inInternal := record.internal[rest]
		trace.Layers = []Provenance{
			{Layer: LayerSnapshot, Value: snapValue, Found: inSnapshot},
			{Layer: LayerInternal, Value: internalValue, Found: inInternal},
		}
	case "config":
		if rest == "" {
			return Trace{}, fmt.Errorf("%w: %q", ErrUnknownPath, path)
		}
		snapValue, inSnapshot := lookupConfig(record.snapshot.Config, rest)
		baseValue, inBase := lookupConfig(record.base.Config, rest)
		trace.Layers = []Provenance{
			{Layer: LayerSnapshot, Value: snapValue, Found: inSnapshot},
			{Layer: LayerEngine, Value: baseValue, Found: inBase},
		}
	case "onStateChange":
		trace.Layers = []Provenance{
			{Layer: LayerOverlay, Found: true},
			{Layer: LayerSnapshot, Found: record.snapshot.OnStateChange != nil},
			{Layer: LayerEngine, Found: record.base.OnStateChange != nil},
		}
	case "render":
		trace.Layers = []Provenance{
			{Layer: LayerSnapshot, Found: record.snapshot.Render != nil},
			{Layer: LayerEngine, Found: record.base.Render != nil},
		}
	case "renderFallbackValue":
		trace.Layers = []Provenance{
			{Layer: LayerSnapshot, Value: record.snapshot.RenderFallbackValue, Found: record.snapshot.RenderFallbackValue != nil},
			{Layer: LayerEngine, Value: record.base.RenderFallbackValue, Found: record.base.RenderFallbackValue != nil},
		}
	default:
		return Trace{}, fmt.Errorf("%w: %q", ErrUnknownPath, path)
	}
	return trace, nil
}

func lookupConfig(config any, key string) (any, bool) {
	v := reflect.ValueOf(config)
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return nil, false
	}

	switch v.Kind() {
	case reflect.Struct:
		field, ok := v.Type().FieldByName(key)
		if !ok || !field.IsExported() {
			return nil, false
		}
		value := v.FieldByIndex(field.Index)
		if value.IsZero() {
			return nil, false
		}
		return value.Interface(), true
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		value := v.MapIndex(reflect.ValueOf(key).Convert(v.Type().Key()))
		if !value.IsValid() {
			return nil, false
		}
		return value.Interface(), true
	default:
		return nil, false
	}
}
