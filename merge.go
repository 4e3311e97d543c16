package reactable

import "github.com/goliatone/go-reactable/layering"

// Precedence layer names, weakest first: engine < defaults < snapshot <
// overlay. Within the overlay, internal state is weaker than the snapshot's
// state fragment.
const (
	LayerEngine   = "engine"
	LayerDefaults = "defaults"
	LayerSnapshot = "snapshot"
	LayerOverlay  = "overlay"
	LayerInternal = "internal"
)

func noopStateChange(Updater) error { return nil }

func defaultOptions[C any](render RenderFunc) Options[C] {
	return Options[C]{
		State:         State{},
		OnStateChange: noopStateChange,
		Render:        render,
	}
}

// mergeOptions overlays option layers ordered from strongest to weakest.
//
// Config is spread one level deep. State is replaced wholesale by the
// strongest layer that carries a non-nil map. Funcs and the fallback value
// come from the strongest layer that sets them.
func mergeOptions[C any](layers ...Options[C]) Options[C] {
	var out Options[C]
	configs := make([]C, len(layers))
	for i := len(layers) - 1; i >= 0; i-- {
		layer := layers[i]
		configs[i] = layer.Config
		if layer.State != nil {
			out.State = layer.State
		}
		if layer.OnStateChange != nil {
			out.OnStateChange = layer.OnStateChange
		}
		if layer.Render != nil {
			out.Render = layer.Render
		}
		if layer.RenderFallbackValue != nil {
			out.RenderFallbackValue = layer.RenderFallbackValue
		}
	}
	out.Config = layering.Spread(configs...)
	return out
}

// baseOptions is the engine's own options under the defaults. It is fixed at
// construction and every cycle merges the latest snapshot over it.
func baseOptions[C any](engine, defaults Options[C]) Options[C] {
	return mergeOptions(defaults, engine)
}

// overlayOptions is the per-cycle layer: the merged state and the intercepting
// state change handler.
func overlayOptions[C any](internal State, snapshot Options[C], intercept StateChangeFunc) Options[C] {
	return Options[C]{
		State:         internal.Merge(snapshot.State),
		OnStateChange: intercept,
	}
}

// cycleRecord keeps the inputs of the last successful cycle for tracing.
type cycleRecord[C any] struct {
	cycle    uint64
	base     Options[C]
	snapshot Options[C]
	internal State
	merged   Options[C]
}
