//go:build js && wasm

package reactable

import "syscall/js"

func probeEnvironment() environmentProbe {
	global := js.Global()
	document := global.Get("document")
	if document.IsUndefined() || document.IsNull() {
		return environmentProbe{env: EnvironmentServer}
	}
	marker := global.Get(HotReloadMarker)
	return environmentProbe{
		env:       EnvironmentClient,
		hotReload: !marker.IsUndefined(),
	}
}
