//go:build !(js && wasm)

package reactable

func probeEnvironment() environmentProbe {
	return environmentProbe{env: EnvironmentServer}
}
