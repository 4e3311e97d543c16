package reactable

import (
	"io"
	"strings"
	"sync"
)

// Classifier decides whether a value is a mountable component. It never
// fails: anything it cannot recognise is not a component.
type Classifier interface {
	IsComponent(value any) bool
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(value any) bool

// IsComponent implements Classifier.
func (f ClassifierFunc) IsComponent(value any) bool {
	if f == nil {
		return false
	}
	return f(value)
}

// ServerComponent is the structural contract of a component rendered without
// a document: it renders to a string and to a writer.
type ServerComponent interface {
	RenderString(props any) (string, error)
	Render(w io.Writer, props any) error
}

// ComponentBase marks a type as a client component when embedded.
type ComponentBase struct{}

func (ComponentBase) reactableComponent() {}

type clientComponent interface {
	reactableComponent()
}

// DisplayNamer exposes the name tooling gives a component. Hot reloading
// wraps components in proxies named "Proxy<Name>".
type DisplayNamer interface {
	DisplayName() string
}

// ServerClassifier recognises ServerComponent values.
type ServerClassifier struct{}

// IsComponent implements Classifier.
func (ServerClassifier) IsComponent(value any) bool {
	if isNilValue(value) {
		return false
	}
	_, ok := value.(ServerComponent)
	return ok
}

// ClientClassifier recognises values embedding ComponentBase and, when
// HotReload is set, hot-reload proxies identified by their display name.
type ClientClassifier struct {
	HotReload bool
}

// IsComponent implements Classifier.
func (c ClientClassifier) IsComponent(value any) bool {
	if isNilValue(value) {
		return false
	}
	if _, ok := value.(clientComponent); ok {
		return true
	}
	if !c.HotReload {
		return false
	}
	return isProxyName(displayName(value))
}

const proxyPrefix = "Proxy<"

func isProxyName(name string) bool {
	return len(name) > len(proxyPrefix) && strings.HasPrefix(name, proxyPrefix) && strings.HasSuffix(name, ">")
}

func displayName(value any) (name string) {
	namer, ok := value.(DisplayNamer)
	if !ok {
		return ""
	}
	defer func() {
		if recover() != nil {
			name = ""
		}
	}()
	return namer.DisplayName()
}

// Environment is the runtime a classifier targets.
type Environment uint8

const (
	// EnvironmentServer has no document; components are matched structurally.
	EnvironmentServer Environment = iota
	// EnvironmentClient runs with a document and live component types.
	EnvironmentClient
)

func (e Environment) String() string {
	switch e {
	case EnvironmentClient:
		return "client"
	default:
		return "server"
	}
}

// HotReloadMarker is the global whose presence enables hot-reload proxy
// detection on the client.
const HotReloadMarker = "__REACTABLE_HMR"

type environmentProbe struct {
	env       Environment
	hotReload bool
}

var (
	probeOnce sync.Once
	probed    environmentProbe
)

func detect() environmentProbe {
	probeOnce.Do(func() {
		probed = probeEnvironment()
	})
	return probed
}

// DetectEnvironment reports the runtime environment. The probe runs once per
// process.
func DetectEnvironment() Environment {
	return detect().env
}

// ClassifierFor returns the strategy for env.
func ClassifierFor(env Environment, hotReload bool) Classifier {
	if env == EnvironmentClient {
		return ClientClassifier{HotReload: hotReload}
	}
	return ServerClassifier{}
}

// DefaultClassifier returns the strategy for the detected environment.
func DefaultClassifier() Classifier {
	p := detect()
	return ClassifierFor(p.env, p.hotReload)
}

// IsComponent classifies value with the default classifier.
func IsComponent(value any) bool {
	return DefaultClassifier().IsComponent(value)
}
