package reactable

import (
	"context"
	"strings"

	"github.com/goliatone/go-reactable/pkg/activity"
	"github.com/goliatone/go-reactable/pkg/state"
	"go.uber.org/zap"
)

// Option configures a Binding.
type Option func(*bindingConfig)

type bindingConfig struct {
	id           string
	ctx          context.Context
	logger       *zap.Logger
	errorHandler func(error)
	renderer     *Renderer
	hooks        activity.Hooks
	activity     activity.Config
	stateStore   state.Store[State]
	stateRef     state.Ref
}

func applyOptions(opts []Option) bindingConfig {
	cfg := bindingConfig{
		activity: activity.Config{Enabled: true, Channel: DefaultActivityChannel},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithID fixes the binding identifier used in logs, activity events and
// errors. A UUIDv7 is generated when omitted.
func WithID(id string) Option {
	return func(cfg *bindingConfig) {
		cfg.id = strings.TrimSpace(id)
	}
}

// WithContext sets the context used for activity emission and state
// persistence triggered by the binding.
func WithContext(ctx context.Context) Option {
	return func(cfg *bindingConfig) {
		cfg.ctx = ctx
	}
}

// WithLogger scopes a logger to the binding.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *bindingConfig) {
		cfg.logger = logger
	}
}

// WithErrorHandler receives synchronization, persistence and activity errors
// in addition to the binding log.
func WithErrorHandler(handler func(error)) Option {
	return func(cfg *bindingConfig) {
		cfg.errorHandler = handler
	}
}

// WithRenderer installs the renderer used as the default Render option.
func WithRenderer(renderer *Renderer) Option {
	return func(cfg *bindingConfig) {
		cfg.renderer = renderer
	}
}

// WithActivityHooks attaches hooks notified about activation and state
// changes. Nil hooks are dropped.
func WithActivityHooks(hooks ...activity.ActivityHook) Option {
	return func(cfg *bindingConfig) {
		for _, hook := range hooks {
			if hook != nil {
				cfg.hooks = append(cfg.hooks, hook)
			}
		}
	}
}

// WithActivityConfig overrides the activity emitter configuration.
func WithActivityConfig(config activity.Config) Option {
	return func(cfg *bindingConfig) {
		cfg.activity = config
	}
}

// WithStateStore seeds internal state from st and saves it after every
// intercepted state change.
func WithStateStore(st state.Store[State], ref state.Ref) Option {
	return func(cfg *bindingConfig) {
		cfg.stateStore = st
		cfg.stateRef = ref
	}
}

func (cfg bindingConfig) context() context.Context {
	if cfg.ctx != nil {
		return cfg.ctx
	}
	return context.Background()
}

func (cfg bindingConfig) loggerOrDefault() *zap.Logger {
	if cfg.logger != nil {
		return cfg.logger
	}
	return Logger()
}

func (cfg bindingConfig) rendererOrDefault() *Renderer {
	if cfg.renderer != nil {
		return cfg.renderer
	}
	return DefaultRenderer()
}
