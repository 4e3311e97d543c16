package reactable

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/goliatone/go-reactable/layering"
	"github.com/goliatone/go-reactable/pkg/activity"
	"github.com/goliatone/go-reactable/pkg/state"
	"github.com/goliatone/go-reactable/pkg/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultActivityChannel is the channel stamped on binding activity events.
const DefaultActivityChannel = activity.DefaultChannel

// Binding keeps an engine instance synchronized with a configuration source
// and the state it owns, and publishes the instance to subscribers.
//
// The synchronization loop runs only while the binding has subscribers. Every
// emission of the configuration source or the internal state produces one
// SetOptions call and one republish of the same instance.
type Binding[C any] struct {
	id       string
	cfg      bindingConfig
	logger   *zap.Logger
	emitter  *activity.Emitter
	instance Instance[C]
	base     Options[C]
	resolved Options[C]
	source   store.Readable[Options[C]]

	state     *store.Store[State]
	published *store.Store[Instance[C]]
	cycles    atomic.Uint64

	mu       sync.Mutex
	lastErr  error
	capture  *error
	last     *cycleRecord[C]
	snapshot *Options[C]
}

// Tick pairs the published instance with the number of completed cycles, for
// consumers that deduplicate by reference identity.
type Tick[C any] struct {
	Instance Instance[C]
	Cycle    uint64
}

// CreateBinding binds handle to source, which is either Options[C], a
// non-nil *Options[C] or a store.Readable[Options[C]].
//
// The engine instance is constructed immediately from the engine's base
// options, the defaults and the source's current snapshot. Internal state is
// seeded from the instance's initial state, overlaid by the persisted state
// when WithStateStore is set.
func CreateBinding[C any](handle Handle[C], source any, opts ...Option) (*Binding[C], error) {
	if isNilValue(handle) {
		return nil, ErrHandleRequired
	}
	src, err := Adapt[C](source)
	if err != nil {
		return nil, err
	}

	cfg := applyOptions(opts)
	id := cfg.id
	if id == "" {
		id = uuid.Must(uuid.NewV7()).String()
	}

	b := &Binding[C]{
		id:      id,
		cfg:     cfg,
		logger:  cfg.loggerOrDefault().With(zap.String("binding_id", id)),
		emitter: activity.NewEmitter(cfg.hooks, cfg.activity),
		source:  src,
	}

	snapshot, _ := store.Get(src)
	b.base = baseOptions(handle.Options(), defaultOptions[C](cfg.rendererOrDefault().Render))
	b.resolved = mergeOptions(snapshot, b.base)

	instance, err := handle.NewInstance(b.resolved)
	if err != nil {
		return nil, fmt.Errorf("reactable: create instance: %w", err)
	}
	if isNilValue(instance) {
		return nil, ErrNilInstance
	}
	b.instance = instance

	initial, err := b.seedState(instance.InitialState())
	if err != nil {
		return nil, err
	}
	b.state = store.New(initial)

	combined := store.Combine(store.ReadOnly[State](b.state), src)
	b.published = store.NewWithStart(instance, func(func(Instance[C])) func() {
		b.logger.Debug("table binding activated")
		b.emit(activity.BuildBindingActivatedEvent(b.eventInput()))

		unsubscribe := combined.Subscribe(b.sync)
		return func() {
			unsubscribe()
			b.logger.Debug("table binding deactivated", zap.Uint64("cycles", b.Cycles()))
			b.emit(activity.BuildBindingDeactivatedEvent(b.eventInput()))
		}
	})

	b.logger.Debug("table binding created", zap.Strings("state_keys", initial.Keys()))
	return b, nil
}

func (b *Binding[C]) seedState(initial State) (State, error) {
	seeded := initial.Clone()
	if seeded == nil {
		seeded = State{}
	}
	if b.cfg.stateStore == nil {
		return seeded, nil
	}

	persisted, _, ok, err := b.cfg.stateStore.Load(b.cfg.context(), b.cfg.stateRef)
	if err != nil {
		return nil, fmt.Errorf("reactable: load state: %w", err)
	}
	if !ok {
		return seeded, nil
	}
	return layering.MergeLayers(persisted, seeded), nil
}

// sync runs one merge and republish cycle.
func (b *Binding[C]) sync(pair store.Pair[State, Options[C]]) {
	internal, snapshot := pair.First, pair.Second

	b.mu.Lock()
	b.snapshot = &snapshot
	b.mu.Unlock()

	cycle := b.cycles.Load() + 1
	var record *cycleRecord[C]
	err := b.instance.SetOptions(func(Options[C]) Options[C] {
		merged := mergeOptions(overlayOptions(internal, snapshot, b.intercept), snapshot, b.base)
		record = &cycleRecord[C]{
			cycle:    cycle,
			base:     b.base,
			snapshot: snapshot,
			internal: internal.Clone(),
			merged:   merged,
		}
		return merged
	})
	if err != nil {
		b.fail(&SyncError{BindingID: b.id, Cycle: cycle, Err: err})
		return
	}

	b.cycles.Store(cycle)
	b.mu.Lock()
	if record != nil {
		b.last = record
	}
	b.lastErr = nil
	b.mu.Unlock()

	b.logger.Debug("table options synchronized", zap.Uint64("cycle", cycle), zap.Strings("state_keys", internal.Merge(snapshot.State).Keys()))
	b.published.Set(b.instance)
}

func (b *Binding[C]) fail(err error) {
	b.mu.Lock()
	b.lastErr = err
	if b.capture != nil && *b.capture == nil {
		*b.capture = err
	}
	b.mu.Unlock()

	b.logger.Error("table options synchronization failed", zap.Error(err))
	if b.cfg.errorHandler != nil {
		b.cfg.errorHandler(err)
	}
}

// intercept is installed as OnStateChange on every cycle. The updater is
// applied to internal state and then forwarded unchanged to the caller's
// handler. Errors of the cycle it triggers are returned.
func (b *Binding[C]) intercept(updater Updater) error {
	if isNilValue(updater) {
		return ErrNilUpdater
	}
	prev, _ := store.Get[State](b.state)

	var cycleErr error
	b.mu.Lock()
	outer := b.capture
	b.capture = &cycleErr
	b.mu.Unlock()

	kind := activity.ChangeFunction
	if replacement, ok := updater.(State); ok {
		kind = activity.ChangeReplace
		b.state.Set(replacement.Clone())
	} else {
		b.state.Update(func(current State) State {
			return updater.Apply(current.Clone())
		})
	}

	b.mu.Lock()
	b.capture = outer
	b.mu.Unlock()

	next, _ := store.Get[State](b.state)
	errs := []error{cycleErr}
	if forward := b.forwardHandler(); forward != nil {
		errs = append(errs, forward(updater))
	}
	errs = append(errs, b.persist(b.cfg.context(), next))

	input := activity.StateChangeInput{
		BindingEventInput: b.eventInput(),
		Kind:              kind,
		OldState:          prev,
		NewState:          next,
	}
	errs = append(errs, b.emit(activity.BuildStateChangedEvent(input)))
	return errors.Join(errs...)
}

func (b *Binding[C]) forwardHandler() StateChangeFunc {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.snapshot != nil && b.snapshot.OnStateChange != nil {
		return b.snapshot.OnStateChange
	}
	return b.resolved.OnStateChange
}

func (b *Binding[C]) persist(ctx context.Context, current State) error {
	if b.cfg.stateStore == nil {
		return nil
	}
	if _, err := b.cfg.stateStore.Save(ctx, b.cfg.stateRef, current.Clone(), state.Meta{}); err != nil {
		err = fmt.Errorf("reactable: save state: %w", err)
		b.logger.Warn("table state persistence failed", zap.Error(err))
		return err
	}
	return nil
}

func (b *Binding[C]) emit(event activity.Event) error {
	if !b.emitter.Enabled() {
		return nil
	}
	if err := b.emitter.Emit(b.cfg.context(), event); err != nil {
		b.logger.Warn("activity emission failed", zap.String("verb", event.Verb), zap.Error(err))
		return err
	}
	return nil
}

func (b *Binding[C]) eventInput() activity.BindingEventInput {
	return activity.BindingEventInput{
		BindingID:   b.id,
		Cycle:       b.Cycles(),
		Subscribers: b.published.Subscribers(),
	}
}

// Subscribe implements store.Readable. The first subscriber activates the
// synchronization loop; every subscriber immediately receives the instance.
func (b *Binding[C]) Subscribe(fn func(Instance[C])) func() {
	return b.published.Subscribe(fn)
}

// Ticks publishes the instance together with the completed cycle count.
func (b *Binding[C]) Ticks() store.Readable[Tick[C]] {
	return store.Map[Instance[C]](b, func(instance Instance[C]) Tick[C] {
		return Tick[C]{Instance: instance, Cycle: b.Cycles()}
	})
}

// Dispatch applies updater exactly as the engine's OnStateChange would.
func (b *Binding[C]) Dispatch(updater Updater) error {
	return b.intercept(updater)
}

// ID returns the binding identifier.
func (b *Binding[C]) ID() string { return b.id }

// Instance returns the engine instance without subscribing.
func (b *Binding[C]) Instance() Instance[C] { return b.instance }

// Resolved returns the options the instance was constructed with.
func (b *Binding[C]) Resolved() Options[C] { return b.resolved }

// State exposes the internal state.
func (b *Binding[C]) State() store.Readable[State] {
	return store.ReadOnly[State](b.state)
}

// Cycles reports the number of successful synchronization cycles.
func (b *Binding[C]) Cycles() uint64 { return b.cycles.Load() }

// Active reports whether the binding has subscribers.
func (b *Binding[C]) Active() bool {
	return b.published.Subscribers() > 0
}

// Err returns the error of the most recent cycle, nil after a successful one.
func (b *Binding[C]) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}

// Trace reports the provenance of path in the last successful cycle.
func (b *Binding[C]) Trace(path string) (Trace, error) {
	b.mu.Lock()
	record := b.last
	b.mu.Unlock()
	if record == nil {
		return Trace{}, ErrNoCycle
	}
	return traceRecord(record, path)
}

// Persist saves the current internal state to the configured state store.
func (b *Binding[C]) Persist(ctx context.Context) error {
	current, _ := store.Get[State](b.state)
	return b.persist(ctx, current)
}

var _ store.Readable[Instance[struct{}]] = (*Binding[struct{}])(nil)
