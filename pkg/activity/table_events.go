package activity

import (
	"reflect"
	"sort"
	"strings"
	"time"
)

// Verbs and object type used for table binding events.
const (
	VerbBindingActivated   = "table.binding.activated"
	VerbBindingDeactivated = "table.binding.deactivated"
	VerbStateChanged       = "table.state.changed"

	ObjectTypeBinding = "table.binding"
)

// State change kinds.
const (
	ChangeReplace  = "replace"
	ChangeFunction = "function"
)

// BindingEventInput carries the fields shared by binding lifecycle events.
type BindingEventInput struct {
	BindingID   string
	ActorID     string
	TenantID    string
	Channel     string
	Cycle       uint64
	Subscribers int
	Metadata    map[string]any
	OccurredAt  time.Time
}

// StateChangeInput describes one intercepted state change.
type StateChangeInput struct {
	BindingEventInput
	Kind     string
	OldState map[string]any
	NewState map[string]any
}

// BuildBindingActivatedEvent is emitted when the first subscriber attaches.
func BuildBindingActivatedEvent(input BindingEventInput) Event {
	return buildBindingEvent(VerbBindingActivated, input)
}

// BuildBindingDeactivatedEvent is emitted when the last subscriber leaves.
func BuildBindingDeactivatedEvent(input BindingEventInput) Event {
	return buildBindingEvent(VerbBindingDeactivated, input)
}

// BuildStateChangedEvent reports the keys that differ between the old and
// new state alongside both snapshots.
func BuildStateChangedEvent(input StateChangeInput) Event {
	event := buildBindingEvent(VerbStateChanged, input.BindingEventInput)
	event.Metadata = ensureMetadata(event.Metadata)
	if input.Kind != "" {
		event.Metadata["kind"] = input.Kind
	}
	event.Metadata["changed_keys"] = ChangedKeys(input.OldState, input.NewState)
	if input.OldState != nil {
		event.Metadata["old_state"] = cloneMap(input.OldState)
	}
	if input.NewState != nil {
		event.Metadata["new_state"] = cloneMap(input.NewState)
	}
	return event
}

func buildBindingEvent(verb string, input BindingEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if input.Cycle > 0 {
		metadata = ensureMetadata(metadata)
		metadata["cycle"] = input.Cycle
	}
	if input.Subscribers > 0 {
		metadata = ensureMetadata(metadata)
		metadata["subscribers"] = input.Subscribers
	}
	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: ObjectTypeBinding,
		ObjectID:   strings.TrimSpace(input.BindingID),
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

// ChangedKeys returns the sorted keys added, removed or replaced between
// before and after.
func ChangedKeys(before, after map[string]any) []string {
	keys := []string{}
	seen := map[string]struct{}{}
	for key, value := range after {
		seen[key] = struct{}{}
		old, ok := before[key]
		if !ok || !reflect.DeepEqual(old, value) {
			keys = append(keys, key)
		}
	}
	for key := range before {
		if _, ok := seen[key]; !ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
