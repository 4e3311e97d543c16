package reactable

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSource indicates CreateBinding received something that is
	// neither Options nor a store.Readable of Options.
	ErrInvalidSource = errors.New("reactable: source must be Options or a store.Readable of Options")
	// ErrHandleRequired indicates a nil engine handle.
	ErrHandleRequired = errors.New("reactable: engine handle is required")
	// ErrNilInstance indicates the engine returned a nil instance without an
	// error.
	ErrNilInstance = errors.New("reactable: engine returned a nil instance")
	// ErrNilUpdater indicates a state change was raised without an updater.
	ErrNilUpdater = errors.New("reactable: updater must not be nil")
	// ErrNoCycle indicates a trace was requested before any synchronization.
	ErrNoCycle = errors.New("reactable: binding has not synchronized yet")
	// ErrUnknownPath indicates a trace path that names no merged field.
	ErrUnknownPath = errors.New("reactable: unknown trace path")
)

// SyncError wraps an engine rejection raised while applying merged options.
type SyncError struct {
	BindingID string
	Cycle     uint64
	Err       error
}

func (e *SyncError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("reactable: binding %s cycle %d: set options: %v", e.BindingID, e.Cycle, e.Err)
}

func (e *SyncError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
