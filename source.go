package reactable

import (
	"fmt"

	"github.com/goliatone/go-reactable/pkg/store"
)

// Adapt exposes source as a stream of option snapshots. A store.Readable of
// Options is returned unchanged; Options (or a non-nil pointer to Options)
// becomes a stream that emits once to every subscriber. Anything else fails
// with ErrInvalidSource.
func Adapt[C any](source any) (store.Readable[Options[C]], error) {
	switch src := source.(type) {
	case store.Readable[Options[C]]:
		if isNilValue(src) {
			return nil, fmt.Errorf("%w: nil %T", ErrInvalidSource, source)
		}
		return src, nil
	case Options[C]:
		return store.Static(src), nil
	case *Options[C]:
		if src == nil {
			return nil, fmt.Errorf("%w: nil %T", ErrInvalidSource, source)
		}
		return store.Static(*src), nil
	case nil:
		return nil, fmt.Errorf("%w: nil", ErrInvalidSource)
	default:
		return nil, fmt.Errorf("%w: got %T", ErrInvalidSource, source)
	}
}
