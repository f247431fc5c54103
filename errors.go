package swrcache

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by operations invoked after Close.
var ErrClosed = errors.New("swrcache: closed")

// WalkError reports a failure while walking a page sequence: either the key
// loader failed for an index > 0, or a page fetch failed. Pages fetched
// earlier in the same walk keep their cache writes.
type WalkError struct {
	Index int
	Key   Key
	Err   error
}

func (e *WalkError) Error() string {
	if e.Key.IsZero() {
		return fmt.Sprintf("swrcache: page %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("swrcache: page %d (%s): %v", e.Index, e.Key.String(), e.Err)
}

func (e *WalkError) Unwrap() error { return e.Err }
