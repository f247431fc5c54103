package swrcache

import (
	"context"

	"github.com/unkn0wn-root/swrcache/internal/util"
)

// Key is a page descriptor: the cache key plus optional fetch arguments.
// The zero Key is the stop sentinel - a loader returning it ends the walk.
type Key struct {
	K    string
	Args []any
}

// NewKey builds a descriptor from a key and optional fetch arguments.
func NewKey(k string, args ...any) Key {
	return Key{K: k, Args: args}
}

// IsZero reports whether the descriptor is the stop sentinel.
func (k Key) IsZero() bool {
	return k.K == "" && k.Args == nil
}

// String returns the stable storage form of the descriptor. Descriptors
// without arguments serialize to the bare key; descriptors with arguments get
// a short deterministic hash suffix so equal tuples collapse to one entry.
func (k Key) String() string {
	if len(k.Args) == 0 {
		return k.K
	}
	return util.ArgsKey(k.K, k.Args)
}

// KeyLoader produces the descriptor for a page index. previous is the
// resolved data of page index-1 within the same walk; nil at index 0.
//
// Returning the zero Key signals "no more pages" and ends the walk. An error
// (or zero Key) at index 0 means the sequence is not ready yet: nothing is
// fetched and no error surfaces. An error at a later index aborts the walk
// and surfaces as a *WalkError.
type KeyLoader[V any] func(index int, previous *V) (Key, error)

// Fetcher resolves one page's data for its descriptor.
type Fetcher[V any] func(ctx context.Context, key Key) (V, error)
