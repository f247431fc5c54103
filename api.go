package swrcache

import (
	"context"
	"time"

	c "github.com/unkn0wn-root/swrcache/codec"
	gen "github.com/unkn0wn-root/swrcache/genstore"
	pr "github.com/unkn0wn-root/swrcache/provider"
)

const (
	defaultPageTTL      = 10 * time.Minute
	defaultSizeTTL      = 7 * 24 * time.Hour
	defaultDedup        = 2 * time.Second
	defaultRetryInitial = 100 * time.Millisecond
	defaultRetryMax     = 2 * time.Second
	defaultGenRetention = 30 * 24 * time.Hour
	defaultSweep        = time.Hour
)

// SetCostFunc computes the cost passed to Provider.Set.
// kind ∈ {"page", "list", "size", "res"}; items is the element count for
// "list" writes and 1 otherwise.
type SetCostFunc func(key string, raw []byte, kind string, items int) int64

// Pages is the paginated stale-while-revalidate surface. V is one page's
// value type; the assembled result is []V ordered by page index.
// Serialization is handled by a pluggable Codec[V].
type Pages[V any] interface {
	// Triggering operations (recompute the sequence identity, may fetch)
	Load(ctx context.Context) ([]V, error)
	Revalidate(ctx context.Context) ([]V, error)
	SetSize(ctx context.Context, n int) ([]V, error)
	SetSizeFunc(ctx context.Context, f func(current int) int) ([]V, error)
	Mutate(ctx context.Context, data []V, revalidate bool) ([]V, error)

	// Observers (never invoke the loader, never fetch)
	Data() ([]V, bool)
	Err() error
	IsValidating() bool
	Size() int

	Close(context.Context) error
}

// Options tune a page sequence.
// Namespace, Provider, Codec, Loader and Fetch are required; everything else
// has defaults.
type Options[V any] struct {
	// Required
	Namespace string // logical namespace to avoid collisions. e.g. "feed", "orders"
	Provider  pr.Provider
	Codec     c.Codec[V]
	Loader    KeyLoader[V]
	Fetch     Fetcher[V]

	InitialSize   int  // page count before any SetSize; 0 => 1
	RevalidateAll bool // refetch every page on every cycle
	PersistSize   bool // carry the page count across identity changes

	Compare func(a, b V) bool // page equality for diff cycles; nil => reflect.DeepEqual

	PageTTL     time.Duration // per-page entries; 0 => 10m
	SequenceTTL time.Duration // assembled array entry; 0 => PageTTL
	SizeTTL     time.Duration // persisted page count; 0 => 7d
	PageTimeout time.Duration // per-page fetch deadline; 0 => none

	DedupInterval       time.Duration // window where completed fetches satisfy new loads; 0 => 2s
	RetryAttempts       int           // fetch attempts per cycle; 0 => 1 (no retry)
	RetryInitialBackoff time.Duration // 0 => 100ms
	RetryMaxBackoff     time.Duration // 0 => 2s
	RefreshInterval     time.Duration // background revalidation period; 0 => off

	CleanupInterval time.Duration // local gen store sweep; 0 => 1h
	GenRetention    time.Duration // 0 => 30d

	ComputeSetCost SetCostFunc  // default 1
	GenStore       gen.GenStore // nil => LocalGenStore (in-process)

	Logger Logger // if nil, NopLogger is used
	Hooks  Hooks  // if nil, NopHooks is used
	Notify func() // called after observable state changes; nil => none
}

func New[V any](opts Options[V]) (Pages[V], error) {
	return newPages[V](opts)
}

// Resource is the single-value stale-while-revalidate surface: the same
// engine a page sequence runs on, bound to one key.
type Resource[V any] interface {
	Load(ctx context.Context) (V, error)
	Revalidate(ctx context.Context) (V, error)
	Mutate(ctx context.Context, v V) error

	Data() (V, bool)
	Err() error
	IsValidating() bool

	Close(context.Context) error
}

// ResourceOptions tune a standalone resource.
// Namespace, Provider, Codec, Key and Fetch are required.
type ResourceOptions[V any] struct {
	// Required
	Namespace string
	Provider  pr.Provider
	Codec     c.Codec[V]
	Key       string
	Fetch     func(ctx context.Context, key string) (V, error)

	TTL                 time.Duration // 0 => 10m
	DedupInterval       time.Duration // 0 => 2s
	RetryAttempts       int           // 0 => 1 (no retry)
	RetryInitialBackoff time.Duration // 0 => 100ms
	RetryMaxBackoff     time.Duration // 0 => 2s
	RefreshInterval     time.Duration // 0 => off

	Logger Logger
	Hooks  Hooks
	Notify func()
}

func NewResource[V any](opts ResourceOptions[V]) (Resource[V], error) {
	return newSingle[V](opts)
}
