package swrcache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// single adapts the base engine to one standalone value: no loader, no walk,
// one key.
type single[V any] struct {
	st  *store[V]
	res *resource[V]

	mu     sync.Mutex
	closed bool
}

func newSingle[V any](opts ResourceOptions[V]) (*single[V], error) {
	if opts.Namespace == "" {
		return nil, fmt.Errorf("swrcache: namespace is required")
	}
	if opts.Provider == nil {
		return nil, fmt.Errorf("swrcache: provider is required")
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("swrcache: codec is required")
	}
	if opts.Key == "" {
		return nil, fmt.Errorf("swrcache: key is required")
	}
	if opts.Fetch == nil {
		return nil, fmt.Errorf("swrcache: fetch is required")
	}

	log := coalesce[Logger](opts.Logger, NopLogger{})
	hooks := coalesce[Hooks](opts.Hooks, NopHooks{})

	st := &store[V]{
		ns:             opts.Namespace,
		prov:           opts.Provider,
		codec:          opts.Codec,
		computeSetCost: func(_ string, _ []byte, _ string, _ int) int64 { return 1 },
		pageTTL:        coalesce[time.Duration](opts.TTL, defaultPageTTL),
		log:            log,
		hooks:          hooks,
	}

	key := opts.Key
	fetch := opts.Fetch
	s := &single[V]{st: st}
	s.res = newResource(resourceConfig[V]{
		key: st.resKey(key),
		fetch: func(ctx context.Context) (V, bool, error) {
			v, err := fetch(ctx, key)
			return v, err == nil, err
		},
		loadEntry: func(ctx context.Context) (V, int64, bool) {
			return st.readRes(ctx, key)
		},
		saveEntry: func(ctx context.Context, v V, fetchedAt int64) error {
			return st.writeRes(ctx, key, v, fetchedAt)
		},
		dedup: coalesce[time.Duration](opts.DedupInterval, defaultDedup),
		retry: retryConfig{
			attempts:   coalesce[int](opts.RetryAttempts, 1),
			initial:    coalesce[time.Duration](opts.RetryInitialBackoff, defaultRetryInitial),
			max:        coalesce[time.Duration](opts.RetryMaxBackoff, defaultRetryMax),
			multiplier: 2.0,
		},
		refresh: opts.RefreshInterval,
		log:     log,
		notify:  opts.Notify,
	})
	return s, nil
}

func (s *single[V]) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Load returns the current value, fetching in the foreground only when
// nothing is committed yet.
func (s *single[V]) Load(ctx context.Context) (V, error) {
	if s.isClosed() {
		var zero V
		return zero, ErrClosed
	}
	return s.res.loadValue(ctx)
}

// Revalidate fetches immediately, bypassing the dedup window.
func (s *single[V]) Revalidate(ctx context.Context) (V, error) {
	if s.isClosed() {
		var zero V
		return zero, ErrClosed
	}
	return s.res.revalidate(ctx, s.res.fetch, true)
}

// Mutate commits v as the current value, superseding any in-flight fetch.
func (s *single[V]) Mutate(ctx context.Context, v V) error {
	if s.isClosed() {
		return ErrClosed
	}
	s.res.mutate(ctx, v)
	return nil
}

func (s *single[V]) Data() (V, bool) { return s.res.snapshot() }

func (s *single[V]) Err() error { return s.res.lastErr() }

func (s *single[V]) IsValidating() bool { return s.res.validating() }

// Close stops background work; committed data stays readable through Data.
func (s *single[V]) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.res.stop()
	if s.st.prov != nil {
		return s.st.prov.Close(ctx)
	}
	return nil
}
