package swrcache

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	gen "github.com/unkn0wn-root/swrcache/genstore"
)

// pages coordinates one page sequence. It derives the sequence identity from
// the loader's page-0 descriptor, owns the page count, and funnels every
// fetch cycle through a single base resource holding the assembled array.
//
// The identity is recomputed by every triggering operation (Load, Revalidate,
// SetSize, Mutate). When it changes, the sequence rebinds: the old resource
// stops and a fresh one starts against the new identity's cache entries.
// Observers (Data, Err, IsValidating, Size) read the current binding and
// never invoke the loader.
type pages[V any] struct {
	ns     string
	st     *store[V]
	loader KeyLoader[V]
	fetch  Fetcher[V]
	cmp    func(a, b V) bool
	log    Logger
	hooks  Hooks
	notify func()

	initialSize   int
	revalidateAll bool
	persistSize   bool
	pageTimeout   time.Duration
	dedup         time.Duration
	retry         retryConfig
	refresh       time.Duration

	mu        sync.Mutex
	id        string // current sequence identity; "" while disabled
	size      int
	everBound bool
	res       *resource[[]V]
	closed    bool
}

func newPages[V any](opts Options[V]) (*pages[V], error) {
	if opts.Namespace == "" {
		return nil, fmt.Errorf("swrcache: namespace is required")
	}
	if opts.Provider == nil {
		return nil, fmt.Errorf("swrcache: provider is required")
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("swrcache: codec is required")
	}
	if opts.Loader == nil {
		return nil, fmt.Errorf("swrcache: loader is required")
	}
	if opts.Fetch == nil {
		return nil, fmt.Errorf("swrcache: fetch is required")
	}

	p := &pages[V]{
		ns:            opts.Namespace,
		loader:        opts.Loader,
		fetch:         opts.Fetch,
		revalidateAll: opts.RevalidateAll,
		persistSize:   opts.PersistSize,
		pageTimeout:   opts.PageTimeout,
		refresh:       opts.RefreshInterval,
	}

	// defaults
	p.log = coalesce[Logger](opts.Logger, NopLogger{})
	p.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	p.initialSize = coalesce[int](opts.InitialSize, 1)
	p.size = p.initialSize
	p.dedup = coalesce[time.Duration](opts.DedupInterval, defaultDedup)
	p.retry = retryConfig{
		attempts:   coalesce[int](opts.RetryAttempts, 1),
		initial:    coalesce[time.Duration](opts.RetryInitialBackoff, defaultRetryInitial),
		max:        coalesce[time.Duration](opts.RetryMaxBackoff, defaultRetryMax),
		multiplier: 2.0,
	}

	p.cmp = opts.Compare
	if p.cmp == nil {
		p.cmp = func(a, b V) bool { return reflect.DeepEqual(a, b) }
	}
	p.notify = opts.Notify
	if p.notify == nil {
		p.notify = func() {}
	}

	g := opts.GenStore
	if g == nil {
		// in-process generations with periodic cleanup
		sweep := coalesce[time.Duration](opts.CleanupInterval, defaultSweep)
		retention := coalesce[time.Duration](opts.GenRetention, defaultGenRetention)
		g = gen.NewLocalGenStore(sweep, retention)
	}

	cost := opts.ComputeSetCost
	if cost == nil {
		cost = func(_ string, _ []byte, _ string, _ int) int64 { return 1 }
	}

	pageTTL := coalesce[time.Duration](opts.PageTTL, defaultPageTTL)
	p.st = &store[V]{
		ns:             opts.Namespace,
		prov:           opts.Provider,
		codec:          opts.Codec,
		gen:            g,
		computeSetCost: cost,
		pageTTL:        pageTTL,
		listTTL:        coalesce[time.Duration](opts.SequenceTTL, pageTTL),
		sizeTTL:        coalesce[time.Duration](opts.SizeTTL, defaultSizeTTL),
		log:            p.log,
		hooks:          p.hooks,
	}
	return p, nil
}

// resolve recomputes the sequence identity and returns the resource bound to
// it. A nil resource with a nil error means the sequence is disabled: the
// loader cannot produce a page-0 descriptor yet.
func (p *pages[V]) resolve(ctx context.Context) (*resource[[]V], string, error) {
	k0, err := p.loader(0, nil)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, "", ErrClosed
	}
	if err != nil || k0.IsZero() {
		// not ready; drop any binding so stale state cannot serve
		old := p.res
		p.res = nil
		p.id = ""
		p.mu.Unlock()
		if old != nil {
			old.stop()
		}
		return nil, "", nil
	}
	id := k0.String()
	if p.res != nil && p.id == id {
		res := p.res
		p.mu.Unlock()
		return res, id, nil
	}
	firstBind := !p.everBound
	carried := p.size
	p.mu.Unlock()

	// size for the new binding: the first bind ever restores a persisted
	// count, later rebinds carry the current count only with persistSize
	// (and re-persist whichever count they settled on)
	size := p.initialSize
	persistAfter := false
	switch {
	case firstBind:
		// restore the persisted count; absent one, keep the current count
		// (a SetSize issued before the sequence was ready lands here)
		size = carried
		if n, ok := p.st.readSize(ctx, id); ok {
			size = n
		}
	case p.persistSize:
		size = carried
		persistAfter = true
	default:
		persistAfter = true
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, "", ErrClosed
	}
	if p.res != nil && p.id == id { // raced with another resolve
		res := p.res
		p.mu.Unlock()
		return res, id, nil
	}
	old := p.res
	p.everBound = true
	p.id = id
	p.size = size
	res := p.bind(id)
	p.res = res
	p.mu.Unlock()

	if old != nil {
		old.stop()
	}
	if persistAfter {
		if werr := p.st.writeSize(ctx, id, size); werr != nil {
			p.hooks.SizePersistError(p.ns, werr)
			p.log.Warn("size persist error on rebind", Fields{"id": id, "err": werr})
		}
	}
	return res, id, nil
}

func (p *pages[V]) bind(id string) *resource[[]V] {
	return newResource(resourceConfig[[]V]{
		key:   p.st.listKey(id),
		fetch: p.walkFn(id, defaultDirective[V]()),
		loadEntry: func(ctx context.Context) ([]V, int64, bool) {
			return p.st.readList(ctx, id)
		},
		saveEntry: func(ctx context.Context, vs []V, fetchedAt int64) error {
			return p.st.writeList(ctx, id, vs, fetchedAt)
		},
		dedup:   p.dedup,
		retry:   p.retry,
		refresh: p.refresh,
		log:     p.log,
		notify:  p.notify,
	})
}

// walkFn builds a fetch cycle for one identity under one directive. The walk
// derives keys strictly in order (each from the previous page's data), reuses
// cached pages unless the directive says otherwise, and commits only while
// the generation it started under is still current.
func (p *pages[V]) walkFn(id string, d directive[V]) fetchFn[[]V] {
	return func(ctx context.Context) ([]V, bool, error) {
		count := p.sizeNow()
		guard := p.st.beginWalk(ctx, id)

		capN := count
		if capN < 0 {
			capN = 0
		}
		out := make([]V, 0, capN)

		var prev *V
		for i := 0; i < count; i++ {
			k, err := p.loader(i, prev)
			if err != nil {
				if i == 0 {
					return nil, false, nil // sequence went away mid-cycle
				}
				return nil, false, &WalkError{Index: i, Err: err}
			}
			if k.IsZero() {
				if i == 0 {
					return nil, false, nil
				}
				break // end of the sequence
			}

			v, cached := p.st.readPage(ctx, k)
			if fetch, reason := p.decide(d, i, cached, v); fetch {
				fv, ferr := p.fetchPage(ctx, k)
				if ferr != nil {
					p.hooks.FetchError(p.ns, i, ferr)
					return nil, false, &WalkError{Index: i, Key: k, Err: ferr}
				}
				v = fv
				p.st.writePage(ctx, guard, k, v)
				p.hooks.PageFetched(p.ns, i, reason)
			}

			out = append(out, v)
			pv := v
			prev = &pv
		}

		if !p.st.current(ctx, guard) {
			p.hooks.StaleCycleDropped(p.ns, id)
			p.log.Debug("walk superseded; result dropped", Fields{"id": id, "gen": guard.gen})
			return out, false, nil
		}
		return out, true, nil
	}
}

// decide reports whether page i must be fetched this cycle and why.
func (p *pages[V]) decide(d directive[V], i int, cached bool, v V) (bool, string) {
	if !cached {
		return true, "missing"
	}
	if p.revalidateAll {
		return true, "revalidate_all"
	}
	switch d.mode {
	case cycleForceAll:
		return true, "force"
	case cycleDiff:
		if d.original == nil {
			return false, ""
		}
		if i >= len(d.original) || !p.cmp(d.original[i], v) {
			return true, "changed"
		}
		return false, ""
	default:
		if i == 0 {
			return true, "first_page"
		}
		return false, ""
	}
}

func (p *pages[V]) fetchPage(ctx context.Context, k Key) (V, error) {
	if p.pageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.pageTimeout)
		defer cancel()
	}
	return p.fetch(ctx, k)
}

func (p *pages[V]) sizeNow() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.size
}

// ==============================
// public surface
// ==============================

// Load returns the assembled array for the current sequence. With committed
// data it returns immediately and revalidates in the background once the
// dedup window has passed; cold sequences resolve in the foreground. A
// disabled sequence loads as (nil, nil).
func (p *pages[V]) Load(ctx context.Context) ([]V, error) {
	res, _, err := p.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	return res.loadValue(ctx)
}

// Data returns the last committed array without triggering any fetch.
func (p *pages[V]) Data() ([]V, bool) {
	p.mu.Lock()
	res := p.res
	p.mu.Unlock()
	if res == nil {
		return nil, false
	}
	return res.snapshot()
}

// Err returns the error recorded by the most recent failed cycle, or nil
// after a successful one.
func (p *pages[V]) Err() error {
	p.mu.Lock()
	res := p.res
	p.mu.Unlock()
	if res == nil {
		return nil
	}
	return res.lastErr()
}

// IsValidating reports whether a fetch cycle is in flight.
func (p *pages[V]) IsValidating() bool {
	p.mu.Lock()
	res := p.res
	p.mu.Unlock()
	if res == nil {
		return false
	}
	return res.validating()
}

// Revalidate runs a fetch cycle immediately, bypassing the dedup window. The
// cycle follows the default directive: page 0 refreshes, other cached pages
// are reused, missing pages are fetched.
func (p *pages[V]) Revalidate(ctx context.Context) ([]V, error) {
	res, id, err := p.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	return res.revalidate(ctx, p.walkFn(id, defaultDirective[V]()), true)
}

// Size returns the current page count. It never invokes the loader.
func (p *pages[V]) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.size
}

// SetSize sets the page count and runs a fetch cycle at the new count. The
// count is persisted and observers are notified before the cycle starts, so
// Size reflects the change while pages are still loading. The cycle follows
// the default directive: growing fetches only the newly exposed pages (plus
// page 0), shrinking fetches nothing new.
func (p *pages[V]) SetSize(ctx context.Context, n int) ([]V, error) {
	return p.SetSizeFunc(ctx, func(int) int { return n })
}

// SetSizeFunc is SetSize with the next count computed from the current one.
func (p *pages[V]) SetSizeFunc(ctx context.Context, f func(current int) int) ([]V, error) {
	res, id, err := p.resolve(ctx)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	n := f(p.size)
	p.size = n
	p.mu.Unlock()

	if res == nil {
		// disabled: the count takes effect when the sequence binds
		p.notify()
		return nil, nil
	}

	if werr := p.st.writeSize(ctx, id, n); werr != nil {
		p.hooks.SizePersistError(p.ns, werr)
		p.log.Warn("size persist error", Fields{"id": id, "err": werr})
	}
	p.notify()

	return res.revalidate(ctx, p.walkFn(id, defaultDirective[V]()), true)
}

// Mutate replaces or revalidates the current array.
//
// With data, the array is committed and persisted immediately and any
// in-flight cycle is superseded. With revalidate, a diff cycle follows: only
// pages whose cached value no longer compares equal to the pre-mutation
// array are refetched, and the page-0 default rule is suppressed.
//
// Without data, revalidate runs a full forced cycle refetching every page;
// revalidate=false returns the current array untouched.
func (p *pages[V]) Mutate(ctx context.Context, data []V, revalidate bool) ([]V, error) {
	res, id, err := p.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}

	if data != nil {
		prev, _ := res.snapshot()
		p.st.bumpWalk(ctx, id) // supersede in-flight cycles
		res.mutate(ctx, data)
		if !revalidate {
			return data, nil
		}
		return res.revalidate(ctx, p.walkFn(id, diffDirective[V](prev)), true)
	}

	if !revalidate {
		v, _ := res.snapshot()
		return v, nil
	}
	return res.revalidate(ctx, p.walkFn(id, forceAllDirective[V]()), true)
}

// Close stops background work. Committed data stays readable through Data,
// but triggering operations fail with ErrClosed. The gen store closes best
// effort; the provider's close error is returned.
func (p *pages[V]) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	res := p.res
	p.mu.Unlock()

	if res != nil {
		res.stop()
	}
	if p.st.gen != nil {
		_ = p.st.gen.Close(ctx)
	}
	if p.st.prov != nil {
		return p.st.prov.Close(ctx)
	}
	return nil
}
