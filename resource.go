package swrcache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// fetchFn produces the next value for a resource. The bool reports whether
// the value may be committed: a fetch that ran but must not become the
// current state (sequence not ready, cycle superseded) returns false with a
// nil error.
type fetchFn[T any] func(ctx context.Context) (T, bool, error)

// fetchOut boxes a fetch result through the retry helper.
type fetchOut[T any] struct {
	v      T
	commit bool
}

type resourceConfig[T any] struct {
	key       string
	fetch     fetchFn[T]
	loadEntry func(ctx context.Context) (T, int64, bool)
	saveEntry func(ctx context.Context, v T, fetchedAt int64) error
	dedup     time.Duration
	retry     retryConfig
	refresh   time.Duration
	log       Logger
	notify    func()
}

// resource is the stale-while-revalidate core for one cached value. Reads
// return the current value immediately and revalidate in the background once
// the dedup window has passed; a cold resource resolves in the foreground.
//
// Every fetch runs under an epoch. Mutations and newer fetches advance the
// epoch, so a slow fetch that finishes late observes the mismatch and leaves
// the committed state alone.
type resource[T any] struct {
	key       string
	fetch     fetchFn[T]
	loadEntry func(ctx context.Context) (T, int64, bool)
	saveEntry func(ctx context.Context, v T, fetchedAt int64) error

	dedup  time.Duration
	retry  retryConfig
	log    Logger
	notify func()

	flight singleflight.Group

	baseCtx context.Context
	cancel  context.CancelFunc

	mu          sync.Mutex
	data        T
	has         bool
	err         error
	inflight    int
	epoch       uint64
	lastFetched time.Time
	loaded      bool
	stopped     bool

	// background refresh
	ticker   *time.Ticker
	stopCh   chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func newResource[T any](cfg resourceConfig[T]) *resource[T] {
	ctx, cancel := context.WithCancel(context.Background())
	r := &resource[T]{
		key:       cfg.key,
		fetch:     cfg.fetch,
		loadEntry: cfg.loadEntry,
		saveEntry: cfg.saveEntry,
		dedup:     cfg.dedup,
		retry:     cfg.retry,
		log:       cfg.log,
		notify:    cfg.notify,
		baseCtx:   ctx,
		cancel:    cancel,
	}
	if r.notify == nil {
		r.notify = func() {}
	}
	if cfg.refresh > 0 {
		r.ticker = time.NewTicker(cfg.refresh)
		r.stopCh = make(chan struct{})
		r.wg.Add(1)
		go r.refreshLoop()
	}
	return r
}

// ensureLoaded hydrates state from the shared store once per resource
// lifetime. The persisted fetch time restores the dedup clock, so a fresh
// process does not refetch values a previous one fetched moments ago.
func (r *resource[T]) ensureLoaded(ctx context.Context) {
	r.mu.Lock()
	if r.loaded {
		r.mu.Unlock()
		return
	}
	r.loaded = true
	r.mu.Unlock()

	if r.loadEntry == nil {
		return
	}
	v, fetchedAt, ok := r.loadEntry(ctx)
	if !ok {
		return
	}
	r.mu.Lock()
	if !r.has { // a fetch that raced hydration wins
		r.data = v
		r.has = true
		r.lastFetched = time.Unix(0, fetchedAt)
	}
	r.mu.Unlock()
}

// loadValue is the read path: return what we have and revalidate behind the
// caller when the value is older than the dedup window. With nothing cached
// the fetch runs in the foreground.
func (r *resource[T]) loadValue(ctx context.Context) (T, error) {
	r.ensureLoaded(ctx)

	r.mu.Lock()
	if r.has {
		v := r.data
		stale := time.Since(r.lastFetched) >= r.dedup
		idle := r.inflight == 0
		stopped := r.stopped
		r.mu.Unlock()
		if stale && idle && !stopped {
			r.spawnRevalidate()
		}
		return v, nil
	}
	r.mu.Unlock()

	return r.revalidate(ctx, r.fetch, false)
}

func (r *resource[T]) spawnRevalidate() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		_, _ = r.revalidate(r.baseCtx, r.fetch, false)
	}()
}

// revalidate runs one fetch cycle with the given fetch function. Non-forced
// calls are deduplicated: inside the dedup window the current state is
// returned untouched, and concurrent callers share a single flight. Forced
// calls always fetch.
func (r *resource[T]) revalidate(ctx context.Context, fn fetchFn[T], force bool) (T, error) {
	if !force {
		r.mu.Lock()
		// a recent fetch, successful or not, satisfies the call
		if (r.has || r.err != nil) && time.Since(r.lastFetched) < r.dedup {
			v, err := r.data, r.err
			r.mu.Unlock()
			return v, err
		}
		r.mu.Unlock()

		out, err, _ := r.flight.Do(r.key, func() (any, error) {
			v, ferr := r.runFetch(ctx, fn)
			return v, ferr
		})
		v, _ := out.(T)
		return v, err
	}
	return r.runFetch(ctx, fn)
}

// runFetch executes fn under a fresh epoch and commits the result if the
// epoch is still current when it finishes.
func (r *resource[T]) runFetch(ctx context.Context, fn fetchFn[T]) (T, error) {
	r.mu.Lock()
	r.epoch++
	my := r.epoch
	r.inflight++
	r.mu.Unlock()
	r.notify()

	out, err := runRetry(ctx, r.retry, r.log, func(ctx context.Context) (fetchOut[T], error) {
		v, commit, ferr := fn(ctx)
		return fetchOut[T]{v: v, commit: commit}, ferr
	})

	now := time.Now()
	r.mu.Lock()
	r.inflight--

	if r.epoch != my {
		// superseded while running; hand the value back uncommitted
		r.mu.Unlock()
		r.notify()
		return out.v, err
	}
	if err != nil {
		r.err = err
		r.lastFetched = now // failures hold the dedup window too
		r.mu.Unlock()
		r.notify()
		var zero T
		return zero, err
	}
	if !out.commit {
		r.mu.Unlock()
		r.notify()
		return out.v, nil
	}

	r.data = out.v
	r.has = true
	r.err = nil
	r.lastFetched = now
	r.mu.Unlock()

	if r.saveEntry != nil {
		if serr := r.saveEntry(ctx, out.v, now.UnixNano()); serr != nil {
			r.log.Debug("entry persist error", Fields{"key": r.key, "err": serr})
		}
	}
	r.notify()
	return out.v, nil
}

// mutate commits v as the current value and supersedes any in-flight fetch.
func (r *resource[T]) mutate(ctx context.Context, v T) {
	now := time.Now()
	r.mu.Lock()
	r.epoch++
	r.data = v
	r.has = true
	r.err = nil
	r.lastFetched = now
	r.mu.Unlock()

	if r.saveEntry != nil {
		if err := r.saveEntry(ctx, v, now.UnixNano()); err != nil {
			r.log.Debug("entry persist error", Fields{"key": r.key, "err": err})
		}
	}
	r.notify()
}

func (r *resource[T]) snapshot() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data, r.has
}

func (r *resource[T]) lastErr() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *resource[T]) validating() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inflight > 0
}

func (r *resource[T]) refreshLoop() {
	defer r.wg.Done()
	for {
		select {
		case <-r.ticker.C:
			_, _ = r.revalidate(r.baseCtx, r.fetch, false)
		case <-r.stopCh:
			return
		}
	}
}

// stop ends background work and waits for in-flight goroutines. Committed
// state stays readable after stop.
func (r *resource[T]) stop() {
	r.stopOnce.Do(func() {
		r.mu.Lock()
		r.stopped = true
		r.mu.Unlock()

		r.cancel()
		if r.stopCh != nil {
			close(r.stopCh)
		}
		r.wg.Wait()
		if r.ticker != nil {
			r.ticker.Stop()
		}
	})
}
