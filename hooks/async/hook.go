// usage:
//
// import (
//
//	"log/slog"
//
//	"github.com/unkn0wn-root/swrcache"
//	"github.com/unkn0wn-root/swrcache/codec"
//	"github.com/unkn0wn-root/swrcache/hooks/async"
//	"github.com/unkn0wn-root/swrcache/sloghooks"
//
// )
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    SelfHealEvery:  10, // sample logs: ~every 10th self-heal
//	    PageFetchEvery: 1,  // log every page fetch
//	})
//
// hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
// defer hooks.Close()
//
//	feed, _ := swrcache.New[Page](swrcache.Options[Page]{
//	    Namespace: "app:prod:feed",
//	    Provider:  provider,
//	    Codec:     codec.JSON[Page]{},
//	    Loader:    loader,
//	    Fetch:     fetch,
//	    Hooks:     hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"

	"github.com/unkn0wn-root/swrcache"
)

type Hooks struct {
	inner swrcache.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ swrcache.Hooks = (*Hooks)(nil)

func New(inner swrcache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) SelfHeal(k, r string)          { h.try(func() { h.inner.SelfHeal(k, r) }) }
func (h *Hooks) GenError(op string, err error) { h.try(func() { h.inner.GenError(op, err) }) }
func (h *Hooks) StaleCycleDropped(ns, id string) {
	h.try(func() { h.inner.StaleCycleDropped(ns, id) })
}
func (h *Hooks) PageFetched(ns string, i int, r string) {
	h.try(func() { h.inner.PageFetched(ns, i, r) })
}
func (h *Hooks) FetchError(ns string, i int, err error) {
	h.try(func() { h.inner.FetchError(ns, i, err) })
}
func (h *Hooks) SizePersistError(ns string, err error) {
	h.try(func() { h.inner.SizePersistError(ns, err) })
}
func (h *Hooks) ProviderSetRejected(k, kind string) {
	h.try(func() { h.inner.ProviderSetRejected(k, kind) })
}
