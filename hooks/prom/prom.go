// Package promhook exports swrcache events as Prometheus counters.
//
//	hooks := promhook.New(prometheus.DefaultRegisterer)
//	feed, _ := swrcache.New[Page](swrcache.Options[Page]{..., Hooks: hooks})
package promhook

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/unkn0wn-root/swrcache"
)

type Hooks struct {
	pageFetches *prometheus.CounterVec
	fetchErrors *prometheus.CounterVec
	selfHeals   *prometheus.CounterVec
	staleCycles *prometheus.CounterVec
	sizeErrors  *prometheus.CounterVec
	genErrors   *prometheus.CounterVec
	setRejected *prometheus.CounterVec
}

var _ swrcache.Hooks = (*Hooks)(nil)

func New(reg prometheus.Registerer) *Hooks {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Hooks{
		pageFetches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "swrcache_page_fetches_total",
			Help: "Pages fetched (not served from cache), by namespace and reason",
		}, []string{"namespace", "reason"}),
		fetchErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "swrcache_fetch_errors_total",
			Help: "Page fetch failures by namespace",
		}, []string{"namespace"}),
		selfHeals: f.NewCounterVec(prometheus.CounterOpts{
			Name: "swrcache_self_heals_total",
			Help: "Cache entries deleted on read by reason",
		}, []string{"reason"}),
		staleCycles: f.NewCounterVec(prometheus.CounterOpts{
			Name: "swrcache_stale_cycles_dropped_total",
			Help: "Fetch cycles superseded before commit, by namespace",
		}, []string{"namespace"}),
		sizeErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "swrcache_size_persist_errors_total",
			Help: "Failed page count persists by namespace",
		}, []string{"namespace"}),
		genErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "swrcache_gen_errors_total",
			Help: "Gen store failures by operation",
		}, []string{"op"}),
		setRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "swrcache_provider_set_rejected_total",
			Help: "Provider Set calls that returned ok=false, by entry kind",
		}, []string{"kind"}),
	}
}

func (h *Hooks) SelfHeal(_, reason string) { h.selfHeals.WithLabelValues(reason).Inc() }

func (h *Hooks) PageFetched(ns string, _ int, reason string) {
	h.pageFetches.WithLabelValues(ns, reason).Inc()
}

func (h *Hooks) FetchError(ns string, _ int, _ error) {
	h.fetchErrors.WithLabelValues(ns).Inc()
}

func (h *Hooks) StaleCycleDropped(ns, _ string) { h.staleCycles.WithLabelValues(ns).Inc() }

func (h *Hooks) SizePersistError(ns string, _ error) { h.sizeErrors.WithLabelValues(ns).Inc() }

func (h *Hooks) GenError(op string, _ error) { h.genErrors.WithLabelValues(op).Inc() }

func (h *Hooks) ProviderSetRejected(_, kind string) { h.setRejected.WithLabelValues(kind).Inc() }
