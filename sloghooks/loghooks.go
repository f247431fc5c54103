package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/swrcache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	SelfHealEvery  uint64
	PageFetchEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	selfHealCtr  atomic.Uint64
	pageFetchCtr atomic.Uint64
}

var _ swrcache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) SelfHeal(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("swrcache.self_heal",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) PageFetched(ns string, index int, reason string) {
	if h.l == nil || !sample(h.opts.PageFetchEvery, &h.pageFetchCtr) {
		return
	}
	h.l.Debug("swrcache.page_fetched",
		"ns", ns,
		"index", index,
		"reason", reason)
}

func (h *Hooks) FetchError(ns string, index int, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("swrcache.fetch_error",
		"ns", ns,
		"index", index,
		"err", err)
}

func (h *Hooks) StaleCycleDropped(ns, sequenceID string) {
	if h.l == nil {
		return
	}
	h.l.Info("swrcache.stale_cycle_dropped",
		"ns", ns,
		"id", h.redact(sequenceID))
}

func (h *Hooks) SizePersistError(ns string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("swrcache.size_persist_error",
		"ns", ns,
		"err", err)
}

func (h *Hooks) GenError(op string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("swrcache.gen_error",
		"op", op,
		"err", err)
}

func (h *Hooks) ProviderSetRejected(storageKey, kind string) {
	if h.l == nil {
		return
	}
	h.l.Warn("swrcache.provider_set_rejected",
		"key", h.redact(storageKey),
		"kind", kind)
}
