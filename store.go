package swrcache

import (
	"context"
	"time"

	"github.com/unkn0wn-root/swrcache/codec"
	"github.com/unkn0wn-root/swrcache/genstore"
	"github.com/unkn0wn-root/swrcache/internal/wire"
	"github.com/unkn0wn-root/swrcache/provider"
)

// store is the storage face of one namespace: key layout, wire framing, TTLs
// and self-healing live here. Reads degrade to a miss on provider errors and
// delete entries they cannot trust; writes are best-effort.
type store[V any] struct {
	ns             string
	prov           provider.Provider
	codec          codec.Codec[V]
	gen            genstore.GenStore
	computeSetCost SetCostFunc
	pageTTL        time.Duration
	listTTL        time.Duration
	sizeTTL        time.Duration
	log            Logger
	hooks          Hooks
}

func (s *store[V]) pageKey(k Key) string     { return "page:" + s.ns + ":" + k.String() }
func (s *store[V]) listKey(id string) string { return "many:" + s.ns + ":" + id }
func (s *store[V]) sizeKey(id string) string { return "size:" + s.ns + ":" + id }
func (s *store[V]) walkKey(id string) string { return "walk:" + s.ns + ":" + id }
func (s *store[V]) resKey(key string) string { return "res:" + s.ns + ":" + key }

// ==============================
// generation guard
// ==============================

// walkGuard pins a fetch cycle to the generation it started under. Writes go
// through the guard and are skipped once the generation moves on. An inactive
// guard (gen store unavailable) lets everything through.
type walkGuard struct {
	key    string
	gen    uint64
	active bool
}

// beginWalk bumps the sequence generation and returns a guard bound to the
// new value. Bumping at start is what supersedes any still-running cycle for
// the same sequence.
func (s *store[V]) beginWalk(ctx context.Context, id string) walkGuard {
	k := s.walkKey(id)
	g, err := s.gen.Bump(ctx, k)
	if err != nil {
		s.hooks.GenError("bump", err)
		s.log.Warn("gen bump error; walk runs unguarded", Fields{"key": k, "err": err})
		return walkGuard{key: k}
	}
	return walkGuard{key: k, gen: g, active: true}
}

// current reports whether the guard's generation is still the live one.
func (s *store[V]) current(ctx context.Context, g walkGuard) bool {
	if !g.active {
		return true
	}
	cur, err := s.gen.Snapshot(ctx, g.key)
	if err != nil {
		s.hooks.GenError("snapshot", err)
		return true
	}
	return cur == g.gen
}

// bumpWalk advances the sequence generation without starting a cycle.
// Mutations use it so in-flight walks observe themselves superseded.
func (s *store[V]) bumpWalk(ctx context.Context, id string) {
	if _, err := s.gen.Bump(ctx, s.walkKey(id)); err != nil {
		s.hooks.GenError("bump", err)
		s.log.Warn("gen bump error on mutate", Fields{"key": s.walkKey(id), "err": err})
	}
}

// ==============================
// framed single values
// ==============================

func (s *store[V]) getFrame(ctx context.Context, sk string) (V, int64, bool) {
	var zero V
	raw, ok, err := s.prov.Get(ctx, sk)
	if err != nil {
		s.log.Debug("provider read error; treated as miss", Fields{"key": sk, "err": err})
		return zero, 0, false
	}
	if !ok {
		return zero, 0, false
	}
	fetchedAt, payload, err := wire.DecodeEntry(raw)
	if err != nil {
		_ = s.prov.Del(ctx, sk) // self-heal corrupt
		s.hooks.SelfHeal(sk, "corrupt")
		return zero, 0, false
	}
	v, err := s.codec.Decode(payload)
	if err != nil {
		_ = s.prov.Del(ctx, sk) // self-heal
		s.hooks.SelfHeal(sk, "value_decode")
		return zero, 0, false
	}
	return v, fetchedAt, true
}

func (s *store[V]) putFrame(ctx context.Context, sk string, v V, fetchedAt int64, kind string, ttl time.Duration) error {
	payload, err := s.codec.Encode(v)
	if err != nil {
		return err
	}
	wireb := wire.EncodeEntry(fetchedAt, payload)
	ok, err := s.prov.Set(ctx, sk, wireb, s.computeSetCost(sk, wireb, kind, 1), ttl)
	if err != nil {
		return err
	}
	if !ok {
		s.hooks.ProviderSetRejected(sk, kind)
	}
	return nil
}

// ==============================
// pages
// ==============================

// readPage returns the cached value for one page descriptor; anything the
// store cannot trust reads as a miss.
func (s *store[V]) readPage(ctx context.Context, k Key) (V, bool) {
	v, _, ok := s.getFrame(ctx, s.pageKey(k))
	return v, ok
}

// writePage persists one fetched page under the walk guard.
func (s *store[V]) writePage(ctx context.Context, g walkGuard, k Key, v V) {
	sk := s.pageKey(k)
	if !s.current(ctx, g) {
		s.log.Debug("page write skipped (gen moved)", Fields{"key": sk})
		return
	}
	if err := s.putFrame(ctx, sk, v, time.Now().UnixNano(), "page", s.pageTTL); err != nil {
		s.log.Debug("page write error", Fields{"key": sk, "err": err})
	}
}

// ==============================
// the assembled array
// ==============================

// readList returns the stored result array for a sequence plus the time the
// producing cycle finished. Corrupt or undecodable lists are dropped whole.
func (s *store[V]) readList(ctx context.Context, id string) ([]V, int64, bool) {
	sk := s.listKey(id)
	raw, ok, err := s.prov.Get(ctx, sk)
	if err != nil {
		s.log.Debug("provider read error; treated as miss", Fields{"key": sk, "err": err})
		return nil, 0, false
	}
	if !ok {
		return nil, 0, false
	}
	fetchedAt, payloads, err := wire.DecodeList(raw)
	if err != nil {
		_ = s.prov.Del(ctx, sk) // self-heal corrupt
		s.hooks.SelfHeal(sk, "corrupt")
		return nil, 0, false
	}
	out := make([]V, 0, len(payloads))
	for _, p := range payloads {
		v, err := s.codec.Decode(p)
		if err != nil {
			_ = s.prov.Del(ctx, sk) // self-heal
			s.hooks.SelfHeal(sk, "value_decode")
			return nil, 0, false
		}
		out = append(out, v)
	}
	return out, fetchedAt, true
}

func (s *store[V]) writeList(ctx context.Context, id string, vs []V, fetchedAt int64) error {
	sk := s.listKey(id)
	payloads := make([][]byte, 0, len(vs))
	for _, v := range vs {
		p, err := s.codec.Encode(v)
		if err != nil {
			return err
		}
		payloads = append(payloads, p)
	}
	wireb := wire.EncodeList(fetchedAt, payloads)
	ok, err := s.prov.Set(ctx, sk, wireb, s.computeSetCost(sk, wireb, "list", len(vs)), s.listTTL)
	if err != nil {
		return err
	}
	if !ok {
		s.hooks.ProviderSetRejected(sk, "list")
	}
	return nil
}

// ==============================
// page count
// ==============================

func (s *store[V]) readSize(ctx context.Context, id string) (int, bool) {
	sk := s.sizeKey(id)
	raw, ok, err := s.prov.Get(ctx, sk)
	if err != nil {
		s.log.Debug("provider read error; treated as miss", Fields{"key": sk, "err": err})
		return 0, false
	}
	if !ok {
		return 0, false
	}
	n, err := wire.DecodeCount(raw)
	if err != nil {
		_ = s.prov.Del(ctx, sk) // self-heal corrupt
		s.hooks.SelfHeal(sk, "corrupt")
		return 0, false
	}
	return int(n), true
}

func (s *store[V]) writeSize(ctx context.Context, id string, n int) error {
	sk := s.sizeKey(id)
	wireb := wire.EncodeCount(int64(n))
	ok, err := s.prov.Set(ctx, sk, wireb, s.computeSetCost(sk, wireb, "size", 1), s.sizeTTL)
	if err != nil {
		return err
	}
	if !ok {
		s.hooks.ProviderSetRejected(sk, "size")
	}
	return nil
}

// ==============================
// single-value resources
// ==============================

func (s *store[V]) readRes(ctx context.Context, key string) (V, int64, bool) {
	return s.getFrame(ctx, s.resKey(key))
}

func (s *store[V]) writeRes(ctx context.Context, key string, v V, fetchedAt int64) error {
	return s.putFrame(ctx, s.resKey(key), v, fetchedAt, "res", s.pageTTL)
}
