package sqlite

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTemp(t *testing.T) *Provider {
	t.Helper()
	p, err := Open(Config{Path: filepath.Join(t.TempDir(), "cache.db")})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = p.Close(context.Background()) })
	return p
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(Config{}); err == nil {
		t.Fatalf("expected error on empty path")
	}
}

func TestRoundTripOverwriteAndDel(t *testing.T) {
	ctx := context.Background()
	p := openTemp(t)

	if _, ok, err := p.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("miss: ok=%v err=%v", ok, err)
	}

	want := []byte{'S', 'W', 'R', 'C', 0x00, 0xFF}
	if ok, err := p.Set(ctx, "k", want, 1, 0); err != nil || !ok {
		t.Fatalf("set: ok=%v err=%v", ok, err)
	}
	got, ok, err := p.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("value not transparent: got %x want %x", got, want)
	}

	// upsert replaces in place
	want2 := []byte("second")
	if _, err := p.Set(ctx, "k", want2, 1, 0); err != nil {
		t.Fatal(err)
	}
	got, _, _ = p.Get(ctx, "k")
	if !bytes.Equal(got, want2) {
		t.Fatalf("overwrite: got %q want %q", got, want2)
	}

	if err := p.Del(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := p.Get(ctx, "k"); ok {
		t.Fatalf("deleted key must miss")
	}
}

func TestTTLExpiry(t *testing.T) {
	ctx := context.Background()
	p := openTemp(t)

	if _, err := p.Set(ctx, "short", []byte("v"), 1, 30*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Set(ctx, "keep", []byte("v"), 1, 0); err != nil {
		t.Fatal(err)
	}

	time.Sleep(60 * time.Millisecond)
	if _, ok, _ := p.Get(ctx, "short"); ok {
		t.Fatalf("expected miss after expiry")
	}
	if _, ok, _ := p.Get(ctx, "keep"); !ok {
		t.Fatalf("no-TTL entry must survive")
	}
}

func TestPurgeExpired(t *testing.T) {
	ctx := context.Background()
	p := openTemp(t)

	for _, k := range []string{"a", "b"} {
		if _, err := p.Set(ctx, k, []byte("v"), 1, 20*time.Millisecond); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := p.Set(ctx, "live", []byte("v"), 1, time.Hour); err != nil {
		t.Fatal(err)
	}

	time.Sleep(50 * time.Millisecond)
	n, err := p.PurgeExpired(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("purged: got %d want 2", n)
	}
	if _, ok, _ := p.Get(ctx, "live"); !ok {
		t.Fatalf("live entry must survive the purge")
	}
}

func TestReopenSeesPersistedRows(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	p, err := Open(Config{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Set(ctx, "k", []byte("survives"), 1, 0); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(ctx); err != nil {
		t.Fatal(err)
	}

	p2, err := Open(Config{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = p2.Close(ctx) })

	got, ok, err := p2.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("get after reopen: ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(got, []byte("survives")) {
		t.Fatalf("got %q", got)
	}
}
