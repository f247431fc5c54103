package memory

import (
	"bytes"
	"context"
	"testing"
	"time"
)

func TestRoundTripAndMiss(t *testing.T) {
	ctx := context.Background()
	p := New()
	t.Cleanup(func() { _ = p.Close(ctx) })

	if _, ok, err := p.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("miss: ok=%v err=%v", ok, err)
	}

	want := []byte{0x00, 0x01, 'x'}
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
}

func TestTTLExpiryPrunesLazily(t *testing.T) {
	ctx := context.Background()
	p := New()
	t.Cleanup(func() { _ = p.Close(ctx) })

	if _, err := p.Set(ctx, "k", []byte("v"), 1, 30*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := p.Get(ctx, "k"); !ok {
		t.Fatalf("expected hit before expiry")
	}

	time.Sleep(60 * time.Millisecond)
	if _, ok, _ := p.Get(ctx, "k"); ok {
		t.Fatalf("expected miss after expiry")
	}
	if n := p.Len(); n != 0 {
		t.Fatalf("expired entry must be pruned on read, Len=%d", n)
	}
}

func TestDelAndKeys(t *testing.T) {
	ctx := context.Background()
	p := New()
	t.Cleanup(func() { _ = p.Close(ctx) })

	_, _ = p.Set(ctx, "a", []byte("1"), 1, 0)
	_, _ = p.Set(ctx, "b", []byte("2"), 1, 0)
	if n := len(p.Keys()); n != 2 {
		t.Fatalf("Keys: got %d want 2", n)
	}

	if err := p.Del(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := p.Get(ctx, "a"); ok {
		t.Fatalf("deleted key must miss")
	}
	if n := p.Len(); n != 1 {
		t.Fatalf("Len after delete: got %d want 1", n)
	}
}
