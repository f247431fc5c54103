package swrcache

import (
	"strings"
	"testing"
)

func TestKeyZeroSentinel(t *testing.T) {
	var zero Key
	if !zero.IsZero() {
		t.Fatalf("zero Key must be the stop sentinel")
	}
	if NewKey("page").IsZero() {
		t.Fatalf("non-empty key must not be the sentinel")
	}
	if NewKey("", 1).IsZero() {
		t.Fatalf("empty key with args must not be the sentinel")
	}
}

func TestKeyStringBareWithoutArgs(t *testing.T) {
	if got := NewKey("feed:0").String(); got != "feed:0" {
		t.Fatalf("bare key changed: %q", got)
	}
	if got := (Key{K: "feed:0"}).String(); got != "feed:0" {
		t.Fatalf("bare key changed: %q", got)
	}
}

func TestKeyStringWithArgsIsStable(t *testing.T) {
	a := NewKey("feed", 3, "cursor-x").String()
	b := NewKey("feed", 3, "cursor-x").String()
	if a != b {
		t.Fatalf("equal descriptors must serialize identically: %q vs %q", a, b)
	}
	if !strings.HasPrefix(a, "feed:") {
		t.Fatalf("args form must keep the base prefix: %q", a)
	}
	if len(a) != len("feed")+1+16 {
		t.Fatalf("args form must carry a 16 char hash suffix: %q", a)
	}
}

func TestKeyStringDiffersByArgs(t *testing.T) {
	a := NewKey("feed", 1).String()
	b := NewKey("feed", 2).String()
	if a == b {
		t.Fatalf("different argument tuples must not collide: %q", a)
	}
	// args vs no args must differ too, otherwise page 1 with default args
	// would alias the bare descriptor
	if NewKey("feed").String() == a {
		t.Fatalf("bare and args forms must not collide")
	}
}
